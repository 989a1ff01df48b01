// makegen status [path]
package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/makegen-build/makegen/internal/gen"
	"github.com/makegen-build/makegen/internal/genstate"
	"github.com/makegen-build/makegen/internal/msg"
	"github.com/makegen-build/makegen/internal/workspace"
)

func doStatus(cmd *cobra.Command, args []string) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	ws, err := workspace.Load(target, workspace.Options{})
	if err != nil {
		msg.Fatal("%v", err)
	}
	state, err := genstate.Load(ws.Root)
	if err != nil {
		msg.Fatal("could not read generation state: %v", err)
	}

	g := gen.New(gen.Options{Root: ws.Root, Configs: ws.Configs, Archs: ws.Archs})

	stale := 0
	for _, p := range ws.Projects {
		hash, err := genstate.InputHash(p)
		if err != nil {
			msg.Fatal("%v", err)
		}
		switch {
		case !gen.ProjectExists(g.ScriptPath(p)):
			fmt.Printf("%s %s (no script)\n", color.RedString("  missing"), p.Name)
			stale++
		case !state.Fresh(p.Path, hash):
			fmt.Printf("%s %s\n", color.YellowString("    stale"), p.Name)
			stale++
		default:
			fmt.Printf("%s %s\n", color.HiGreenString("up to date"), p.Name)
		}
	}

	if stale > 0 {
		fmt.Printf("%d of %d projects need regeneration.\n", stale, len(ws.Projects))
	} else {
		fmt.Println("All projects up to date.")
	}
}

var statusCmd = &cobra.Command{
	Use:   "status [workspace path]",
	Short: "Show which projects need regeneration",
	Long:  `Show which projects need regeneration. If no workspace path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doStatus,
}

func init() {
	// makegen status subcommand
	rootCmd.AddCommand(statusCmd)
}
