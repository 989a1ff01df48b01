// makegen [path], makegen gen [path]
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/makegen-build/makegen/internal/gen"
	"github.com/makegen-build/makegen/internal/genstate"
	"github.com/makegen-build/makegen/internal/msg"
	"github.com/makegen-build/makegen/internal/project"
	"github.com/makegen-build/makegen/internal/workspace"
)

var (
	flagConfigs  []string
	flagJobs     int
	flagForce    bool
	flagNoMaster bool
	flagArchs    EnumSliceValue = NewEnumSliceValue(map[string]string{
		"amd64": "64-bit x86",
		"i386":  "32-bit x86",
		"arm64": "64-bit ARM",
		"arm":   "32-bit ARM",
	})
)

func doGen(cmd *cobra.Command, args []string) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	var archs []project.Arch
	for _, s := range flagArchs.Values() {
		a, err := project.ParseArch(s)
		if err != nil {
			msg.Fatal("%v", err)
		}
		archs = append(archs, a)
	}

	ws, err := workspace.Load(target, workspace.Options{Configs: flagConfigs, Archs: archs})
	if err != nil {
		msg.Fatal("%v", err)
	}

	state, err := genstate.Load(ws.Root)
	if err != nil {
		msg.Warn("discarding unreadable generation state: %v", err)
		state = genstate.New()
	}

	hashes := make(map[string]string, len(ws.Projects))
	var generate, upToDate []*project.Project
	for _, p := range ws.Projects {
		hash, err := genstate.InputHash(p)
		if err != nil {
			msg.Fatal("%v", err)
		}
		hashes[p.Path] = hash
		if !flagForce && state.Fresh(p.Path, hash) {
			upToDate = append(upToDate, p)
			continue
		}
		generate = append(generate, p)
	}
	if len(upToDate) > 0 {
		msg.Info("%d of %d projects up to date", len(upToDate), len(ws.Projects))
	}

	masterBase := ws.Name
	if flagNoMaster {
		masterBase = ""
	}

	g := gen.New(gen.Options{
		Root:    ws.Root,
		Configs: ws.Configs,
		Archs:   ws.Archs,
		Jobs:    flagJobs,
	})
	written, err := g.Run(generate, upToDate, masterBase)

	ok := make(map[string]bool, len(written))
	for _, p := range written {
		ok[p.Path] = true
		state.Set(p.Path, hashes[p.Path], g.ScriptPath(p))
	}
	for _, p := range generate {
		if !ok[p.Path] {
			state.Forget(p.Path)
		}
	}
	if serr := state.Save(ws.Root); serr != nil {
		msg.Warn("failed to save generation state: %v", serr)
	}

	if err != nil {
		msg.Fatal("%v", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "makegen [workspace path]",
	Short: "Makefile generator for C/C++ workspaces",
	Long:  `Generates one makefile per project plus a master makefile that builds the whole workspace in dependency order.`,
	Args:  cobra.MinimumNArgs(1),
	Run:   doGen,
}

var genCmd = &cobra.Command{
	Use:   "gen [workspace path]",
	Short: "Generate makefiles for the workspace",
	Long:  `Generate makefiles for the workspace. If no workspace path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doGen,
}

func init() {
	addGenFlags(rootCmd)

	// makegen gen subcommand
	rootCmd.AddCommand(genCmd)
	addGenFlags(genCmd)
}

func addGenFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&flagConfigs, "config", "c", nil, "Configurations to generate (default: manifest list)")
	cmd.Flags().VarP(&flagArchs, "arch", "a", "Architectures to generate for, of "+flagArchs.HelpString()+" (default: manifest list)")
	cmd.Flags().IntVarP(&flagJobs, "jobs", "j", 0, "Concurrent project generations (default: CPU count)")
	cmd.Flags().BoolVarP(&flagForce, "force", "f", false, "Regenerate projects even when up to date")
	cmd.Flags().BoolVar(&flagNoMaster, "no-master", false, "Skip the master makefile")
	cmd.RegisterFlagCompletionFunc("arch", flagArchs.CompletionFunc())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
