// makegen registry
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/makegen-build/makegen/internal/msg"
	"github.com/makegen-build/makegen/internal/registry"
)

// ensureLocalRegistry loads makegen_registry.json from cwd or fails
func ensureLocalRegistry() (*registry.Registry, string) {
	cwd, err := os.Getwd()
	if err != nil {
		msg.Fatal("could not get current directory: %v", err)
	}
	regPath := filepath.Join(cwd, registry.RegistryFilename)
	if _, err := os.Stat(regPath); os.IsNotExist(err) {
		msg.Fatal("no %s found in current directory (must run inside the makegen registry; create it if you need a new registry)", registry.RegistryFilename)
	}

	reg, err := registry.ParseInPath(cwd)
	if err != nil {
		msg.Fatal("failed to parse registry: %v", err)
	}
	return reg, cwd
}

func doRegistryAdd(source, dir string) {
	reg, cwd := ensureLocalRegistry()

	if reg.HasMirror(source) {
		msg.Warn("overwriting existing mirror for %s", source)
	}
	reg.SetMirror(source, dir)

	if err := reg.Save(cwd); err != nil {
		msg.Fatal("failed to save registry: %v", err)
	}
	msg.Info("added mirror %s -> %s", source, dir)
}

func doRegistryRemove(source string) {
	reg, cwd := ensureLocalRegistry()

	if !reg.RemoveMirror(source) {
		msg.Warn("mirror %s not found", source)
	} else {
		msg.Info("removed mirror %s", source)
	}

	if err := reg.Save(cwd); err != nil {
		msg.Fatal("failed to save registry: %v", err)
	}
}

func doRegistryUpdate() {
	_, err := registry.Update()
	if err != nil {
		msg.Fatal("failed to update global registry: %v", err)
	}
	msg.Info("updated global registry successfully")
}

func doRegistrySearch(term string) {
	reg, err := registry.GetAnyhow()
	if err != nil {
		msg.Fatal("failed to load global registry: %v", err)
	}

	term = strings.ToLower(term)
	i := 0
	for source, path := range reg.Mirrors {
		if strings.Contains(strings.ToLower(source), term) ||
			strings.Contains(strings.ToLower(path), term) {
			fmt.Printf("%d. %s -> %s\n", i+1, source, path)
			i++
		}
	}

	if i == 0 {
		msg.Warn("no matches found for %q", term)
	} else {
		msg.Info("found %d matches for %q", i, term)
	}
}

var registryAddCmd = &cobra.Command{
	Use:   "add <source> <dir>",
	Short: "Add a mirror to the local registry",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		doRegistryAdd(args[0], args[1])
	},
}

var registryRemoveCmd = &cobra.Command{
	Use:   "remove <source>",
	Short: "Remove a mirror from the local registry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doRegistryRemove(args[0])
	},
}

var registryUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the global cached registry",
	Run: func(cmd *cobra.Command, args []string) {
		doRegistryUpdate()
	},
}

var registrySearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search the global registry for mirrored sources",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doRegistrySearch(args[0])
	},
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage the member source registry",
}

func init() {
	// makegen registry subcommand
	registryCmd.AddCommand(registryUpdateCmd)
	registryCmd.AddCommand(registryAddCmd)
	registryCmd.AddCommand(registryRemoveCmd)
	registryCmd.AddCommand(registrySearchCmd)
	rootCmd.AddCommand(registryCmd)
}
