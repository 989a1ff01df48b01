// makegen init [name], makegen new [path]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/makegen-build/makegen/internal/msg"
)

func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	}
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "makegen"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

// initIn initializes a workspace with one member project in an existing
// directory
func initIn(dir, name string, lib bool) {
	// workspace manifest
	writefile(`[workspace]
name = "`+name+`"
configurations = ["Debug", "Release"]
architectures = ["amd64"]

[projects]
`+name+` = "`+name+`"
`, dir, "Makegen.toml")

	mkdir(dir, name, "src")

	if lib {
		// member manifest
		writefile(`[project]
name = "`+name+`"
kind = "static-library"

[target]
sources = ["src/**.c"]
files = ["src/**.h"]
build-dir = "obj/{{ config }}/{{ arch }}"

[target.'config == "Debug"']
defines = ["DEBUG"]
`, dir, name, "Makegen.toml")

		// src/hello_world.c
		writefile(`#include <stdio.h>
#include "hello_world.h"

void hello_world() {
    puts("Hello, World!");
}
`, dir, name, "src", "hello_world.c")

		// src/hello_world.h
		writefile(`#ifndef HELLOWORLD_H
#define HELLOWORLD_H

#ifdef __cplusplus
extern "C" {
#endif

void hello_world();

#ifdef __cplusplus
} // extern "C"
#endif

#endif
`, dir, name, "src", "hello_world.h")
	} else {
		// member manifest
		writefile(`[project]
name = "`+name+`"
kind = "application"

[target]
sources = ["src/**.c"]
build-dir = "obj/{{ config }}/{{ arch }}"

[target.'config == "Debug"']
defines = ["DEBUG"]
`, dir, name, "Makegen.toml")

		// src/main.c
		writefile(`// You may change this to a .cpp (.cc) file if you'd like
#include <stdio.h>

int main(void) {
    puts("Hello, World!");
    return 0;
}
`, dir, name, "src", "main.c")
	}

	// .gitignore
	writefile(`obj/
*.mak
.makegen/
`, dir, ".gitignore")

	programName := getProgramName()
	fmt.Printf("You can now do %s to generate the makefiles.\n", color.HiCyanString(programName+" "+dir))
}

var library bool

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a new workspace in the current directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initIn(".", args[0], library)
	},
}

var newCmd = &cobra.Command{
	Use:   "new [path]",
	Short: "Create a new workspace in a new directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mkdir(args[0])
		initIn(args[0], filepath.Base(args[0]), library)
	},
}

func init() {
	// makegen init subcommand
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&library, "lib", "l", false, "Make the starter project a static library")

	// makegen new subcommand
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().BoolVarP(&library, "lib", "l", false, "Make the starter project a static library")
}
