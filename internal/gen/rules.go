package gen

import (
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/makegen-build/makegen/internal/project"
)

// Marker targets separating the build phases. They are declared phony and
// always run before the objects and the link step respectively.
const (
	prebuildMark  = "__PREBUILD"
	prelinkMark   = "__PRELINK"
	postbuildMark = "__POSTBUILD"
)

// archiveCommand produces a static archive from the pass objects.
const archiveCommand = "@ar rcs $@ $(OBJECTS)"

// flagString renders the pass flags in a fixed order: compiler options,
// linker options, defines, library directories, libraries, include
// directories. Empty categories contribute nothing, so the result never
// carries stray spacing.
func flagString(pass *project.Pass) string {
	parts := make([]string, 0,
		len(pass.CompilerOptions)+len(pass.LinkerOptions)+len(pass.Defines)+
			len(pass.LibDirs)+len(pass.Libraries)+len(pass.IncludeDirs))
	parts = append(parts, pass.CompilerOptions...)
	parts = append(parts, pass.LinkerOptions...)
	for _, def := range pass.Defines {
		parts = append(parts, "-D "+def)
	}
	for _, dir := range pass.LibDirs {
		parts = append(parts, "-L"+dir)
	}
	for _, lib := range pass.Libraries {
		parts = append(parts, "-l"+lib)
	}
	for _, dir := range pass.IncludeDirs {
		parts = append(parts, "-I"+dir)
	}
	return strings.Join(parts, " ")
}

// joinFields joins the non-empty fields with single spaces.
func joinFields(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

// targetName is the primary rule's base target: the configured output file
// with its extension stripped, else the OUTNAME macro.
func targetName(pass *project.Pass) string {
	if pass.OutputFile != "" {
		out := filepath.ToSlash(pass.OutputFile)
		return strings.TrimSuffix(out, path.Ext(out))
	}
	return "$(OUTNAME)"
}

// importLibrary returns the pass's import-library target, or "" when none
// applies. Static libraries are their own link artifact and never get a
// separate import library.
func importLibrary(pass *project.Pass) string {
	if pass.ImportLibrary == "" || pass.Kind == project.StaticLibrary {
		return ""
	}
	lib := filepath.ToSlash(pass.ImportLibrary)
	return strings.TrimSuffix(lib, path.Ext(lib)) + ".a"
}

// targetRules builds the primary rule for the pass's output kind and, when
// an import library is configured, the archive rule producing it. Post-build
// commands run after the primary recipe.
func targetRules(pass *project.Pass) ([]Rule, error) {
	importLib := importLibrary(pass)

	deps := []string{prebuildMark, "$(OBJECTS)", prelinkMark}
	if importLib != "" {
		deps = append(deps, importLib)
	}

	base := targetName(pass)
	flags := flagString(pass)

	var primary Rule
	switch pass.Kind {
	case project.Application:
		entry := ""
		if pass.EntryPoint != "" {
			entry = "-Wl,--entry=" + pass.EntryPoint
		}
		primary = Rule{
			Target: base,
			Deps:   deps,
			Commands: []string{
				"@echo '$(GREEN)Compiling executable " + base + "$(NC)'",
				joinFields("@$(COMPILER) $(OBJECTS)", entry, flags, "-o $@"),
			},
		}
	case project.DynamicLibrary:
		target := base + ".so"
		primary = Rule{
			Target: target,
			Deps:   deps,
			Commands: []string{
				"@echo '$(CYAN)Compiling dynamic library " + target + "$(NC)'",
				joinFields("@$(COMPILER) -shared -fPIC $(OBJECTS)", flags, "-o $@"),
			},
		}
	case project.StaticLibrary:
		target := base + ".a"
		primary = Rule{
			Target: target,
			Deps:   deps,
			Commands: []string{
				"@echo '$(CYAN)Compiling static library " + target + "$(NC)'",
				archiveCommand,
			},
		}
	default:
		return nil, fmt.Errorf("unknown target kind %q", pass.Kind)
	}
	primary.Commands = append(primary.Commands, pass.PostBuild...)

	rules := []Rule{primary}
	if importLib != "" {
		rules = append(rules, Rule{
			Target: importLib,
			Deps:   []string{prebuildMark, "$(OBJECTS)", prelinkMark},
			Commands: []string{
				"@echo '$(CYAN)Creating import library " + importLib + "$(NC)'",
				archiveCommand,
			},
		})
	}
	return rules, nil
}

// cleanRule removes every recognized build artifact from the project
// directory.
func cleanRule() Rule {
	return Rule{
		Target: "clean",
		Commands: []string{
			`@echo "Cleaning objects, archives, shared objects, and dynamic libs"`,
			`@rm -f $(wildcard *.o *.a *.so *.dll *.dylib)`,
		},
	}
}

// phonyTargets lists the non-file targets every fragment declares.
func phonyTargets() []string {
	return []string{"clean", prebuildMark, prelinkMark, postbuildMark}
}

// hookRules declares the pre-build and pre-link markers. A marker with no
// commands is still declared so prerequisites naming it resolve.
func hookRules(pass *project.Pass) []Rule {
	return []Rule{
		{Target: prebuildMark, Commands: slices.Clone(pass.PreBuild)},
		{Target: prelinkMark, Commands: slices.Clone(pass.PreLink)},
	}
}
