package gen

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/makegen-build/makegen/internal/project"
)

// Ext is the extension of every generated make script.
const Ext = ".mak"

var (
	// ErrNoConfigurations means generation was requested with an empty
	// configuration list, leaving no default to bake into the scripts.
	ErrNoConfigurations = errors.New("no configurations available")

	// ErrNoArchitectures means no candidate architectures were supplied.
	ErrNoArchitectures = errors.New("no architectures available")
)

// ScriptName is the file name of a project's generated script.
func ScriptName(p *project.Project) string {
	return p.Name + Ext
}

// ScriptPath is the location a project's script is written to, anchored at
// the generator root.
func (g *Generator) ScriptPath(p *project.Project) string {
	return filepath.Join(g.opts.Root, filepath.FromSlash(p.OutDir), ScriptName(p))
}

// ProjectExists reports whether a script for the artifact at outPath is
// already on disk: a file at the same base path carrying the script
// extension.
func ProjectExists(outPath string) bool {
	base := strings.TrimSuffix(outPath, filepath.Ext(outPath))
	info, err := os.Stat(base + Ext)
	return err == nil && !info.IsDir()
}

// buildFragment assembles the structured fragment for one pass. defaultName
// seeds the OUTNAME macro when the pass does not set its own output name.
func buildFragment(pass *project.Pass, defaultName string) (*Fragment, error) {
	objects, err := deriveObjects(pass)
	if err != nil {
		return nil, err
	}
	targets, err := targetRules(pass)
	if err != nil {
		return nil, err
	}

	binDir := ""
	if pass.OutputFile != "" {
		if dir := path.Dir(filepath.ToSlash(pass.OutputFile)); dir != "." {
			binDir = dir
		}
	} else if pass.OutDir != "" {
		binDir = filepath.ToSlash(pass.OutDir)
	}

	objVals := make([]string, len(objects))
	for i, o := range objects {
		objVals[i] = o.obj
	}

	outName := pass.OutName
	if outName == "" {
		outName = defaultName
	}
	if pass.OutDir != "" && pass.OutputFile == "" {
		outName = path.Join(filepath.ToSlash(pass.OutDir), outName)
	}

	return &Fragment{
		Config:      pass.Config,
		Arch:        pass.Arch,
		BinDir:      binDir,
		BuildDir:    filepath.ToSlash(pass.BuildDir),
		Sources:     Variable{Name: "SOURCES", Values: append([]string(nil), pass.Sources...)},
		Objects:     Variable{Name: "OBJECTS", Values: objVals},
		OutName:     Variable{Name: "OUTNAME", Values: []string{outName}},
		Targets:     targets,
		Clean:       cleanRule(),
		Phony:       phonyTargets(),
		ObjectRules: objectRules(objects, flagString(pass)),
		Hooks:       hookRules(pass),
		Headers:     headerFiles(pass),
	}, nil
}

// ProjectFragments builds the structured fragment for every pass of p, in
// pass order.
func (g *Generator) ProjectFragments(p *project.Project) ([]*Fragment, error) {
	fragments := make([]*Fragment, 0, len(p.Passes))
	for _, pass := range p.Passes {
		f, err := buildFragment(pass, p.Name)
		if err != nil {
			return nil, fmt.Errorf("project %s, pass %s/%s: %w", p.Path, pass.Config, pass.Arch, err)
		}
		fragments = append(fragments, f)
	}
	return fragments, nil
}

// scriptHeader emits the fixed preamble: shebang, regeneration banner, the
// overridable ARCH/CONFIG/COMPILER defaults and the color palette used by
// the recipes.
func (g *Generator) scriptHeader(sb *strings.Builder, p *project.Project) error {
	if len(g.opts.Configs) == 0 {
		return ErrNoConfigurations
	}
	arch, err := DefaultArch(p.Archs)
	if err != nil {
		return err
	}

	writeln(sb, "#!/usr/bin/make -f")
	writeln(sb)
	writeln(sb)
	writeln(sb, "# MAKEFILE GENERATED BY MAKEGEN")
	writeln(sb, "# EDITS WILL BE LOST ON THE NEXT GENERATION.")
	writeln(sb, "# CHANGE THE PROJECT MANIFEST AND REGENERATE INSTEAD.")
	writeln(sb)
	writeln(sb)
	writeln(sb, "# a 64 bit architecture is preferred when the project supports one")
	writeln(sb)
	writeln(sb, "ifndef ARCH")
	writeln(sb, "ARCH = ", string(arch))
	writeln(sb, "endif")
	writeln(sb)
	writeln(sb, "# change the configuration with CONFIG=[", strings.Join(g.opts.Configs, ","), "]")
	writeln(sb)
	writeln(sb, "ifndef CONFIG")
	writeln(sb, "CONFIG = ", g.opts.Configs[0])
	writeln(sb, "endif")
	writeln(sb)
	writeln(sb, "ifndef COMPILER")
	writeln(sb, "COMPILER = ", p.Passes[0].Compiler)
	writeln(sb, "endif")
	writeln(sb)
	writeln(sb)
	writeln(sb, "# COLORS")
	writeln(sb)
	writeln(sb, `RED     =\033[0;31m`)
	writeln(sb, `CYAN    =\033[0;36m`)
	writeln(sb, `GREEN   =\033[0;32m`)
	writeln(sb, `NC      =\033[0m`)
	writeln(sb)
	writeln(sb)
	writeln(sb, "###########################")
	writeln(sb, "### BEGIN BUILD TARGETS ###")
	writeln(sb, "###########################")
	return nil
}

// ProjectScript renders the complete script for a project: the fixed header
// followed by one guarded fragment per pass. The result depends only on the
// project description and the generator options.
func (g *Generator) ProjectScript(p *project.Project) ([]byte, error) {
	if len(p.Passes) == 0 {
		return nil, fmt.Errorf("project %s has no configuration passes", p.Path)
	}
	fragments, err := g.ProjectFragments(p)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if err := g.scriptHeader(&sb, p); err != nil {
		return nil, fmt.Errorf("project %s: %w", p.Path, err)
	}
	for _, f := range fragments {
		f.writeTo(&sb)
	}
	return []byte(sb.String()), nil
}

// CreateProject writes the project's script next to its manifest,
// overwriting any previous script. A project without passes produces
// nothing.
func (g *Generator) CreateProject(p *project.Project) error {
	if len(p.Passes) == 0 {
		return nil
	}
	data, err := g.ProjectScript(p)
	if err != nil {
		return err
	}
	scriptPath := g.ScriptPath(p)
	if err := os.WriteFile(scriptPath, data, 0o644); err != nil {
		return fmt.Errorf("project %s: %w", p.Path, err)
	}
	return nil
}
