package gen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/makegen-build/makegen/internal/project"
)

// DefaultArch picks the architecture baked into generated scripts when the
// invoker supplies none: the first 64-bit candidate in input order, else the
// first candidate. This is a simple preference, not a host probe.
func DefaultArch(archs []project.Arch) (project.Arch, error) {
	if len(archs) == 0 {
		return "", ErrNoArchitectures
	}
	for _, a := range archs {
		if a.Is64Bit() {
			return a, nil
		}
	}
	return archs[0], nil
}

// MasterPath is the master script name for a base name.
func MasterPath(base string) string {
	return base + Ext
}

// MasterScript renders the top-level script that rebuilds every given
// project in dependency order with a shared ARCH/CONFIG setting. Projects
// are identified by their manifest path; dependency identifiers outside the
// given set are skipped. A dependency cycle aborts the whole script.
func (g *Generator) MasterScript(projects []*project.Project) ([]byte, error) {
	if len(g.opts.Configs) == 0 {
		return nil, ErrNoConfigurations
	}
	arch, err := DefaultArch(g.opts.Archs)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*project.Project, len(projects))
	deps := make(map[string][]string, len(projects))
	for _, p := range projects {
		byID[p.Path] = p
		deps[p.Path] = p.DependsOn
	}
	order, err := BuildOrder(deps)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	writeln(&sb, "#!/usr/bin/make -f")
	writeln(&sb)
	writeln(&sb, "SETTINGS = ARCH=", string(arch), " CONFIG=", g.opts.Configs[0])
	writeln(&sb)
	writeln(&sb, "all:")
	for _, id := range order {
		p := byID[id]
		dir := p.OutDir
		if dir == "" {
			dir = "."
		}
		writeln(&sb, "\tmake -C ", dir, " -f ", ScriptName(p), " $(SETTINGS)")
	}
	writeln(&sb)
	return []byte(sb.String()), nil
}

// CreateMasterFile writes the master script for base at the generator root,
// overwriting any existing file.
func (g *Generator) CreateMasterFile(base string, projects []*project.Project) error {
	data, err := g.MasterScript(projects)
	if err != nil {
		return err
	}
	target := filepath.Join(g.opts.Root, MasterPath(base))
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("master script: %w", err)
	}
	return nil
}
