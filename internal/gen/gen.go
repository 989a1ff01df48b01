// Package gen emits GNU make build scripts: one script per project holding
// every configuration pass behind CONFIG/ARCH guards, plus a master script
// that rebuilds all projects in dependency order. Script content is
// assembled as structured fragments and serialized in one step, so equal
// inputs always produce byte-equal files.
package gen

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/makegen-build/makegen/internal/msg"
	"github.com/makegen-build/makegen/internal/project"
)

// Options configure a Generator.
type Options struct {
	// Root anchors every written file. Empty means the current directory.
	Root string

	// Configs are the requested configuration names. The first one becomes
	// the CONFIG default baked into every script.
	Configs []string

	// Archs are the architectures requested for this run. They drive the
	// master script's ARCH default.
	Archs []project.Arch

	// Jobs bounds concurrent per-project generation. Values below one mean
	// one worker per CPU.
	Jobs int
}

// Generator writes project and master scripts for resolved projects.
type Generator struct {
	opts Options
}

func New(opts Options) *Generator {
	if opts.Jobs < 1 {
		opts.Jobs = runtime.NumCPU()
	}
	return &Generator{opts: opts}
}

// Run generates the script of every project in generate, then the master
// script. Projects are independent, so they are generated concurrently and
// a failing project does not stop the others.
//
// The master script covers the projects whose script write succeeded in this
// run plus the upToDate projects the caller skipped, never a project that
// failed. masterBase == "" skips the master entirely. Run returns the subset
// of generate that was actually written, plus the join of every per-project
// failure and any master failure.
func (g *Generator) Run(generate, upToDate []*project.Project, masterBase string) ([]*project.Project, error) {
	results := make([]error, len(generate))

	eg, _ := errgroup.WithContext(context.Background())
	eg.SetLimit(g.opts.Jobs)
	for i, p := range generate {
		eg.Go(func() error {
			msg.Creating(g.ScriptPath(p))
			results[i] = g.CreateProject(p)
			return nil
		})
	}
	eg.Wait()

	var errs []error
	written := make([]*project.Project, 0, len(generate))
	for i, p := range generate {
		if results[i] != nil {
			errs = append(errs, results[i])
			continue
		}
		written = append(written, p)
	}

	if masterBase != "" {
		msg.Creating(filepath.Join(g.opts.Root, MasterPath(masterBase)))
		present := append(slices.Clone(written), upToDate...)
		if err := g.CreateMasterFile(masterBase, present); err != nil {
			errs = append(errs, err)
		}
	}
	return written, errors.Join(errs...)
}
