// Package workspace loads Makegen manifests and resolves them into the
// project descriptions the generator consumes. A workspace manifest names
// its member projects; each member manifest is parsed once per requested
// configuration and architecture to expand its conditional sections into a
// flat pass.
package workspace

import (
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/makegen-build/makegen/internal/msg"
	"github.com/makegen-build/makegen/internal/project"
)

const (
	// ManifestName is the file name of workspace and project manifests.
	ManifestName = "Makegen.toml"

	// depsDir receives fetched remote members, relative to the workspace
	// root.
	depsDir = ".makegen/deps"
)

// Workspace is a fully resolved workspace: every member project with its
// passes expanded, plus the configuration and architecture sets this run
// generates for.
type Workspace struct {
	Root     string
	Name     string
	Configs  []string
	Archs    []project.Arch
	Projects []*project.Project
}

// Options adjust workspace loading.
type Options struct {
	// Configs overrides the manifest's configuration list when non-empty.
	Configs []string
	// Archs overrides the manifest's architecture list when non-empty.
	Archs []project.Arch
}

// Load reads the workspace manifest in dir and resolves every member
// project. Remote members are fetched on first use.
func Load(dir string, opts Options) (*Workspace, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	wsCfg, err := ParseWorkspaceFile(filepath.Join(root, ManifestName), NewEnv(root, "", ""))
	if err != nil {
		return nil, err
	}

	name := wsCfg.Workspace.Name
	if name == "" {
		name = filepath.Base(root)
	}

	configs := opts.Configs
	if len(configs) == 0 {
		configs = wsCfg.Workspace.Configurations
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("workspace %s declares no configurations", name)
	}

	archs := opts.Archs
	if len(archs) == 0 {
		for _, s := range wsCfg.Workspace.Architectures {
			a, err := project.ParseArch(s)
			if err != nil {
				return nil, fmt.Errorf("workspace %s: %w", name, err)
			}
			archs = append(archs, a)
		}
	}
	if len(archs) == 0 {
		return nil, fmt.Errorf("workspace %s declares no architectures", name)
	}

	memberDirs, err := resolveMemberDirs(root, wsCfg.Projects)
	if err != nil {
		return nil, err
	}

	// Identifiers are known up front so dependency references can be
	// translated while members load.
	ids := make(map[string]string, len(memberDirs))
	for member, memberDir := range memberDirs {
		ids[member] = manifestID(root, memberDir)
	}

	members := slices.Sorted(maps.Keys(memberDirs))
	projects := make([]*project.Project, 0, len(members))
	for _, member := range members {
		p, err := loadMember(root, member, memberDirs[member], ids, configs, archs)
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", member, err)
		}
		projects = append(projects, p)
	}
	slices.SortFunc(projects, func(a, b *project.Project) int {
		return strings.Compare(a.Path, b.Path)
	})

	return &Workspace{
		Root:     root,
		Name:     name,
		Configs:  configs,
		Archs:    archs,
		Projects: projects,
	}, nil
}

// resolveMemberDirs maps every member to its directory, fetching remote
// sources that are not on disk yet. Two members may not share a directory,
// as the identifier would no longer be unique.
func resolveMemberDirs(root string, members map[string]string) (map[string]string, error) {
	dirs := make(map[string]string, len(members))
	claimed := make(map[string]string, len(members))
	for _, member := range slices.Sorted(maps.Keys(members)) {
		source := members[member]
		var dir string
		if isRemote(source) {
			dir = filepath.Join(root, filepath.FromSlash(depsDir), member)
			if _, err := os.Stat(filepath.Join(dir, ManifestName)); os.IsNotExist(err) {
				msg.Info("fetching %s (%s)", member, source)
				if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
					return nil, err
				}
				if err := fetchMember(source, dir); err != nil {
					return nil, fmt.Errorf("member %q: %w", member, err)
				}
			}
		} else {
			dir = filepath.Join(root, filepath.FromSlash(source))
		}
		if other, ok := claimed[dir]; ok {
			return nil, fmt.Errorf("members %q and %q share directory %s", other, member, dir)
		}
		claimed[dir] = member
		dirs[member] = dir
	}
	return dirs, nil
}

// manifestID is the stable identifier of a member: the workspace-relative
// path of its manifest, in slash form.
func manifestID(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		rel = dir
	}
	return path.Join(filepath.ToSlash(rel), ManifestName)
}

// loadMember resolves one member project: its identity and dependencies
// from the [project] table, then one pass per configuration and
// architecture.
func loadMember(root, member, dir string, ids map[string]string, configs []string, archs []project.Arch) (*project.Project, error) {
	manifest := filepath.Join(dir, ManifestName)

	// Project-level fields are parsed with a neutral environment; config
	// and arch are only defined inside a pass.
	baseCfg, err := ParseProjectFile(manifest, NewEnv(dir, "", ""))
	if err != nil {
		return nil, err
	}

	name := baseCfg.Project.Name
	if name == "" {
		name = member
	}

	kindName := baseCfg.Project.Kind
	if kindName == "" {
		kindName = string(project.Application)
	}
	kind, err := project.ParseKind(kindName)
	if err != nil {
		return nil, err
	}

	projArchs := archs
	if len(baseCfg.Project.Architectures) > 0 {
		projArchs = nil
		for _, s := range baseCfg.Project.Architectures {
			a, err := project.ParseArch(s)
			if err != nil {
				return nil, err
			}
			if slices.Contains(archs, a) {
				projArchs = append(projArchs, a)
			}
		}
		if len(projArchs) == 0 {
			return nil, fmt.Errorf("no requested architecture is supported by the project")
		}
	}

	deps := make([]string, 0, len(baseCfg.Project.Depends))
	for _, depName := range baseCfg.Project.Depends {
		id, ok := ids[depName]
		if !ok {
			// Unknown names stay in the list; ordering skips them.
			msg.Warn("project %s depends on %q, which is not a workspace member", name, depName)
			id = depName
		}
		deps = append(deps, id)
	}

	outDir, err := filepath.Rel(root, dir)
	if err != nil {
		outDir = dir
	}

	p := &project.Project{
		Path:      manifestID(root, dir),
		Name:      name,
		OutDir:    filepath.ToSlash(outDir),
		Archs:     projArchs,
		DependsOn: deps,
	}
	for _, config := range configs {
		for _, arch := range projArchs {
			pass, err := loadPass(dir, manifest, kind, config, arch)
			if err != nil {
				return nil, fmt.Errorf("pass %s/%s: %w", config, arch, err)
			}
			p.Passes = append(p.Passes, pass)
		}
	}
	return p, nil
}

// loadPass re-reads the manifest with the pass environment, so conditional
// [target] sections and {{ ... }} interpolations see the pass's config and
// arch, then expands the source globs.
func loadPass(dir, manifest string, kind project.TargetKind, config string, arch project.Arch) (*project.Pass, error) {
	cfg, err := ParseProjectFile(manifest, NewEnv(dir, config, arch))
	if err != nil {
		return nil, err
	}
	t := cfg.Target

	sources, err := collectFiles(dir, t.Sources)
	if err != nil {
		return nil, err
	}
	extra, err := collectFiles(dir, t.Files)
	if err != nil {
		return nil, err
	}
	files := append(slices.Clone(sources), extra...)

	buildDir := t.BuildDir
	if buildDir == "" {
		buildDir = path.Join("obj", config, string(arch))
	}

	return &project.Pass{
		Config:          config,
		Arch:            arch,
		Kind:            kind,
		CompilerOptions: t.CompilerOptions,
		LinkerOptions:   t.LinkerOptions,
		Defines:         t.Defines,
		IncludeDirs:     t.IncludeDirs,
		LibDirs:         t.LibDirs,
		Libraries:       t.Libraries,
		EntryPoint:      t.EntryPoint,
		OutputFile:      t.OutputFile,
		ImportLibrary:   t.ImportLibrary,
		Sources:         sources,
		Files:           files,
		BuildDir:        buildDir,
		OutDir:          t.OutDir,
		OutName:         t.OutputName,
		PreBuild:        t.PreBuild,
		PreLink:         t.PreLink,
		PostBuild:       t.PostBuild,
		Compiler:        resolveCompiler(t.Compiler, sources),
	}, nil
}

// collectFiles expands doublestar patterns relative to dir. Matches come
// back in the glob's lexical walk order and stay relative, so generated
// scripts are position independent. Absolute patterns are passed through
// untouched.
func collectFiles(dir string, patterns []string) ([]string, error) {
	var files []string
	fsys := os.DirFS(dir)
	for _, pattern := range patterns {
		if filepath.IsAbs(pattern) {
			files = append(files, filepath.ToSlash(filepath.Clean(pattern)))
			continue
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	return files, nil
}
