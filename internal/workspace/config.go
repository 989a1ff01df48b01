package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/pelletier/go-toml/v2"

	"github.com/makegen-build/makegen/internal/project"
)

// WorkspaceSection is the [workspace] table of a workspace manifest.
type WorkspaceSection struct {
	Name           string   `toml:"name"`
	Configurations []string `toml:"configurations"`
	Architectures  []string `toml:"architectures"`
}

// WorkspaceConfig is a parsed workspace manifest. Projects maps member names
// to their source: a directory relative to the workspace root, or a remote
// source handled by fetchMember.
type WorkspaceConfig struct {
	Workspace WorkspaceSection
	Projects  map[string]string
}

// ProjectSection is the [project] table of a project manifest.
type ProjectSection struct {
	Name          string   `toml:"name"`
	Kind          string   `toml:"kind"`
	Depends       []string `toml:"depends"`
	Architectures []string `toml:"architectures"`
}

// TargetSection is the [target] table of a project manifest. Sub-tables
// whose key parses as a boolean expression are applied only when the
// expression holds for the pass being resolved, e.g.
//
//	[target.'config == "Debug"']
//	defines = ["DEBUG"]
type TargetSection struct {
	Sources         []string `toml:"sources"`
	Files           []string `toml:"files"`
	Defines         []string `toml:"defines"`
	IncludeDirs     []string `toml:"include-dirs"`
	LibDirs         []string `toml:"lib-dirs"`
	Libraries       []string `toml:"libraries"`
	CompilerOptions []string `toml:"compiler-options"`
	LinkerOptions   []string `toml:"linker-options"`
	EntryPoint      string   `toml:"entry-point"`
	OutputFile      string   `toml:"output-file"`
	OutputName      string   `toml:"output-name"`
	ImportLibrary   string   `toml:"import-library"`
	BuildDir        string   `toml:"build-dir"`
	OutDir          string   `toml:"out-dir"`
	Compiler        string   `toml:"compiler"`
	PreBuild        []string `toml:"pre-build"`
	PreLink         []string `toml:"pre-link"`
	PostBuild       []string `toml:"post-build"`
}

// ProjectConfig is a parsed project manifest, resolved for one pass
// environment.
type ProjectConfig struct {
	Project ProjectSection
	Target  TargetSection
}

// Env is the environment visible to manifest conditionals and {{ ... }}
// interpolations.
type Env struct {
	Config  string            `expr:"config"`
	Arch    string            `expr:"arch"`
	HostOS  string            `expr:"host_os"`
	Environ map[string]string `expr:"environ"`

	basedir string
}

// NewEnv builds the expression environment for one pass. Outside a pass
// (workspace manifests, project-level fields) config and arch are empty.
func NewEnv(basedir, config string, arch project.Arch) Env {
	environ := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.Index(kv, "="); i > 0 {
			environ[kv[:i]] = kv[i+1:]
		}
	}
	return Env{
		Config:  config,
		Arch:    string(arch),
		HostOS:  runtime.GOOS,
		Environ: environ,
		basedir: basedir,
	}
}

// ReadFile exposes file contents to manifest expressions, e.g. a VERSION
// file interpolated into a define. Paths are confined to the manifest's
// directory.
func (env Env) ReadFile(name string) (string, error) {
	full := filepath.Join(env.basedir, filepath.FromSlash(name))
	rel, err := filepath.Rel(env.basedir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the manifest directory", name)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

var exprRegex = regexp.MustCompile(`\{\{(.*?)\}\}`)

// evaluateString substitutes every {{ expr }} occurrence in s with the
// expression's result. The first failing expression aborts the whole string.
func evaluateString(s string, env Env) (string, error) {
	var firstErr error
	result := exprRegex.ReplaceAllStringFunc(s, func(match string) string {
		code := exprRegex.FindStringSubmatch(match)[1]
		prog, err := expr.Compile(code, expr.Env(env))
		if err == nil {
			var out any
			if out, err = expr.Run(prog, env); err == nil {
				return fmt.Sprint(out)
			}
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("expression %q: %w", strings.TrimSpace(code), err)
		}
		return match
	})
	return result, firstErr
}

// processExpressions walks a decoded manifest and interpolates every string
// value in place.
func processExpressions(value any, env Env) (any, error) {
	switch v := value.(type) {
	case string:
		return evaluateString(v, env)
	case map[string]any:
		for key, val := range v {
			processed, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processed
		}
		return v, nil
	case []any:
		for i, val := range v {
			processed, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[i] = processed
		}
		return v, nil
	default:
		return value, nil
	}
}

func mustMarshal(v any) []byte {
	data, err := toml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// unmarshalSection decodes one named table of the manifest into dst. A
// missing table leaves dst untouched.
func unmarshalSection(rawCfg map[string]any, name string, dst any) error {
	section, ok := rawCfg[name]
	if !ok {
		return nil
	}
	if err := toml.Unmarshal(mustMarshal(section), dst); err != nil {
		return fmt.Errorf("section [%s]: %w", name, err)
	}
	return nil
}

// unmarshalConditionalSection decodes a named table whose sub-tables may be
// keyed by boolean expressions. Plain keys form the base section; each
// conditional sub-table that evaluates true for env is merged on top, in
// lexical key order so the result does not depend on map iteration.
func unmarshalConditionalSection[T any](rawCfg map[string]any, name string, dst *T, env Env) error {
	rawSection, ok := rawCfg[name]
	if !ok {
		return nil
	}
	sectionMap, ok := rawSection.(map[string]any)
	if !ok {
		return fmt.Errorf("section [%s]: expected a table", name)
	}

	base := make(map[string]any)
	conditional := make(map[string]map[string]any)
	for key, val := range sectionMap {
		valMap, isMap := val.(map[string]any)
		if !isMap {
			base[key] = val
			continue
		}
		if _, err := expr.Compile(key, expr.Env(env), expr.AsBool()); err != nil {
			base[key] = val
			continue
		}
		conditional[key] = valMap
	}

	if err := toml.Unmarshal(mustMarshal(base), dst); err != nil {
		return fmt.Errorf("section [%s]: %w", name, err)
	}

	keys := make([]string, 0, len(conditional))
	for key := range conditional {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		prog, err := expr.Compile(key, expr.Env(env), expr.AsBool())
		if err != nil {
			return fmt.Errorf("section [%s.'%s']: %w", name, key, err)
		}
		out, err := expr.Run(prog, env)
		if err != nil {
			return fmt.Errorf("section [%s.'%s']: %w", name, key, err)
		}
		if out != true {
			continue
		}
		var section T
		if err := toml.Unmarshal(mustMarshal(conditional[key]), &section); err != nil {
			return fmt.Errorf("section [%s.'%s']: %w", name, key, err)
		}
		if err := mergeStructs(dst, section); err != nil {
			return fmt.Errorf("section [%s.'%s']: %w", name, key, err)
		}
	}
	return nil
}

// mergeStructs merges src into dst field by field: slices append, maps
// overlay, booleans or together, anything else is replaced when src is
// non-zero.
func mergeStructs[T any](dst *T, src T) error {
	dstVal := reflect.ValueOf(dst).Elem()
	srcVal := reflect.ValueOf(src)
	if dstVal.Kind() != reflect.Struct {
		return errors.New("mergeStructs: dst must point to a struct")
	}
	for i := 0; i < dstVal.NumField(); i++ {
		dstField := dstVal.Field(i)
		srcField := srcVal.Field(i)
		if !dstField.CanSet() {
			continue
		}
		switch dstField.Kind() {
		case reflect.Slice:
			dstField.Set(reflect.AppendSlice(dstField, srcField))
		case reflect.Map:
			if srcField.Len() == 0 {
				continue
			}
			if dstField.IsNil() {
				dstField.Set(reflect.MakeMap(dstField.Type()))
			}
			for _, key := range srcField.MapKeys() {
				dstField.SetMapIndex(key, srcField.MapIndex(key))
			}
		case reflect.Bool:
			if srcField.Bool() {
				dstField.SetBool(true)
			}
		default:
			if !srcField.IsZero() {
				dstField.Set(srcField)
			}
		}
	}
	return nil
}

func decodeManifest(rdr io.Reader, env Env) (map[string]any, error) {
	raw := make(map[string]any)
	if err := toml.NewDecoder(rdr).Decode(&raw); err != nil {
		return nil, err
	}
	processed, err := processExpressions(raw, env)
	if err != nil {
		return nil, err
	}
	return processed.(map[string]any), nil
}

// ParseWorkspace reads a workspace manifest.
func ParseWorkspace(rdr io.Reader, env Env) (*WorkspaceConfig, error) {
	rawCfg, err := decodeManifest(rdr, env)
	if err != nil {
		return nil, err
	}
	cfg := &WorkspaceConfig{Projects: make(map[string]string)}
	if err := unmarshalSection(rawCfg, "workspace", &cfg.Workspace); err != nil {
		return nil, err
	}
	if raw, ok := rawCfg["projects"]; ok {
		members, ok := raw.(map[string]any)
		if !ok {
			return nil, errors.New("section [projects]: expected a table")
		}
		for name, val := range members {
			source, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("projects.%s: member source must be a string", name)
			}
			cfg.Projects[name] = source
		}
	}
	return cfg, nil
}

// ParseProject reads a project manifest, applying the [target] conditionals
// that hold for env.
func ParseProject(rdr io.Reader, env Env) (*ProjectConfig, error) {
	rawCfg, err := decodeManifest(rdr, env)
	if err != nil {
		return nil, err
	}
	cfg := &ProjectConfig{}
	if err := unmarshalSection(rawCfg, "project", &cfg.Project); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawCfg, "target", &cfg.Target, env); err != nil {
		return nil, err
	}
	return cfg, nil
}

// wrapManifestError prefixes err with the manifest path, keeping go-toml's
// row and column when the failure is a decode error.
func wrapManifestError(path string, err error) error {
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		row, col := derr.Position()
		return fmt.Errorf("%s:%d:%d: %s", path, row, col, derr.Error())
	}
	return fmt.Errorf("%s: %w", path, err)
}

// ParseWorkspaceFile reads the workspace manifest at path.
func ParseWorkspaceFile(path string, env Env) (*WorkspaceConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := ParseWorkspace(f, env)
	if err != nil {
		return nil, wrapManifestError(path, err)
	}
	return cfg, nil
}

// ParseProjectFile reads the project manifest at path.
func ParseProjectFile(path string, env Env) (*ProjectConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := ParseProject(f, env)
	if err != nil {
		return nil, wrapManifestError(path, err)
	}
	return cfg, nil
}
