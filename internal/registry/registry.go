// Package registry mirrors remote member sources. The registry is a git
// repository holding vendored copies of popular members plus a JSON file
// mapping each member source string to its directory in the checkout; a
// cached registry lets the workspace fetcher copy a member instead of
// cloning it.
package registry

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"

	"github.com/makegen-build/makegen/internal/msg"
)

const (
	RegistryFilename = "makegen_registry.json"
	registryRepoURL  = "https://github.com/makegen-build/registry.git"
	registryBranch   = "main"
)

// Registry maps member source strings (as they appear in a workspace
// manifest) to mirror directories relative to basePath.
type Registry struct {
	// on windows: %LocalAppData%/makegen/registry
	// on linux: ~/.cache/makegen/registry
	basePath string
	Mirrors  map[string]string
}

func Parse(rdr io.Reader, basePath string) (*Registry, error) {
	var mirrors map[string]string
	if err := json.NewDecoder(bufio.NewReader(rdr)).Decode(&mirrors); err != nil {
		return nil, err
	}
	return &Registry{Mirrors: mirrors, basePath: basePath}, nil
}

func ParseInPath(basePath string) (*Registry, error) {
	path := filepath.Join(basePath, RegistryFilename)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(bufio.NewReader(f), basePath)
}

func (reg Registry) Save(basePath string) error {
	path := filepath.Join(basePath, RegistryFilename)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bufw := bufio.NewWriter(f)
	defer bufw.Flush()

	enc := json.NewEncoder(bufw)
	enc.SetIndent("", "  ")
	return enc.Encode(reg.Mirrors)
}

// Fetch clones the central registry into basePath, or pulls it when a
// checkout is already there, then parses it.
func Fetch(basePath string) (*Registry, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(basePath, ".git")); os.IsNotExist(err) {
		fmt.Printf("  %s makegen registry\n", color.HiGreenString("Fetching"))
		_, err := git.PlainClone(basePath, &git.CloneOptions{
			URL:           registryRepoURL,
			ReferenceName: plumbing.NewBranchReferenceName(registryBranch),
			SingleBranch:  true,
			Depth:         1,
			Progress:      &msg.IndentWriter{Indent: "    ", W: os.Stdout},
		})
		if err != nil {
			return nil, err
		}
	} else {
		repo, err := git.PlainOpen(basePath)
		if err != nil {
			return nil, err
		}
		w, err := repo.Worktree()
		if err != nil {
			return nil, err
		}
		err = w.Pull(&git.PullOptions{
			RemoteName:    "origin",
			ReferenceName: plumbing.NewBranchReferenceName(registryBranch),
			SingleBranch:  true,
			Depth:         1,
			Progress:      os.Stdout,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil, err
		}
	}

	return ParseInPath(basePath)
}

func LoadOrFetch(basePath string) (*Registry, error) {
	path := filepath.Join(basePath, RegistryFilename)

	if _, err := os.Stat(path); err == nil {
		return ParseInPath(basePath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return Fetch(basePath)
}

// CachePath is where the central registry checkout lives on this machine.
func CachePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "makegen", "registry"), nil
}

// Cached loads the registry from the local cache without touching the
// network. A missing cache yields (nil, nil): callers fall back to a real
// fetch of the member itself.
func Cached() (*Registry, error) {
	basePath, err := CachePath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(basePath, RegistryFilename)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return ParseInPath(basePath)
}

var globalRegistry *Registry

func GetAnyhow() (*Registry, error) {
	if globalRegistry != nil {
		return globalRegistry, nil
	}
	basePath, err := CachePath()
	if err != nil {
		return nil, err
	}
	reg, err := LoadOrFetch(basePath)
	if err != nil {
		return nil, err
	}
	globalRegistry = reg
	return reg, err
}

// Copy copies the mirror of source (if any) to destPath.
func (reg Registry) Copy(destPath, source string) error {
	path, ok := reg.Mirrors[source]
	if !ok {
		return errors.New("source not mirrored in registry")
	}

	fromPath := filepath.Join(reg.basePath, path)
	return os.CopyFS(destPath, os.DirFS(fromPath))
}

func (reg *Registry) SetMirror(source, path string) {
	if reg.Mirrors == nil {
		reg.Mirrors = make(map[string]string)
	}
	reg.Mirrors[source] = path
}

func (reg *Registry) HasMirror(source string) bool {
	_, exists := reg.Mirrors[source]
	return exists
}

func (reg *Registry) RemoveMirror(source string) bool {
	if reg.Mirrors == nil {
		return false
	}
	if _, ok := reg.Mirrors[source]; ok {
		delete(reg.Mirrors, source)
		return true
	}
	return false
}

// Update force-refreshes the cached registry checkout.
func Update() (*Registry, error) {
	basePath, err := CachePath()
	if err != nil {
		return nil, err
	}
	return Fetch(basePath)
}
