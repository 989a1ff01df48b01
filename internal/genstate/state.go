// Package genstate records what each project's script was generated from,
// letting later runs skip projects whose resolved description is unchanged.
package genstate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/makegen-build/makegen/internal/project"
)

// StateFile holds the generation records, relative to the workspace root.
const StateFile = ".makegen/state.json"

// Record is what one project's script was generated from.
type Record struct {
	// InputHash digests the fully resolved project description.
	InputHash string `json:"input_hash"`
	// Script is the path the script was written to.
	Script string `json:"script"`
}

// State maps project identifiers to their last generation record.
type State struct {
	Projects map[string]Record `json:"projects"`
}

func New() *State {
	return &State{Projects: make(map[string]Record)}
}

// Load reads the state file under dir. A missing file yields an empty state.
func Load(dir string) (*State, error) {
	st := New()
	data, err := os.ReadFile(filepath.Join(dir, StateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, err
	}
	if st.Projects == nil {
		st.Projects = make(map[string]Record)
	}
	return st, nil
}

// Save writes the state file under dir, creating the directory if needed.
func (s *State) Save(dir string) error {
	target := filepath.Join(dir, StateFile)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o644)
}

// InputHash digests the resolved description of a project. Any change to the
// manifest's effect (flags, kinds, hooks), to the glob results (sources,
// headers) or to the pass set changes the hash.
func InputHash(p *project.Project) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Fresh reports whether id's stored record matches hash and the recorded
// script is still on disk. A hand-deleted script counts as stale.
func (s *State) Fresh(id, hash string) bool {
	rec, ok := s.Projects[id]
	if !ok || rec.InputHash != hash {
		return false
	}
	info, err := os.Stat(rec.Script)
	return err == nil && !info.IsDir()
}

// Set stores the generation record for id.
func (s *State) Set(id, hash, script string) {
	s.Projects[id] = Record{InputHash: hash, Script: script}
}

// Forget drops the record for id. Used after a failed generation so the next
// run retries it.
func (s *State) Forget(id string) {
	delete(s.Projects, id)
}
