package genstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makegen-build/makegen/internal/project"
)

func hashedProject() *project.Project {
	return &project.Project{
		Path:   "app/Makegen.toml",
		Name:   "app",
		OutDir: "app",
		Archs:  []project.Arch{project.ArchAMD64},
		Passes: []*project.Pass{{
			Config:   "Debug",
			Arch:     project.ArchAMD64,
			Kind:     project.Application,
			Sources:  []string{"src/main.c"},
			Defines:  []string{"APP"},
			BuildDir: "obj",
			Compiler: "gcc",
		}},
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file is an empty state", func(t *testing.T) {
		st, err := Load(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, st.Projects)
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, StateFile)
		require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
		require.NoError(t, os.WriteFile(target, []byte("{nope"), 0o644))
		_, err := Load(dir)
		require.Error(t, err)
	})

	t.Run("null projects map is normalized", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, StateFile)
		require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
		require.NoError(t, os.WriteFile(target, []byte(`{"projects": null}`), 0o644))
		st, err := Load(dir)
		require.NoError(t, err)
		require.NotNil(t, st.Projects)
		st.Set("x", "h", "s") // must not panic
	})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	st := New()
	st.Set("app/Makegen.toml", "hash-1", filepath.Join(dir, "app.mak"))
	st.Set("libs/core/Makegen.toml", "hash-2", filepath.Join(dir, "core.mak"))
	require.NoError(t, st.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, st.Projects, loaded.Projects)
}

func TestInputHash(t *testing.T) {
	t.Run("stable for equal descriptions", func(t *testing.T) {
		h1, err := InputHash(hashedProject())
		require.NoError(t, err)
		h2, err := InputHash(hashedProject())
		require.NoError(t, err)
		assert.Equal(t, h1, h2)
		assert.Len(t, h1, 64) // hex sha256
	})

	t.Run("any resolved change moves the hash", func(t *testing.T) {
		base, err := InputHash(hashedProject())
		require.NoError(t, err)

		mutations := map[string]func(*project.Project){
			"define added":     func(p *project.Project) { p.Passes[0].Defines = append(p.Passes[0].Defines, "X") },
			"source added":     func(p *project.Project) { p.Passes[0].Sources = append(p.Passes[0].Sources, "src/x.c") },
			"kind changed":     func(p *project.Project) { p.Passes[0].Kind = project.StaticLibrary },
			"compiler changed": func(p *project.Project) { p.Passes[0].Compiler = "clang" },
			"pass added":       func(p *project.Project) { p.Passes = append(p.Passes, p.Passes[0]) },
			"name changed":     func(p *project.Project) { p.Name = "other" },
		}
		for label, mutate := range mutations {
			p := hashedProject()
			mutate(p)
			h, err := InputHash(p)
			require.NoError(t, err)
			assert.NotEqual(t, base, h, label)
		}
	})
}

func TestFresh(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "app.mak")
	require.NoError(t, os.WriteFile(script, []byte("#!/usr/bin/make -f\n"), 0o644))

	st := New()
	st.Set("app", "hash-1", script)

	t.Run("fresh when hash matches and script exists", func(t *testing.T) {
		assert.True(t, st.Fresh("app", "hash-1"))
	})

	t.Run("stale on hash mismatch", func(t *testing.T) {
		assert.False(t, st.Fresh("app", "hash-2"))
	})

	t.Run("stale when unknown", func(t *testing.T) {
		assert.False(t, st.Fresh("ghost", "hash-1"))
	})

	t.Run("stale after forgetting", func(t *testing.T) {
		st := New()
		st.Set("app", "hash-1", script)
		st.Forget("app")
		assert.False(t, st.Fresh("app", "hash-1"))
	})

	t.Run("stale when the script was deleted", func(t *testing.T) {
		gone := filepath.Join(dir, "gone.mak")
		st.Set("gone", "hash-1", gone)
		assert.False(t, st.Fresh("gone", "hash-1"))
	})
}
