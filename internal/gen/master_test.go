package gen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makegen-build/makegen/internal/project"
)

func TestDefaultArch(t *testing.T) {
	t.Run("64-bit wins regardless of input order", func(t *testing.T) {
		arch, err := DefaultArch([]project.Arch{project.ArchI386, project.ArchAMD64})
		require.NoError(t, err)
		assert.Equal(t, project.ArchAMD64, arch)

		arch, err = DefaultArch([]project.Arch{project.ArchAMD64, project.ArchI386})
		require.NoError(t, err)
		assert.Equal(t, project.ArchAMD64, arch)
	})

	t.Run("first 64-bit candidate among several", func(t *testing.T) {
		arch, err := DefaultArch([]project.Arch{project.ArchARM, project.ArchARM64, project.ArchAMD64})
		require.NoError(t, err)
		assert.Equal(t, project.ArchARM64, arch)
	})

	t.Run("falls back to the first candidate", func(t *testing.T) {
		arch, err := DefaultArch([]project.Arch{project.ArchARM, project.ArchI386})
		require.NoError(t, err)
		assert.Equal(t, project.ArchARM, arch)
	})

	t.Run("no candidates is an error", func(t *testing.T) {
		_, err := DefaultArch(nil)
		require.ErrorIs(t, err, ErrNoArchitectures)
	})

	t.Run("pure function", func(t *testing.T) {
		in := []project.Arch{project.ArchI386, project.ArchARM64}
		first, err := DefaultArch(in)
		require.NoError(t, err)
		again, err := DefaultArch(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
		assert.Equal(t, []project.Arch{project.ArchI386, project.ArchARM64}, in)
	})
}

func TestMasterPath(t *testing.T) {
	assert.Equal(t, "workspace.mak", MasterPath("workspace"))
}

func masterProject(name, dir string, deps ...string) *project.Project {
	return &project.Project{
		Path:      dir + "/Makegen.toml",
		Name:      name,
		OutDir:    dir,
		Archs:     []project.Arch{project.ArchAMD64},
		DependsOn: deps,
	}
}

func TestMasterScript(t *testing.T) {
	g := testGenerator("")

	t.Run("dependencies build first", func(t *testing.T) {
		app := masterProject("app", "app", "libs/core/Makegen.toml")
		core := masterProject("core", "libs/core")

		data, err := g.MasterScript([]*project.Project{app, core})
		require.NoError(t, err)

		want := "#!/usr/bin/make -f\n" +
			"\n" +
			"SETTINGS = ARCH=amd64 CONFIG=Debug\n" +
			"\n" +
			"all:\n" +
			"\tmake -C libs/core -f core.mak $(SETTINGS)\n" +
			"\tmake -C app -f app.mak $(SETTINGS)\n" +
			"\n"
		assert.Equal(t, want, string(data))
	})

	t.Run("workspace root projects use dot", func(t *testing.T) {
		p := masterProject("solo", "")
		data, err := g.MasterScript([]*project.Project{p})
		require.NoError(t, err)
		assert.Contains(t, string(data), "\tmake -C . -f solo.mak $(SETTINGS)\n")
	})

	t.Run("external dependencies are skipped", func(t *testing.T) {
		p := masterProject("app", "app", "system-zlib")
		data, err := g.MasterScript([]*project.Project{p})
		require.NoError(t, err)
		assert.NotContains(t, string(data), "system-zlib")
		assert.Contains(t, string(data), "app.mak")
	})

	t.Run("cycle aborts the whole script", func(t *testing.T) {
		a := masterProject("a", "a", "b/Makegen.toml")
		b := masterProject("b", "b", "a/Makegen.toml")
		data, err := g.MasterScript([]*project.Project{a, b})
		require.Error(t, err)
		assert.Nil(t, data)

		var cycle *CycleError
		require.ErrorAs(t, err, &cycle)
		assert.ElementsMatch(t, []string{"a/Makegen.toml", "b/Makegen.toml"}, cycle.Members)
	})

	t.Run("empty project set still renders", func(t *testing.T) {
		data, err := g.MasterScript(nil)
		require.NoError(t, err)
		assert.Contains(t, string(data), "all:\n")
	})

	t.Run("no configurations", func(t *testing.T) {
		bare := New(Options{Archs: []project.Arch{project.ArchAMD64}})
		_, err := bare.MasterScript(nil)
		require.ErrorIs(t, err, ErrNoConfigurations)
	})

	t.Run("no architectures", func(t *testing.T) {
		bare := New(Options{Configs: []string{"Debug"}})
		_, err := bare.MasterScript(nil)
		require.ErrorIs(t, err, ErrNoArchitectures)
	})
}

func TestCreateMasterFile(t *testing.T) {
	tmp := t.TempDir()
	g := testGenerator(tmp)

	app := masterProject("app", "")
	require.NoError(t, g.CreateMasterFile("workspace", []*project.Project{app}))

	got, err := os.ReadFile(filepath.Join(tmp, "workspace.mak"))
	require.NoError(t, err)
	want, err := g.MasterScript([]*project.Project{app})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
