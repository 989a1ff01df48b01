package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makegen-build/makegen/internal/project"
)

func TestDeriveObjects(t *testing.T) {
	t.Run("objects land in the build dir with an arch qualifier", func(t *testing.T) {
		pass := appPass()
		pass.BuildDir = "obj/Debug"
		pass.Sources = []string{"src/main.c", "src/util/text.c"}

		objects, err := deriveObjects(pass)
		require.NoError(t, err)
		require.Len(t, objects, 2)
		assert.Equal(t, objectFile{src: "src/main.c", obj: "obj/Debug/main.amd64.o"}, objects[0])
		assert.Equal(t, objectFile{src: "src/util/text.c", obj: "obj/Debug/text.amd64.o"}, objects[1])
	})

	t.Run("qualifier tracks the pass architecture", func(t *testing.T) {
		pass := appPass()
		pass.Arch = project.ArchI386
		objects, err := deriveObjects(pass)
		require.NoError(t, err)
		assert.Equal(t, "obj/main.i386.o", objects[0].obj)
	})

	t.Run("source order is preserved", func(t *testing.T) {
		pass := appPass()
		pass.Sources = []string{"src/z.c", "src/a.c", "src/m.c"}
		objects, err := deriveObjects(pass)
		require.NoError(t, err)
		srcs := make([]string, len(objects))
		for i, o := range objects {
			srcs[i] = o.src
		}
		assert.Equal(t, pass.Sources, srcs)
	})

	t.Run("base name collision is an error naming both sources", func(t *testing.T) {
		pass := appPass()
		pass.Sources = []string{"src/render/init.c", "src/audio/init.c"}
		_, err := deriveObjects(pass)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "src/render/init.c")
		assert.Contains(t, err.Error(), "src/audio/init.c")
		assert.Contains(t, err.Error(), "obj/init.amd64.o")
	})

	t.Run("same base different extension still collides", func(t *testing.T) {
		pass := appPass()
		pass.Sources = []string{"src/app.c", "src/app.cpp"}
		_, err := deriveObjects(pass)
		require.Error(t, err)
	})

	t.Run("no sources yields no objects", func(t *testing.T) {
		pass := appPass()
		pass.Sources = nil
		objects, err := deriveObjects(pass)
		require.NoError(t, err)
		assert.Empty(t, objects)
	})
}

func TestHeaderFiles(t *testing.T) {
	pass := appPass()
	pass.Files = []string{
		"src/main.c",
		"include/app.h",
		"include/detail.hpp",
		"README.md",
		"include/legacy.HXX",
		"src/impl.cc",
	}
	assert.Equal(t,
		[]string{"include/app.h", "include/detail.hpp", "include/legacy.HXX"},
		headerFiles(pass))
}

func TestObjectRules(t *testing.T) {
	objects := []objectFile{
		{src: "src/main.c", obj: "obj/main.amd64.o"},
		{src: "src/game.c", obj: "obj/game.amd64.o"},
	}
	rules := objectRules(objects, "-D TESTING")
	require.Len(t, rules, 2)

	first := rules[0]
	assert.Equal(t, "obj/main.amd64.o", first.Target)
	assert.Equal(t, []string{"src/main.c"}, first.Deps)
	require.Len(t, first.Commands, 2)
	assert.Equal(t, "@echo '$(CYAN)Building object src/main.c$(NC)'", first.Commands[0])
	assert.Equal(t, "@$(COMPILER) -c -fPIC -D TESTING src/main.c -o $@", first.Commands[1])

	t.Run("empty flag string leaves no double space", func(t *testing.T) {
		rules := objectRules(objects[:1], "")
		assert.Equal(t, "@$(COMPILER) -c -fPIC src/main.c -o $@", rules[0].Commands[1])
	})
}
