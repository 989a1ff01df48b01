package gen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makegen-build/makegen/internal/project"
)

func appPass() *project.Pass {
	return &project.Pass{
		Config:   "Debug",
		Arch:     project.ArchAMD64,
		Kind:     project.Application,
		Sources:  []string{"src/main.c"},
		BuildDir: "obj",
		Compiler: "gcc",
	}
}

func TestFlagString(t *testing.T) {
	t.Run("fixed category order", func(t *testing.T) {
		pass := appPass()
		pass.CompilerOptions = []string{"-O2", "-g"}
		pass.LinkerOptions = []string{"-s"}
		pass.Defines = []string{"CORE", "NDEBUG"}
		pass.LibDirs = []string{"lib"}
		pass.Libraries = []string{"m", "pthread"}
		pass.IncludeDirs = []string{"include", "vendor/include"}

		assert.Equal(t,
			"-O2 -g -s -D CORE -D NDEBUG -Llib -lm -lpthread -Iinclude -Ivendor/include",
			flagString(pass))
	})

	t.Run("empty categories contribute nothing", func(t *testing.T) {
		pass := appPass()
		pass.Defines = []string{"TESTING"}
		assert.Equal(t, "-D TESTING", flagString(pass))
	})

	t.Run("no flags at all", func(t *testing.T) {
		assert.Equal(t, "", flagString(appPass()))
	})
}

func TestTargetName(t *testing.T) {
	pass := appPass()
	assert.Equal(t, "$(OUTNAME)", targetName(pass))

	pass.OutputFile = "bin/game.elf"
	assert.Equal(t, "bin/game", targetName(pass))
}

func TestTargetRules(t *testing.T) {
	t.Run("application rule shape", func(t *testing.T) {
		rules, err := targetRules(appPass())
		require.NoError(t, err)
		require.Len(t, rules, 1)

		rule := rules[0]
		assert.Equal(t, "$(OUTNAME)", rule.Target)
		assert.Equal(t, []string{"__PREBUILD", "$(OBJECTS)", "__PRELINK"}, rule.Deps)
		require.Len(t, rule.Commands, 2)
		assert.Equal(t, "@echo '$(GREEN)Compiling executable $(OUTNAME)$(NC)'", rule.Commands[0])
		assert.Equal(t, "@$(COMPILER) $(OBJECTS) -o $@", rule.Commands[1])
	})

	t.Run("entry point becomes a linker flag", func(t *testing.T) {
		pass := appPass()
		pass.EntryPoint = "wmain"
		rules, err := targetRules(pass)
		require.NoError(t, err)
		assert.Equal(t, "@$(COMPILER) $(OBJECTS) -Wl,--entry=wmain -o $@", rules[0].Commands[1])
	})

	t.Run("no entry point leaves the flag out", func(t *testing.T) {
		rules, err := targetRules(appPass())
		require.NoError(t, err)
		for _, cmd := range rules[0].Commands {
			assert.NotContains(t, cmd, "--entry")
			assert.NotContains(t, cmd, "  ")
		}
	})

	t.Run("import library adds a dependency and a rule", func(t *testing.T) {
		pass := appPass()
		pass.ImportLibrary = "bin/game.lib"
		rules, err := targetRules(pass)
		require.NoError(t, err)
		require.Len(t, rules, 2)

		assert.Equal(t,
			[]string{"__PREBUILD", "$(OBJECTS)", "__PRELINK", "bin/game.a"},
			rules[0].Deps)

		lib := rules[1]
		assert.Equal(t, "bin/game.a", lib.Target)
		assert.Equal(t, []string{"__PREBUILD", "$(OBJECTS)", "__PRELINK"}, lib.Deps)
		assert.Contains(t, lib.Commands, "@ar rcs $@ $(OBJECTS)")
	})

	t.Run("dynamic library links shared", func(t *testing.T) {
		pass := appPass()
		pass.Kind = project.DynamicLibrary
		rules, err := targetRules(pass)
		require.NoError(t, err)
		require.Len(t, rules, 1)

		rule := rules[0]
		assert.Equal(t, "$(OUTNAME).so", rule.Target)
		assert.Equal(t, "@$(COMPILER) -shared -fPIC $(OBJECTS) -o $@", rule.Commands[1])
	})

	t.Run("dynamic library with an import library", func(t *testing.T) {
		pass := appPass()
		pass.Kind = project.DynamicLibrary
		pass.ImportLibrary = "bin/engine.lib"
		rules, err := targetRules(pass)
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Contains(t, rules[0].Deps, "bin/engine.a")
		assert.Equal(t, "bin/engine.a", rules[1].Target)
	})

	t.Run("static library archives and ignores import library", func(t *testing.T) {
		pass := appPass()
		pass.Kind = project.StaticLibrary
		pass.ImportLibrary = "bin/game.lib"
		pass.EntryPoint = "wmain"
		rules, err := targetRules(pass)
		require.NoError(t, err)
		require.Len(t, rules, 1)

		rule := rules[0]
		assert.Equal(t, "$(OUTNAME).a", rule.Target)
		assert.Equal(t, []string{"__PREBUILD", "$(OBJECTS)", "__PRELINK"}, rule.Deps)
		assert.Contains(t, rule.Commands, "@ar rcs $@ $(OBJECTS)")
		for _, cmd := range rule.Commands {
			assert.NotContains(t, cmd, ".so")
			assert.NotContains(t, cmd, "--entry")
		}
	})

	t.Run("post-build commands run after the recipe", func(t *testing.T) {
		pass := appPass()
		pass.PostBuild = []string{"echo done", "touch stamp"}
		rules, err := targetRules(pass)
		require.NoError(t, err)

		cmds := rules[0].Commands
		require.GreaterOrEqual(t, len(cmds), 4)
		assert.Equal(t, []string{"echo done", "touch stamp"}, cmds[len(cmds)-2:])
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		pass := appPass()
		pass.Kind = project.TargetKind("firmware")
		_, err := targetRules(pass)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown target kind")
	})
}

func TestCleanRule(t *testing.T) {
	rule := cleanRule()
	assert.Equal(t, "clean", rule.Target)
	assert.Empty(t, rule.Deps)
	require.Len(t, rule.Commands, 2)
	assert.Contains(t, rule.Commands[1], "*.o")
	assert.Contains(t, rule.Commands[1], "*.a")
	assert.Contains(t, rule.Commands[1], "*.so")
}

func TestPhonyTargets(t *testing.T) {
	assert.Equal(t,
		[]string{"clean", "__PREBUILD", "__PRELINK", "__POSTBUILD"},
		phonyTargets())
}

func TestHookRules(t *testing.T) {
	t.Run("markers are always declared", func(t *testing.T) {
		rules := hookRules(appPass())
		require.Len(t, rules, 2)
		assert.Equal(t, "__PREBUILD", rules[0].Target)
		assert.Empty(t, rules[0].Commands)
		assert.Equal(t, "__PRELINK", rules[1].Target)
		assert.Empty(t, rules[1].Commands)
	})

	t.Run("configured hooks become recipe lines", func(t *testing.T) {
		pass := appPass()
		pass.PreBuild = []string{"./genversion.sh"}
		pass.PreLink = []string{"echo linking"}
		rules := hookRules(pass)
		assert.Equal(t, []string{"./genversion.sh"}, rules[0].Commands)
		assert.Equal(t, []string{"echo linking"}, rules[1].Commands)
	})
}

func TestJoinFields(t *testing.T) {
	assert.Equal(t, "a b c", joinFields("a", "", "b", "c", ""))
	assert.Equal(t, "", joinFields("", ""))
	assert.False(t, strings.Contains(joinFields("x", "", "y"), "  "))
}
