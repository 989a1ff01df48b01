package gen

import (
	"strings"

	"github.com/makegen-build/makegen/internal/project"
)

func write(sb *strings.Builder, s ...string) {
	for _, v := range s {
		sb.WriteString(v)
	}
}

func writeln(sb *strings.Builder, s ...string) {
	write(sb, s...)
	sb.WriteString("\n")
}

// Variable is one make variable assignment. Multiple values are joined with
// tab-backslash continuations so long file lists stay readable.
type Variable struct {
	Name   string
	Values []string
}

func (v Variable) writeTo(sb *strings.Builder) {
	writeln(sb, v.Name, " = ", strings.Join(v.Values, "\t\\\n\t"))
}

// Rule is one make rule: a target, its prerequisites and its recipe lines.
type Rule struct {
	Target   string
	Deps     []string
	Commands []string
}

func (r Rule) writeTo(sb *strings.Builder) {
	write(sb, r.Target, ":")
	for _, dep := range r.Deps {
		write(sb, " ", dep)
	}
	writeln(sb)
	for _, cmd := range r.Commands {
		writeln(sb, "\t", cmd)
	}
}

// Fragment is the structured form of one configuration pass of a project
// script. All content is held as variables and rules until serialization, so
// callers and tests can inspect passes without parsing make syntax.
type Fragment struct {
	Config string
	Arch   project.Arch

	// BinDir and BuildDir are created with $(shell mkdir -p ...) when the
	// fragment is selected. Empty values emit nothing.
	BinDir   string
	BuildDir string

	Sources Variable
	Objects Variable
	OutName Variable

	// Targets holds the primary rule and, when an import library is
	// configured, the archive rule producing it.
	Targets []Rule
	Clean   Rule
	Phony   []string

	// ObjectRules carries one compile rule per object, in source order.
	ObjectRules []Rule
	// Hooks holds the pre-build and pre-link marker rules. Both are always
	// declared so rules depending on the markers stay valid.
	Hooks []Rule

	// Headers are the pass files with a header extension. They participate
	// in staleness hashing but are not prerequisites of any object rule.
	Headers []string
}

// writeTo appends the fragment wrapped in its configuration and architecture
// guards. The output depends only on the fragment's contents.
func (f *Fragment) writeTo(sb *strings.Builder) {
	writeln(sb)
	writeln(sb, "ifeq (", f.Config, ",$(CONFIG))")
	writeln(sb, "ifeq (", string(f.Arch), ",$(ARCH))")

	if f.BinDir != "" {
		writeln(sb)
		writeln(sb, "# CREATE BIN DIR")
		writeln(sb, "$(shell mkdir -p ", f.BinDir, ")")
	}
	if f.BuildDir != "" {
		writeln(sb)
		writeln(sb, "# CREATE BUILD DIR")
		writeln(sb, "$(shell mkdir -p ", f.BuildDir, ")")
	}

	writeln(sb)
	writeln(sb, "# SOURCE FILES:")
	writeln(sb)
	f.Sources.writeTo(sb)

	writeln(sb)
	writeln(sb, "# OBJECTS:")
	writeln(sb)
	f.Objects.writeTo(sb)

	writeln(sb)
	writeln(sb, "# MACROS:")
	writeln(sb)
	f.OutName.writeTo(sb)

	writeln(sb)
	writeln(sb, "# TARGETS")
	for i := range f.Targets {
		writeln(sb)
		f.Targets[i].writeTo(sb)
	}

	writeln(sb)
	writeln(sb, "# CLEAN TARGET:")
	writeln(sb)
	f.Clean.writeTo(sb)
	writeln(sb)
	writeln(sb, ".PHONY: ", strings.Join(f.Phony, " "))

	writeln(sb)
	writeln(sb, "# DEPENDENCY TREE:")
	for i := range f.ObjectRules {
		writeln(sb)
		f.ObjectRules[i].writeTo(sb)
	}

	for i := range f.Hooks {
		writeln(sb)
		f.Hooks[i].writeTo(sb)
	}

	writeln(sb)
	writeln(sb, "endif")
	writeln(sb, "endif")
}
