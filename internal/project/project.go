// Package project holds the resolved description of buildable projects as
// produced by the workspace resolver and consumed by the script generator.
package project

import (
	"fmt"
	"slices"
)

// Arch is a target CPU architecture.
type Arch string

const (
	ArchI386  Arch = "i386"
	ArchAMD64 Arch = "amd64"
	ArchARM   Arch = "arm"
	ArchARM64 Arch = "arm64"
)

// Archs lists every architecture the makefile backend can generate for.
var Archs = []Arch{ArchI386, ArchAMD64, ArchARM, ArchARM64}

func (a Arch) String() string { return string(a) }

// Is64Bit reports whether the architecture has 64-bit pointers.
func (a Arch) Is64Bit() bool {
	return a == ArchAMD64 || a == ArchARM64
}

// ParseArch converts a manifest string into an Arch.
func ParseArch(s string) (Arch, error) {
	a := Arch(s)
	if !slices.Contains(Archs, a) {
		return "", fmt.Errorf("unknown architecture %q (supported: %v)", s, Archs)
	}
	return a, nil
}

// TargetKind is the kind of artifact a project produces.
type TargetKind string

const (
	Application    TargetKind = "application"
	DynamicLibrary TargetKind = "dynamic-library"
	StaticLibrary  TargetKind = "static-library"
)

func (k TargetKind) String() string { return string(k) }

// ParseKind converts a manifest string into a TargetKind.
func ParseKind(s string) (TargetKind, error) {
	switch k := TargetKind(s); k {
	case Application, DynamicLibrary, StaticLibrary:
		return k, nil
	}
	return "", fmt.Errorf("unknown target kind %q (supported: %s, %s, %s)",
		s, Application, DynamicLibrary, StaticLibrary)
}

// Project is one buildable unit. It is constructed once per generation run
// and never mutated during emission.
type Project struct {
	// Path is the workspace-relative path of the project's manifest and the
	// stable identifier used in dependency edges and ordering.
	Path string

	// Name is the human-readable output name; it also names the generated
	// script file.
	Name string

	// OutDir is the workspace-relative directory that receives the generated
	// script, resolved by the workspace layer.
	OutDir string

	// Archs are the architectures the project supports, in manifest order.
	Archs []Arch

	// DependsOn lists the identifiers of projects this one depends on.
	// Identifiers that were not requested for generation are allowed and are
	// skipped during ordering.
	DependsOn []string

	// Passes holds one entry per (configuration, architecture) combination,
	// in requested-configuration-major order.
	Passes []*Pass
}

// Pass is one concrete instantiation of a project's build settings for a
// single configuration name and architecture.
type Pass struct {
	Config string
	Arch   Arch
	Kind   TargetKind

	CompilerOptions []string
	LinkerOptions   []string
	Defines         []string
	IncludeDirs     []string
	LibDirs         []string
	Libraries       []string

	EntryPoint    string
	OutputFile    string
	ImportLibrary string

	// Sources is the ordered compile list; duplicates are preserved as-is.
	Sources []string
	// Files is the ordered full file list, used for header detection.
	Files []string

	BuildDir string
	OutDir   string
	// OutName overrides the project name as the default artifact name.
	OutName string

	PreBuild  []string
	PreLink   []string
	PostBuild []string

	// Compiler is the resolved compiler invocation for this pass.
	Compiler string
}
