package workspace

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var (
	commonCCompilers   = []string{"cc", "clang", "gcc", "icx", "icc", "tcc"}
	commonCxxCompilers = []string{"c++", "clang++", "g++", "clang", "gcc", "icpx", "icx", "icpc", "icc"}
)

var cxxSourceExts = map[string]bool{
	".cpp":  true,
	".cc":   true,
	".cxx":  true,
	".c++":  true,
	".cppm": true,
	".ixx":  true,
}

// isCxx reports whether a source path looks like C++.
func isCxx(path string) bool {
	return cxxSourceExts[strings.ToLower(filepath.Ext(path))]
}

// findCompiler looks for a usable compiler: the CC/CXX environment override
// first, then the common compilers in preference order.
func findCompiler(needCxx bool) string {
	envVar, candidates := "CC", commonCCompilers
	if needCxx {
		envVar, candidates = "CXX", commonCxxCompilers
	}
	if cc := os.Getenv(envVar); cc != "" {
		return cc
	}
	for _, cc := range candidates {
		if _, err := exec.LookPath(cc); err == nil {
			return cc
		}
	}
	return ""
}

// resolveCompiler picks the compiler recorded in a pass: the manifest's
// explicit choice if any, else whatever findCompiler turns up for the
// pass's source language, else the POSIX default names.
func resolveCompiler(explicit string, sources []string) string {
	if explicit != "" {
		return explicit
	}
	needCxx := false
	for _, src := range sources {
		if isCxx(src) {
			needCxx = true
			break
		}
	}
	if cc := findCompiler(needCxx); cc != "" {
		return cc
	}
	if needCxx {
		return "c++"
	}
	return "cc"
}
