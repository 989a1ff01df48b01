package gen

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/makegen-build/makegen/internal/project"
)

// headerExts classifies pass files that are headers rather than compiled
// sources.
var headerExts = map[string]bool{
	".h":   true,
	".hh":  true,
	".hpp": true,
	".h++": true,
	".hxx": true,
}

// objectFile pairs one source file with the object derived from it.
type objectFile struct {
	src string
	obj string
}

// deriveObjects maps every source of the pass to <build dir>/<base>.<arch>.o.
// The architecture qualifier keeps objects of different architectures from
// clobbering each other inside a shared build directory. Two sources whose
// base names collide would silently overwrite one compile rule with the
// other, so that is reported as an error instead.
func deriveObjects(pass *project.Pass) ([]objectFile, error) {
	objects := make([]objectFile, 0, len(pass.Sources))
	seen := make(map[string]string, len(pass.Sources))
	buildDir := filepath.ToSlash(pass.BuildDir)
	for _, src := range pass.Sources {
		base := strings.TrimSuffix(path.Base(src), path.Ext(src))
		obj := path.Join(buildDir, base+"."+string(pass.Arch)+".o")
		if prev, ok := seen[obj]; ok {
			return nil, fmt.Errorf("sources %s and %s both derive object %s", prev, src, obj)
		}
		seen[obj] = src
		objects = append(objects, objectFile{src: src, obj: obj})
	}
	return objects, nil
}

// headerFiles returns the pass files carrying a header extension, in input
// order.
func headerFiles(pass *project.Pass) []string {
	var headers []string
	for _, f := range pass.Files {
		if headerExts[strings.ToLower(path.Ext(f))] {
			headers = append(headers, f)
		}
	}
	return headers
}

// objectRules builds the compile rule for every object: the object depends
// on its source alone and is produced by the pass compiler with the shared
// flag string.
func objectRules(objects []objectFile, flags string) []Rule {
	rules := make([]Rule, 0, len(objects))
	for _, o := range objects {
		rules = append(rules, Rule{
			Target: o.obj,
			Deps:   []string{o.src},
			Commands: []string{
				"@echo '$(CYAN)Building object " + o.src + "$(NC)'",
				joinFields("@$(COMPILER) -c -fPIC", flags, o.src, "-o $@"),
			},
		})
	}
	return rules
}
