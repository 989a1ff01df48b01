package gen

import (
	"fmt"
	"slices"
	"strings"
)

// CycleError reports a dependency cycle among the requested projects. A
// partial build order cannot be trusted, so callers must abort master-script
// generation when they see one.
type CycleError struct {
	// Members are the identifiers on the cycle, in traversal order.
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected involving projects: %s",
		strings.Join(e.Members, ", "))
}

// BuildOrder linearizes the dependency mapping: every key of deps appears in
// the result exactly once, after all of its transitively reachable
// dependencies that are themselves keys. Dependency identifiers that are not
// keys were not requested for generation and are skipped without error.
//
// The order is deterministic: roots and sibling dependencies are both
// visited in ascending identifier order, so mutually independent projects
// end up sorted lexicographically.
//
// A cycle, including a project depending on itself, yields a *CycleError
// naming the identifiers on the cycle.
func BuildOrder(deps map[string][]string) ([]string, error) {
	ids := make([]string, 0, len(deps))
	for id := range deps {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	// Depth-first with three node states: done nodes are fully emitted,
	// active nodes are on the current traversal path, everything else is
	// unvisited. Meeting an active node again means the path closed on
	// itself.
	done := make(map[string]bool, len(deps))
	active := make(map[string]bool, len(deps))
	order := make([]string, 0, len(deps))
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		if done[id] {
			return nil
		}
		if active[id] {
			start := slices.Index(path, id)
			return &CycleError{Members: slices.Clone(path[start:])}
		}
		active[id] = true
		path = append(path, id)

		next := slices.Clone(deps[id])
		slices.Sort(next)
		for _, dep := range next {
			if _, requested := deps[dep]; !requested {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		delete(active, id)
		done[id] = true
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}
