package differ

import (
	"strings"

	"github.com/confsync/confsync/internal/interfaces"
)

// ReferenceCycleError reports desired resources whose cross-references form
// a cycle, such as two views each implementing the other. No valid apply
// order exists for them.
type ReferenceCycleError struct {
	Path []interfaces.ResourceKey
}

// Error implements the error interface.
func (e *ReferenceCycleError) Error() string {
	parts := make([]string, 0, len(e.Path))
	for _, key := range e.Path {
		parts = append(parts, key.String())
	}
	return "cyclic resource reference: " + strings.Join(parts, " -> ")
}

// validateReferences checks the desired set for reference cycles between
// resources. References to keys outside the desired set are ignored; they
// point at pre-existing remote resources and impose no ordering.
func validateReferences(modules []interfaces.Module) error {
	defs := make(map[interfaces.ResourceKey]*interfaces.ResourceDefinition)
	var keys []interfaces.ResourceKey
	for i := range modules {
		for j := range modules[i].Resources {
			def := &modules[i].Resources[j]
			defs[def.Key()] = def
			keys = append(keys, def.Key())
		}
	}

	const (
		white = iota // unvisited
		gray         // on the active stack
		black        // done
	)
	color := make(map[interfaces.ResourceKey]int, len(defs))

	var dfs func(key interfaces.ResourceKey, path []interfaces.ResourceKey) error
	dfs = func(key interfaces.ResourceKey, path []interfaces.ResourceKey) error {
		if color[key] == gray {
			start := 0
			for i, k := range path {
				if k == key {
					start = i
					break
				}
			}
			cycle := append([]interfaces.ResourceKey{}, path[start:]...)
			cycle = append(cycle, key)
			return &ReferenceCycleError{Path: cycle}
		}
		if color[key] == black {
			return nil
		}

		color[key] = gray
		path = append(path, key)
		for _, ref := range defs[key].References {
			if _, desired := defs[ref]; !desired {
				continue
			}
			if err := dfs(ref, path); err != nil {
				return err
			}
		}
		color[key] = black
		return nil
	}

	for _, key := range keys {
		if color[key] == white {
			if err := dfs(key, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
