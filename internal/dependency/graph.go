// Package dependency builds the module dependency graph and assigns
// deterministic deploy ranks.
package dependency

import (
	"fmt"
	"sort"
	"strings"

	"github.com/confsync/confsync/internal/interfaces"
)

// Graph is the directed acyclic graph of modules. Nodes are module indices
// into Modules; edges point from a module to the modules it must deploy
// after ("depends on"). Indices rather than pointers keep iteration order
// deterministic and cycle detection cheap.
type Graph struct {
	Modules []interfaces.Module
	// Edges[i] holds the indices module i depends on, sorted.
	Edges [][]int
	// Ranks[i] is the deploy rank of module i: every dependency of a
	// module has a strictly smaller rank, and independent modules keep
	// their declaration order.
	Ranks []int

	indexByName map[string]int
}

// CycleError reports a dependency cycle between modules. Fatal: no partial
// plan is produced.
type CycleError struct {
	// Path is the full cycle, first module repeated at the end.
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic module dependency: %s", strings.Join(e.Path, " -> "))
}

// UnknownModuleError reports an explicit dependency on a module that does
// not exist in the source listing.
type UnknownModuleError struct {
	Module    string
	DependsOn string
}

// Error implements the error interface.
func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("module %q depends on unknown module %q", e.Module, e.DependsOn)
}

// DuplicateModuleError reports two modules sharing one name. Names are the
// graph's identity; a collision would silently cross-link edges.
type DuplicateModuleError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("duplicate module name %q", e.Name)
}

// OwnershipConflictError reports one resource key declared by two modules.
// Applying such a set would create the same remote resource twice, with the
// second create failing on a conflict.
type OwnershipConflictError struct {
	Key     interfaces.ResourceKey
	Modules [2]string
}

// Error implements the error interface.
func (e *OwnershipConflictError) Error() string {
	return fmt.Sprintf("resource %s declared by both module %q and module %q",
		e.Key, e.Modules[0], e.Modules[1])
}

// Build constructs the dependency graph for the loaded modules. Explicit
// edges come from each module's declared dependency list; implicit edges
// are discovered from resource cross-references that resolve to another
// module's resources. The graph is validated acyclic before ranks are
// assigned.
func Build(modules []interfaces.Module) (*Graph, error) {
	g := &Graph{
		Modules:     modules,
		Edges:       make([][]int, len(modules)),
		indexByName: make(map[string]int, len(modules)),
	}
	for i, mod := range modules {
		if _, exists := g.indexByName[mod.Name]; exists {
			return nil, &DuplicateModuleError{Name: mod.Name}
		}
		g.indexByName[mod.Name] = i
	}

	// Ownership index for implicit edge discovery. Every key has exactly
	// one owning module; in-module duplicates are the loader's concern.
	ownerByKey := make(map[interfaces.ResourceKey]int)
	for i, mod := range modules {
		for _, res := range mod.Resources {
			if j, exists := ownerByKey[res.Key()]; exists && j != i {
				return nil, &OwnershipConflictError{
					Key:     res.Key(),
					Modules: [2]string{modules[j].Name, mod.Name},
				}
			}
			ownerByKey[res.Key()] = i
		}
	}

	for i, mod := range modules {
		edges := make(map[int]struct{})

		for _, dep := range mod.DependsOn {
			j, ok := g.indexByName[dep]
			if !ok {
				return nil, &UnknownModuleError{Module: mod.Name, DependsOn: dep}
			}
			if j != i {
				edges[j] = struct{}{}
			}
		}

		// References resolving to a resource owned by a different module
		// add an implicit edge. References to resources outside the
		// desired set are left alone: they may legitimately point at
		// pre-existing remote resources.
		for _, res := range mod.Resources {
			for _, ref := range res.References {
				if j, ok := ownerByKey[ref]; ok && j != i {
					edges[j] = struct{}{}
				}
			}
		}

		sorted := make([]int, 0, len(edges))
		for j := range edges {
			sorted = append(sorted, j)
		}
		sort.Ints(sorted)
		g.Edges[i] = sorted
	}

	if err := g.validateNoCycles(); err != nil {
		return nil, err
	}
	g.assignRanks()

	return g, nil
}

// validateNoCycles runs a white/gray/black DFS and reports the full cycle
// path on failure.
func (g *Graph) validateNoCycles() error {
	const (
		white = iota // unvisited
		gray         // on the active stack
		black        // done
	)
	color := make([]int, len(g.Modules))

	var dfs func(node int, path []int) error
	dfs = func(node int, path []int) error {
		if color[node] == gray {
			// Repeated node on the active stack: cut the path down to
			// the cycle and close it.
			start := 0
			for i, n := range path {
				if n == node {
					start = i
					break
				}
			}
			names := make([]string, 0, len(path)-start+1)
			for _, n := range path[start:] {
				names = append(names, g.Modules[n].Name)
			}
			names = append(names, g.Modules[node].Name)
			return &CycleError{Path: names}
		}
		if color[node] == black {
			return nil
		}

		color[node] = gray
		path = append(path, node)
		for _, dep := range g.Edges[node] {
			if err := dfs(dep, path); err != nil {
				return err
			}
		}
		color[node] = black
		return nil
	}

	for node := range g.Modules {
		if color[node] == white {
			if err := dfs(node, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// assignRanks performs a Kahn-style topological sort. Among modules whose
// dependencies are all satisfied, the one declared first is ranked next, so
// ties between independent modules are broken deterministically.
func (g *Graph) assignRanks() {
	n := len(g.Modules)
	g.Ranks = make([]int, n)

	remaining := make([]int, n) // unsatisfied dependency count
	dependents := make([][]int, n)
	for i, deps := range g.Edges {
		remaining[i] = len(deps)
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], i)
		}
	}

	assigned := make([]bool, n)
	for rank := 0; rank < n; rank++ {
		next := -1
		for i := 0; i < n; i++ {
			if !assigned[i] && remaining[i] == 0 {
				next = i
				break
			}
		}
		// validateNoCycles ran first, so a ready module always exists.
		g.Ranks[next] = rank
		assigned[next] = true
		for _, dep := range dependents[next] {
			remaining[dep]--
		}
	}
}

// RankOf returns the deploy rank for a module name. Unknown names rank
// after every module.
func (g *Graph) RankOf(name string) (int, bool) {
	i, ok := g.indexByName[name]
	if !ok {
		return len(g.Modules), false
	}
	return g.Ranks[i], true
}

// DependsOn reports whether module a transitively depends on module b.
func (g *Graph) DependsOn(a, b string) bool {
	ai, ok := g.indexByName[a]
	if !ok {
		return false
	}
	bi, ok := g.indexByName[b]
	if !ok {
		return false
	}
	if ai == bi {
		return false
	}
	seen := make([]bool, len(g.Modules))
	stack := append([]int(nil), g.Edges[ai]...)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == bi {
			return true
		}
		if seen[node] {
			continue
		}
		seen[node] = true
		stack = append(stack, g.Edges[node]...)
	}
	return false
}

// Order returns the module names in deploy order.
func (g *Graph) Order() []string {
	names := make([]string, len(g.Modules))
	for i, mod := range g.Modules {
		names[g.Ranks[i]] = mod.Name
	}
	return names
}
