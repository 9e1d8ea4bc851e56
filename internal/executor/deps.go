package executor

import (
	"github.com/confsync/confsync/internal/dependency"
	"github.com/confsync/confsync/internal/interfaces"
)

// buildUpsertDeps computes prerequisite lists for the create/update items.
// Item j waits on item i when:
//   - j's definition references the resource i creates or updates,
//   - both live in the same module and i's type precedes j's, or i comes
//     earlier in declaration order within the same type,
//   - j's module transitively depends on i's module.
//
// Unrelated items carry no edge and may execute concurrently.
func buildUpsertDeps(plan *interfaces.Plan, graph *dependency.Graph, indices []int) map[int][]int {
	ownerByKey := make(map[interfaces.ResourceKey]int, len(indices))
	for _, i := range indices {
		ownerByKey[plan.Items[i].Key()] = i
	}

	deps := make(map[int][]int, len(indices))
	for _, j := range indices {
		itemJ := &plan.Items[j]
		seen := make(map[int]struct{})

		for _, ref := range itemJ.References {
			if i, ok := ownerByKey[ref]; ok && i != j {
				seen[i] = struct{}{}
			}
		}

		for _, i := range indices {
			if i == j {
				continue
			}
			itemI := &plan.Items[i]
			if itemI.Module == itemJ.Module {
				if itemI.Rank.TypeRank < itemJ.Rank.TypeRank {
					seen[i] = struct{}{}
				} else if itemI.Type == itemJ.Type && itemI.Rank.DeclIndex < itemJ.Rank.DeclIndex {
					seen[i] = struct{}{}
				}
				continue
			}
			if graph.DependsOn(itemJ.Module, itemI.Module) {
				seen[i] = struct{}{}
			}
		}

		list := make([]int, 0, len(seen))
		for i := range seen {
			list = append(list, i)
		}
		deps[j] = list
	}
	return deps
}

// buildDeleteDeps computes prerequisite lists for the delete items. The
// plan already holds deletes in reverse rank order; a delete waits on every
// earlier delete of a later-ranked type (leaf resources go first) and on
// earlier deletes of its own type.
func buildDeleteDeps(plan *interfaces.Plan, indices []int) map[int][]int {
	deps := make(map[int][]int, len(indices))
	for a, j := range indices {
		itemJ := &plan.Items[j]
		var list []int
		for _, i := range indices[:a] {
			itemI := &plan.Items[i]
			if itemI.Rank.TypeRank > itemJ.Rank.TypeRank || itemI.Type == itemJ.Type {
				list = append(list, i)
			}
		}
		deps[j] = list
	}
	return deps
}
