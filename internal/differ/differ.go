// Package differ computes the minimal change set between the desired
// resource definitions and a remote snapshot, and orders it into a plan.
package differ

import (
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-uuid"

	"github.com/confsync/confsync/internal/dependency"
	"github.com/confsync/confsync/internal/interfaces"
	"github.com/confsync/confsync/internal/resources"
)

// Options tunes classification. The type precedence table and prune set are
// static platform configuration; overrides exist for targets with different
// foreign-key rules, they are never inferred from payload shape.
type Options struct {
	// PruneManaged overrides the registry's prune flag per type.
	PruneManaged map[interfaces.ResourceType]bool
	// TypeRank overrides the registry's precedence table per type.
	TypeRank map[interfaces.ResourceType]int
}

func (o *Options) pruneManaged(t interfaces.ResourceType) bool {
	if o != nil && o.PruneManaged != nil {
		if v, ok := o.PruneManaged[t]; ok {
			return v
		}
	}
	return resources.IsPruneManaged(t)
}

func (o *Options) typeRank(t interfaces.ResourceType) int {
	if o != nil && o.TypeRank != nil {
		if v, ok := o.TypeRank[t]; ok {
			return v
		}
	}
	return resources.Rank(t)
}

// BuildPlan diffs the full desired set against the remote snapshot and
// returns the ordered plan. The snapshot is read-only input; running twice
// against the same inputs yields an identical plan apart from its ID.
func BuildPlan(graph *dependency.Graph, snapshot *interfaces.Snapshot, opts *Options) (*interfaces.Plan, error) {
	if err := validateReferences(graph.Modules); err != nil {
		return nil, err
	}

	planID, err := uuid.GenerateUUID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate plan id: %w", err)
	}

	plan := &interfaces.Plan{ID: planID, CreatedAt: time.Now()}

	desiredKeys := make(map[interfaces.ResourceKey]struct{})
	var upserts []interfaces.ChangeItem

	for i := range graph.Modules {
		mod := &graph.Modules[i]
		moduleRank := graph.Ranks[i]

		for _, def := range mod.Resources {
			desiredKeys[def.Key()] = struct{}{}

			item := interfaces.ChangeItem{
				Type:       def.Type,
				ExternalID: def.ExternalID,
				Module:     mod.Name,
				Desired:    def.Fields,
				References: def.References,
				Rank: interfaces.OrderingRank{
					ModuleRank: moduleRank,
					TypeRank:   opts.typeRank(def.Type),
					DeclIndex:  def.DeclIndex,
				},
			}

			remote, found := snapshot.Lookup(def.Key())
			switch {
			case !found:
				item.Action = interfaces.ActionCreate
			case fieldsEqual(def.Fields, remote.Fields, resources.ServerManagedFields(def.Type)):
				item.Action = interfaces.ActionNoOp
				item.Remote = remote.Fields
			default:
				item.Action = interfaces.ActionUpdate
				item.Remote = remote.Fields
			}
			upserts = append(upserts, item)
		}
	}

	deletes, orphans := classifyUnmanaged(graph, snapshot, desiredKeys, opts)

	// Creates, updates and no-ops run in rank order; deletes run last, in
	// reverse rank order, so leaf resources go before what they depend on.
	sort.SliceStable(upserts, func(i, j int) bool { return upserts[i].Rank.Less(upserts[j].Rank) })
	sort.SliceStable(deletes, func(i, j int) bool { return deletes[j].Rank.Less(deletes[i].Rank) })

	plan.Items = append(upserts, deletes...)
	plan.Orphans = orphans
	return plan, nil
}

// classifyUnmanaged walks remote records absent from the desired set. Prune
// managed types produce deletes; everything else is reported orphaned and
// left untouched.
func classifyUnmanaged(
	graph *dependency.Graph,
	snapshot *interfaces.Snapshot,
	desiredKeys map[interfaces.ResourceKey]struct{},
	opts *Options,
) ([]interfaces.ChangeItem, []interfaces.ResourceKey) {
	var deletes []interfaces.ChangeItem
	var orphans []interfaces.ResourceKey

	// Registry order then sorted identifiers keep the diff deterministic.
	for _, spec := range resources.All() {
		byID, ok := snapshot.Records[spec.Type]
		if !ok {
			continue
		}
		ids := make([]string, 0, len(byID))
		for id := range byID {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for i, id := range ids {
			key := interfaces.MakeResourceKey(spec.Type, id)
			if _, managed := desiredKeys[key]; managed {
				continue
			}
			if !opts.pruneManaged(spec.Type) {
				orphans = append(orphans, key)
				continue
			}
			deletes = append(deletes, interfaces.ChangeItem{
				Action:     interfaces.ActionDelete,
				Type:       spec.Type,
				ExternalID: id,
				Remote:     byID[id].Fields,
				Rank: interfaces.OrderingRank{
					// Deletes have no owning module; they rank after
					// every module.
					ModuleRank: len(graph.Modules),
					TypeRank:   opts.typeRank(spec.Type),
					DeclIndex:  i,
				},
			})
		}
	}
	return deletes, orphans
}
