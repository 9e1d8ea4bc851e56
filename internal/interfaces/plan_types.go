package interfaces

import "time"

// ChangeAction represents the kind of mutation planned for one resource.
type ChangeAction string

// ChangeAction constants represent the planned operations.
const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
	ActionNoOp   ChangeAction = "no-op"
)

// OrderingRank positions a change item in the plan. Items compare first by
// module deploy rank, then by the resource-type precedence table, then by
// declaration order.
type OrderingRank struct {
	ModuleRank int `json:"module_rank"`
	TypeRank   int `json:"type_rank"`
	DeclIndex  int `json:"decl_index"`
}

// Less reports whether r orders strictly before other.
func (r OrderingRank) Less(other OrderingRank) bool {
	if r.ModuleRank != other.ModuleRank {
		return r.ModuleRank < other.ModuleRank
	}
	if r.TypeRank != other.TypeRank {
		return r.TypeRank < other.TypeRank
	}
	return r.DeclIndex < other.DeclIndex
}

// ChangeItem is one planned mutation against a single resource.
type ChangeItem struct {
	Action     ChangeAction `json:"action"`
	Type       ResourceType `json:"type"`
	ExternalID string       `json:"external_id"`
	// Module is the owning module name. Empty for prune deletes, whose
	// resources exist only remotely.
	Module string `json:"module,omitempty"`
	// Desired is the payload for creates and updates.
	Desired map[string]interface{} `json:"desired,omitempty"`
	// Remote is the last-known remote payload for updates and deletes.
	Remote map[string]interface{} `json:"remote,omitempty"`
	// References are the desired resource's extracted cross-references.
	References []ResourceKey `json:"references,omitempty"`
	Rank       OrderingRank  `json:"rank"`
}

// Key returns the resource key the item targets.
func (c *ChangeItem) Key() ResourceKey {
	return MakeResourceKey(c.Type, c.ExternalID)
}

// Plan is the fully ordered, validated sequence of change items for one run.
// It is immutable once produced; outcomes are recorded in a separate Report.
type Plan struct {
	ID string `json:"id"`
	// Items holds creates, updates and no-ops in rank order followed by
	// deletes in reverse rank order.
	Items []ChangeItem `json:"items"`
	// Orphans are remote resources of non-prune-managed types that are
	// absent from the desired set. They are reported, never touched.
	Orphans   []ResourceKey `json:"orphans,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// ItemStatus is the final outcome of one executed change item.
type ItemStatus string

// ItemStatus constants represent per-item outcomes.
const (
	// StatusPlanned is the projected outcome of a mutating item in dry-run
	// mode.
	StatusPlanned ItemStatus = "planned"
	StatusApplied ItemStatus = "applied"
	StatusFailed  ItemStatus = "failed"
	// StatusSkippedUpstream marks items whose prerequisite failed.
	StatusSkippedUpstream ItemStatus = "skipped-upstream"
	// StatusSkippedCancelled marks items undispatched when the run was
	// cancelled.
	StatusSkippedCancelled ItemStatus = "skipped-cancelled"
	StatusNoOp             ItemStatus = "no-op"
)

// ItemResult records the outcome of one change item. Written exactly once,
// by the worker that executed the item.
type ItemResult struct {
	Item     ChangeItem `json:"item"`
	Status   ItemStatus `json:"status"`
	Attempts int        `json:"attempts,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// ReportCounts aggregates plan outcomes for the presentation layer.
type ReportCounts struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	NoOp      int `json:"no_op"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Cancelled int `json:"cancelled"`
}

// Report is the machine-readable outcome of executing (or dry-running) a
// plan, ordered as the plan was.
type Report struct {
	PlanID      string        `json:"plan_id"`
	DryRun      bool          `json:"dry_run"`
	Results     []ItemResult  `json:"results"`
	Orphans     []ResourceKey `json:"orphans,omitempty"`
	Counts      ReportCounts  `json:"counts"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Success reports whether the run finished without failed or skipped items.
func (r *Report) Success() bool {
	return r.Counts.Failed == 0 && r.Counts.Skipped == 0 && r.Counts.Cancelled == 0
}

// ResultsByModule groups results by owning module name, preserving plan
// order within each group. Prune deletes group under the empty name.
func (r *Report) ResultsByModule() map[string][]ItemResult {
	grouped := make(map[string][]ItemResult)
	for _, res := range r.Results {
		grouped[res.Item.Module] = append(grouped[res.Item.Module], res)
	}
	return grouped
}

// ResultsByType groups results by resource type, preserving plan order
// within each group.
func (r *Report) ResultsByType() map[ResourceType][]ItemResult {
	grouped := make(map[ResourceType][]ItemResult)
	for _, res := range r.Results {
		grouped[res.Item.Type] = append(grouped[res.Item.Type], res)
	}
	return grouped
}
