package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confsync/confsync/internal/dependency"
	"github.com/confsync/confsync/internal/interfaces"
)

func buildGraph(t *testing.T, modules []interfaces.Module) *dependency.Graph {
	t.Helper()
	g, err := dependency.Build(modules)
	require.NoError(t, err)
	return g
}

func ingestionModule() interfaces.Module {
	return interfaces.Module{
		Name: "ingestion",
		Resources: []interfaces.ResourceDefinition{
			{
				Type:       interfaces.TypeTransformation,
				ExternalID: "tr_load",
				Module:     "ingestion",
				Fields: map[string]interface{}{
					"externalId":        "tr_load",
					"name":              "Load raw",
					"query":             "select 1",
					"dataSetExternalId": "ds_raw",
				},
				References: []interfaces.ResourceKey{
					interfaces.MakeResourceKey(interfaces.TypeDataSet, "ds_raw"),
				},
				DeclIndex: 0,
			},
			{
				Type:       interfaces.TypeDataSet,
				ExternalID: "ds_raw",
				Module:     "ingestion",
				Fields: map[string]interface{}{
					"externalId": "ds_raw",
					"name":       "Raw data",
				},
				DeclIndex: 1,
			},
		},
	}
}

func findItem(t *testing.T, plan *interfaces.Plan, typ interfaces.ResourceType, id string) interfaces.ChangeItem {
	t.Helper()
	for _, item := range plan.Items {
		if item.Type == typ && item.ExternalID == id {
			return item
		}
	}
	t.Fatalf("plan has no item for %s.%s", typ, id)
	return interfaces.ChangeItem{}
}

func itemIndex(plan *interfaces.Plan, typ interfaces.ResourceType, id string) int {
	for i, item := range plan.Items {
		if item.Type == typ && item.ExternalID == id {
			return i
		}
	}
	return -1
}

func TestBuildPlan_EmptyRemoteCreatesEverything(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []interfaces.Module{ingestionModule()})
	plan, err := BuildPlan(g, interfaces.NewSnapshot(), nil)
	require.NoError(t, err)

	require.Len(t, plan.Items, 2)
	for _, item := range plan.Items {
		assert.Equal(t, interfaces.ActionCreate, item.Action)
	}
}

func TestBuildPlan_DataSetOrderedBeforeDependentTransformation(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []interfaces.Module{ingestionModule()})
	plan, err := BuildPlan(g, interfaces.NewSnapshot(), nil)
	require.NoError(t, err)

	dsAt := itemIndex(plan, interfaces.TypeDataSet, "ds_raw")
	trAt := itemIndex(plan, interfaces.TypeTransformation, "tr_load")
	require.NotEqual(t, -1, dsAt)
	require.NotEqual(t, -1, trAt)

	// The dataset was declared after the transformation; type precedence
	// still puts it first.
	assert.Less(t, dsAt, trAt)
}

func TestBuildPlan_MatchingRemoteIsNoOp(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []interfaces.Module{ingestionModule()})

	snap := interfaces.NewSnapshot()
	snap.Add(interfaces.RemoteRecord{
		Type:       interfaces.TypeDataSet,
		ExternalID: "ds_raw",
		Fields: map[string]interface{}{
			"externalId": "ds_raw",
			"name":       "Raw data",
		},
	})

	plan, err := BuildPlan(g, snap, nil)
	require.NoError(t, err)

	ds := findItem(t, plan, interfaces.TypeDataSet, "ds_raw")
	assert.Equal(t, interfaces.ActionNoOp, ds.Action)
	assert.NotNil(t, ds.Remote)

	tr := findItem(t, plan, interfaces.TypeTransformation, "tr_load")
	assert.Equal(t, interfaces.ActionCreate, tr.Action)
}

func TestBuildPlan_ServerManagedFieldsDoNotForceUpdates(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []interfaces.Module{ingestionModule()})

	snap := interfaces.NewSnapshot()
	snap.Add(interfaces.RemoteRecord{
		Type:       interfaces.TypeDataSet,
		ExternalID: "ds_raw",
		Fields: map[string]interface{}{
			"externalId":      "ds_raw",
			"name":            "Raw data",
			"id":              int64(42),
			"createdTime":     int64(1700000000000),
			"lastUpdatedTime": int64(1700000001000),
		},
	})

	plan, err := BuildPlan(g, snap, nil)
	require.NoError(t, err)

	ds := findItem(t, plan, interfaces.TypeDataSet, "ds_raw")
	assert.Equal(t, interfaces.ActionNoOp, ds.Action)
}

func TestBuildPlan_ChangedFieldIsUpdate(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []interfaces.Module{ingestionModule()})

	snap := interfaces.NewSnapshot()
	snap.Add(interfaces.RemoteRecord{
		Type:       interfaces.TypeDataSet,
		ExternalID: "ds_raw",
		Fields: map[string]interface{}{
			"externalId": "ds_raw",
			"name":       "Old name",
		},
	})

	plan, err := BuildPlan(g, snap, nil)
	require.NoError(t, err)

	ds := findItem(t, plan, interfaces.TypeDataSet, "ds_raw")
	assert.Equal(t, interfaces.ActionUpdate, ds.Action)
	assert.Equal(t, "Old name", ds.Remote["name"])
}

func TestBuildPlan_UnmanagedPrunableRemoteIsDeleted(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []interfaces.Module{ingestionModule()})

	snap := interfaces.NewSnapshot()
	snap.Add(interfaces.RemoteRecord{
		Type:       interfaces.TypeTransformation,
		ExternalID: "tr_stale",
		Fields:     map[string]interface{}{"externalId": "tr_stale"},
	})

	plan, err := BuildPlan(g, snap, nil)
	require.NoError(t, err)

	stale := findItem(t, plan, interfaces.TypeTransformation, "tr_stale")
	assert.Equal(t, interfaces.ActionDelete, stale.Action)
	assert.Empty(t, plan.Orphans)

	// Deletes always come after every upsert.
	assert.Equal(t, len(plan.Items)-1, itemIndex(plan, interfaces.TypeTransformation, "tr_stale"))
}

func TestBuildPlan_UnmanagedDataSetIsOrphanedNotDeleted(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []interfaces.Module{ingestionModule()})

	snap := interfaces.NewSnapshot()
	snap.Add(interfaces.RemoteRecord{
		Type:       interfaces.TypeDataSet,
		ExternalID: "ds_forgotten",
		Fields:     map[string]interface{}{"externalId": "ds_forgotten"},
	})

	plan, err := BuildPlan(g, snap, nil)
	require.NoError(t, err)

	assert.Equal(t, -1, itemIndex(plan, interfaces.TypeDataSet, "ds_forgotten"))
	require.Len(t, plan.Orphans, 1)
	assert.Equal(t, interfaces.MakeResourceKey(interfaces.TypeDataSet, "ds_forgotten"), plan.Orphans[0])
}

func TestBuildPlan_PruneOverrideTurnsOrphanIntoDelete(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []interfaces.Module{ingestionModule()})

	snap := interfaces.NewSnapshot()
	snap.Add(interfaces.RemoteRecord{
		Type:       interfaces.TypeDataSet,
		ExternalID: "ds_forgotten",
		Fields:     map[string]interface{}{"externalId": "ds_forgotten"},
	})

	opts := &Options{PruneManaged: map[interfaces.ResourceType]bool{interfaces.TypeDataSet: true}}
	plan, err := BuildPlan(g, snap, opts)
	require.NoError(t, err)

	stale := findItem(t, plan, interfaces.TypeDataSet, "ds_forgotten")
	assert.Equal(t, interfaces.ActionDelete, stale.Action)
	assert.Empty(t, plan.Orphans)
}

func TestBuildPlan_DeletesRunInReverseTypeOrder(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []interfaces.Module{{Name: "empty"}})

	snap := interfaces.NewSnapshot()
	snap.Add(interfaces.RemoteRecord{
		Type:       interfaces.TypeSpace,
		ExternalID: "sp_stale",
		Fields:     map[string]interface{}{"space": "sp_stale"},
	})
	snap.Add(interfaces.RemoteRecord{
		Type:       interfaces.TypeContainer,
		ExternalID: "ct_stale",
		Fields:     map[string]interface{}{"externalId": "ct_stale", "space": "sp_stale"},
	})

	plan, err := BuildPlan(g, snap, nil)
	require.NoError(t, err)

	ctAt := itemIndex(plan, interfaces.TypeContainer, "ct_stale")
	spAt := itemIndex(plan, interfaces.TypeSpace, "sp_stale")
	require.NotEqual(t, -1, ctAt)
	require.NotEqual(t, -1, spAt)

	// The container lives inside the space, so it must be removed first.
	assert.Less(t, ctAt, spAt)
}

func TestBuildPlan_MutualViewReferencesFail(t *testing.T) {
	t.Parallel()

	vwA := interfaces.MakeResourceKey(interfaces.TypeView, "vw_a")
	vwB := interfaces.MakeResourceKey(interfaces.TypeView, "vw_b")
	g := buildGraph(t, []interfaces.Module{{
		Name: "modeling",
		Resources: []interfaces.ResourceDefinition{
			{
				Type:       interfaces.TypeView,
				ExternalID: "vw_a",
				Module:     "modeling",
				Fields:     map[string]interface{}{"externalId": "vw_a"},
				References: []interfaces.ResourceKey{vwB},
				DeclIndex:  0,
			},
			{
				Type:       interfaces.TypeView,
				ExternalID: "vw_b",
				Module:     "modeling",
				Fields:     map[string]interface{}{"externalId": "vw_b"},
				References: []interfaces.ResourceKey{vwA},
				DeclIndex:  1,
			},
		},
	}})

	_, err := BuildPlan(g, interfaces.NewSnapshot(), nil)
	require.Error(t, err)

	var cycle *ReferenceCycleError
	require.ErrorAs(t, err, &cycle)
	require.GreaterOrEqual(t, len(cycle.Path), 3)
	assert.Equal(t, cycle.Path[0], cycle.Path[len(cycle.Path)-1])
	assert.Contains(t, err.Error(), "cyclic resource reference")
}

func TestBuildPlan_SelfReferenceFails(t *testing.T) {
	t.Parallel()

	vwA := interfaces.MakeResourceKey(interfaces.TypeView, "vw_a")
	g := buildGraph(t, []interfaces.Module{{
		Name: "modeling",
		Resources: []interfaces.ResourceDefinition{{
			Type:       interfaces.TypeView,
			ExternalID: "vw_a",
			Module:     "modeling",
			Fields:     map[string]interface{}{"externalId": "vw_a"},
			References: []interfaces.ResourceKey{vwA},
		}},
	}})

	_, err := BuildPlan(g, interfaces.NewSnapshot(), nil)
	require.Error(t, err)

	var cycle *ReferenceCycleError
	require.ErrorAs(t, err, &cycle)
}

func TestBuildPlan_ExternalReferencesImposeNoOrdering(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []interfaces.Module{{
		Name: "modeling",
		Resources: []interfaces.ResourceDefinition{{
			Type:       interfaces.TypeView,
			ExternalID: "vw_a",
			Module:     "modeling",
			Fields:     map[string]interface{}{"externalId": "vw_a"},
			References: []interfaces.ResourceKey{
				interfaces.MakeResourceKey(interfaces.TypeView, "vw_preexisting"),
			},
		}},
	}})

	plan, err := BuildPlan(g, interfaces.NewSnapshot(), nil)
	require.NoError(t, err)
	require.Len(t, plan.Items, 1)
}

func TestBuildPlan_IsDeterministicApartFromID(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []interfaces.Module{ingestionModule()})

	snap := interfaces.NewSnapshot()
	snap.Add(interfaces.RemoteRecord{
		Type:       interfaces.TypeTransformation,
		ExternalID: "tr_a",
		Fields:     map[string]interface{}{"externalId": "tr_a"},
	})
	snap.Add(interfaces.RemoteRecord{
		Type:       interfaces.TypeTransformation,
		ExternalID: "tr_b",
		Fields:     map[string]interface{}{"externalId": "tr_b"},
	})

	first, err := BuildPlan(g, snap, nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		next, err := BuildPlan(g, snap, nil)
		require.NoError(t, err)
		require.Len(t, next.Items, len(first.Items))
		for j := range first.Items {
			assert.Equal(t, first.Items[j].Key(), next.Items[j].Key())
			assert.Equal(t, first.Items[j].Action, next.Items[j].Action)
		}
	}
}
