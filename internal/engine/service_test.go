package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confsync/confsync/internal/config"
	"github.com/confsync/confsync/internal/interfaces"
	"github.com/confsync/confsync/internal/remote"
	"github.com/confsync/confsync/internal/variables"
)

type fakeSource struct {
	global  map[string]string
	envs    map[string]map[string]string
	entries []interfaces.ModuleSourceEntry
}

func (f *fakeSource) ListModules(_ context.Context) ([]interfaces.ModuleSourceEntry, error) {
	return f.entries, nil
}

func (f *fakeSource) GlobalVariables(_ context.Context) (map[string]string, error) {
	return f.global, nil
}

func (f *fakeSource) EnvironmentVariables(_ context.Context, env string) (map[string]string, error) {
	vars, ok := f.envs[env]
	if !ok {
		return nil, fmt.Errorf("unknown environment %q", env)
	}
	return vars, nil
}

func testSource() *fakeSource {
	return &fakeSource{
		global: map[string]string{"owner": "data-platform"},
		envs: map[string]map[string]string{
			"dev":  {"dataset_suffix": "dev"},
			"prod": {"dataset_suffix": "prod"},
		},
		entries: []interfaces.ModuleSourceEntry{
			{
				Name: "ingestion",
				Files: []interfaces.SourceFile{
					{
						RelPath: "data_sets/raw.yaml",
						Type:    interfaces.TypeDataSet,
						Raw:     "externalId: ds_raw_{{ dataset_suffix }}\nname: Raw data\ndescription: owned by {{ owner }}\n",
					},
					{
						RelPath: "transformations/load.yaml",
						Type:    interfaces.TypeTransformation,
						Raw: "externalId: tr_load\nname: Load raw\nquery: select 1\n" +
							"destination:\n  type: assets\ndataSetExternalId: ds_raw_{{ dataset_suffix }}\n",
					},
				},
			},
		},
	}
}

func fastConfig() *config.Config {
	return &config.Config{
		ApplyConcurrency:  4,
		RemoteCallTimeout: time.Second,
		RetryMaxAttempts:  2,
		RetryInitialDelay: time.Millisecond,
		RetryMaxDelay:     5 * time.Millisecond,
	}
}

func TestService_RunCreatesEverythingOnEmptyRemote(t *testing.T) {
	t.Parallel()

	clients := remote.NewInMemoryClientSet()
	svc := New(testSource(), clients, WithConfig(fastConfig()))

	report, err := svc.Run(context.Background(), "dev", false)
	require.NoError(t, err)
	require.True(t, report.Success())
	assert.Equal(t, 2, report.Counts.Created)

	fields, ok := clients.Get(interfaces.MakeResourceKey(interfaces.TypeDataSet, "ds_raw_dev"))
	require.True(t, ok)
	assert.Equal(t, "owned by data-platform", fields["description"])

	fields, ok = clients.Get(interfaces.MakeResourceKey(interfaces.TypeTransformation, "tr_load"))
	require.True(t, ok)
	assert.Equal(t, "ds_raw_dev", fields["dataSetExternalId"])
}

func TestService_SecondRunIsAllNoOps(t *testing.T) {
	t.Parallel()

	clients := remote.NewInMemoryClientSet()
	svc := New(testSource(), clients, WithConfig(fastConfig()))

	first, err := svc.Run(context.Background(), "dev", false)
	require.NoError(t, err)
	require.True(t, first.Success())

	second, err := svc.Run(context.Background(), "dev", false)
	require.NoError(t, err)
	require.True(t, second.Success())
	assert.Equal(t, 0, second.Counts.Created)
	assert.Equal(t, 0, second.Counts.Updated)
	assert.Equal(t, 2, second.Counts.NoOp)
}

func TestService_EnvironmentSelectsVariableValues(t *testing.T) {
	t.Parallel()

	clients := remote.NewInMemoryClientSet()
	svc := New(testSource(), clients, WithConfig(fastConfig()))

	_, err := svc.Run(context.Background(), "prod", false)
	require.NoError(t, err)

	_, ok := clients.Get(interfaces.MakeResourceKey(interfaces.TypeDataSet, "ds_raw_prod"))
	assert.True(t, ok)
	_, ok = clients.Get(interfaces.MakeResourceKey(interfaces.TypeDataSet, "ds_raw_dev"))
	assert.False(t, ok)
}

func TestService_DryRunLeavesRemoteUntouched(t *testing.T) {
	t.Parallel()

	clients := remote.NewInMemoryClientSet()
	svc := New(testSource(), clients, WithConfig(fastConfig()))

	report, err := svc.Run(context.Background(), "dev", true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Counts.Created)
	assert.Empty(t, clients.Calls())
}

func TestService_BuildAggregatesAllErrors(t *testing.T) {
	t.Parallel()

	src := testSource()
	src.entries = append(src.entries, interfaces.ModuleSourceEntry{
		Name: "broken",
		Files: []interfaces.SourceFile{
			{
				RelPath: "data_sets/a.yaml",
				Type:    interfaces.TypeDataSet,
				Raw:     "externalId: ds_a_{{ missing_var }}\nname: A\n",
			},
			{
				RelPath: "data_sets/b.yaml",
				Type:    interfaces.TypeDataSet,
				Raw:     "name: no external id\n",
			},
		},
	})

	svc := New(src, remote.NewInMemoryClientSet(), WithConfig(fastConfig()))
	_, err := svc.Build(context.Background(), "dev")
	require.Error(t, err)

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Len(t, buildErr.Errs, 2)

	var unresolved *variables.UnresolvedVariableError
	assert.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "missing_var", unresolved.Token)
	assert.Equal(t, "broken/data_sets/a.yaml", unresolved.File)
}

func TestService_BuildRejectsUnknownEnvironment(t *testing.T) {
	t.Parallel()

	svc := New(testSource(), remote.NewInMemoryClientSet(), WithConfig(fastConfig()))
	_, err := svc.Build(context.Background(), "staging")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "staging")
}

func TestService_BuildRejectsDependencyCycle(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		global: map[string]string{},
		envs:   map[string]map[string]string{"dev": {}},
		entries: []interfaces.ModuleSourceEntry{
			{Name: "a", DependsOn: []string{"b"}},
			{Name: "b", DependsOn: []string{"a"}},
		},
	}

	svc := New(src, remote.NewInMemoryClientSet(), WithConfig(fastConfig()))
	_, err := svc.Build(context.Background(), "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cyclic module dependency")
}
