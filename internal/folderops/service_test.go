package folderops_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/foldersync/internal/folderops"
	"github.com/roach88/foldersync/internal/oplog"
	"github.com/roach88/foldersync/internal/processor"
	"github.com/roach88/foldersync/internal/state"
	"github.com/roach88/foldersync/internal/testutil"
	"github.com/roach88/foldersync/internal/tree"
)

type fixture struct {
	svc    *folderops.Service
	reg    *state.Registry
	proc   *processor.Processor
	remote *testutil.ScriptedRemote
	log    *oplog.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log, err := oplog.Open(filepath.Join(t.TempDir(), "ops.db"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	remote := testutil.NewScriptedRemote()
	proc := processor.New(processor.Config{Log: log, Remote: remote})
	t.Cleanup(proc.Wait)

	reg := state.NewRegistry(state.RegistryConfig{
		Adapters: func(string) state.Adapter { return &testutil.ScriptedAdapter{} },
	})

	svc := folderops.NewService(folderops.Config{
		Registry: reg,
		Log:      log,
		Notifier: proc,
	})
	t.Cleanup(svc.Close)

	return &fixture{
		svc:    svc,
		reg:    reg,
		proc:   proc,
		remote: remote,
		log:    log,
	}
}

func TestClose_ReleasesPinnedWorkspaces(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Snapshot(context.Background(), "ws-1")
	require.NoError(t, err)
	require.Equal(t, 1, f.reg.Active())

	f.svc.Close()
	assert.Equal(t, 0, f.reg.Active())
}

func TestCreateFolder_VisibleImmediatelyWhileOffline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateFolder(ctx, "ws-1", "Incidents", "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap, err := f.svc.Snapshot(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, id, snap.Items[0].ID)
	assert.Equal(t, "Incidents", snap.Items[0].Name)

	// Queued durably, untouched by the remote.
	n, err := f.log.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, f.remote.Calls())
}

func TestRejectedMutation_LeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.RenameFolder(ctx, "ws-1", "no-such-folder", "New Name")
	require.ErrorIs(t, err, folderops.ErrRejected)

	snap, err := f.svc.Snapshot(ctx, "ws-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Items)

	n, err := f.log.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteRunbook_DeclinesFolders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateFolder(ctx, "ws-1", "Incidents", "")
	require.NoError(t, err)

	err = f.svc.DeleteRunbook(ctx, "ws-1", id)
	assert.ErrorIs(t, err, folderops.ErrRejected)
}

// A session of offline work, swept after connectivity returns, must leave
// the remote in exactly the state direct application of the same sequence
// would have produced.
func TestOfflineWorkConvergesOnReconnect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const ws = "ws-1"

	incidents, err := f.svc.CreateFolder(ctx, ws, "Incidents", "")
	require.NoError(t, err)
	runbook, err := f.svc.CreateRunbook(ctx, ws, incidents)
	require.NoError(t, err)
	archive, err := f.svc.CreateFolder(ctx, ws, "Archive", "")
	require.NoError(t, err)
	require.NoError(t, f.svc.MoveItems(ctx, ws, []string{runbook}, archive, 0))
	require.NoError(t, f.svc.RenameFolder(ctx, ws, incidents, "Live Incidents"))
	require.NoError(t, f.svc.ImportRunbooks(ctx, ws, []string{"imp-1", "imp-2"}, incidents))

	f.proc.SetOnline(true)
	f.proc.Wait()

	expected := tree.New()
	expected.CreateFolder(incidents, "Incidents", "")
	expected.CreateRunbook(runbook, incidents)
	expected.CreateFolder(archive, "Archive", "")
	expected.MoveItems([]string{runbook}, archive, 0)
	expected.RenameFolder(incidents, "Live Incidents")
	expected.ImportRunbooks([]string{"imp-1", "imp-2"}, incidents)

	assert.Equal(t, expected.Snapshot(), f.remote.Tree().Snapshot())

	n, err := f.log.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDescendants_ListsSubtree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const ws = "ws-1"

	top, err := f.svc.CreateFolder(ctx, ws, "Top", "")
	require.NoError(t, err)
	inner, err := f.svc.CreateFolder(ctx, ws, "Inner", top)
	require.NoError(t, err)
	rb, err := f.svc.CreateRunbook(ctx, ws, inner)
	require.NoError(t, err)

	items, err := f.svc.Descendants(ctx, ws, top)
	require.NoError(t, err)
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	assert.ElementsMatch(t, []string{top, inner, rb}, ids)

	_, err = f.svc.Descendants(ctx, ws, "missing")
	assert.ErrorIs(t, err, folderops.ErrRejected)
}

func TestQueueFailure_RollsBackOptimisticUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Closing the log makes every append fail; the optimistic update must
	// be expired so the visible tree never shows a mutation that cannot
	// reach the remote.
	require.NoError(t, f.log.Close())

	_, err := f.svc.CreateFolder(ctx, "ws-1", "Incidents", "")
	require.Error(t, err)
	require.NotErrorIs(t, err, folderops.ErrRejected)

	snap, err := f.svc.Snapshot(ctx, "ws-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Items)
}
