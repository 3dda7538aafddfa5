package processor_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/foldersync/internal/change"
	"github.com/roach88/foldersync/internal/oplog"
	"github.com/roach88/foldersync/internal/processor"
	"github.com/roach88/foldersync/internal/testutil"
)

func newLog(t *testing.T) *oplog.Store {
	t.Helper()
	s, err := oplog.Open(filepath.Join(t.TempDir(), "oplog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func appendOp(t *testing.T, log *oplog.Store, id string, c change.Change) {
	t.Helper()
	require.NoError(t, log.Append(context.Background(), id, "ws-1", "ref-"+id, c))
}

func TestRunOnce_DeliversInOrder(t *testing.T) {
	ctx := context.Background()
	log := newLog(t)
	remote := testutil.NewScriptedRemote()
	p := processor.New(processor.Config{Log: log, Remote: remote})
	p.SetOnline(true)

	appendOp(t, log, "op-1", change.Change{Kind: change.KindCreateFolder, ID: "f1", Name: "Folder 1"})
	appendOp(t, log, "op-2", change.Change{Kind: change.KindCreateRunbook, ID: "r1", Parent: "f1"})
	appendOp(t, log, "op-3", change.Change{Kind: change.KindRenameFolder, ID: "f1", Name: "Renamed"})

	require.NoError(t, p.RunOnce(ctx))

	calls := remote.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, change.KindCreateFolder, calls[0].Kind)
	assert.Equal(t, change.KindCreateRunbook, calls[1].Kind)
	assert.Equal(t, change.KindRenameFolder, calls[2].Kind)

	n, err := log.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	item, ok := remote.Tree().Item("f1")
	require.True(t, ok)
	assert.Equal(t, "Renamed", item.Name)
}

func TestRunOnce_GoneIsVacuousSuccess(t *testing.T) {
	ctx := context.Background()
	log := newLog(t)
	remote := testutil.NewScriptedRemote()
	p := processor.New(processor.Config{Log: log, Remote: remote})
	p.SetOnline(true)

	// Deleting a folder the authority never had reports gone; the
	// operation's intent is already satisfied.
	appendOp(t, log, "op-1", change.Change{Kind: change.KindDeleteFolder, ID: "ghost"})
	appendOp(t, log, "op-2", change.Change{Kind: change.KindCreateFolder, ID: "f1", Name: "After"})

	require.NoError(t, p.RunOnce(ctx))

	calls := remote.Calls()
	require.Len(t, calls, 2)
	assert.ErrorIs(t, calls[0].Err, processor.ErrGone)

	n, err := log.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "gone operations are marked processed")
}

func TestRunOnce_TransientFailureStopsSweep(t *testing.T) {
	ctx := context.Background()
	log := newLog(t)
	remote := testutil.NewScriptedRemote()
	remote.SetErr("f1", errors.New("connection reset"))
	p := processor.New(processor.Config{Log: log, Remote: remote})
	p.SetOnline(true)

	appendOp(t, log, "op-1", change.Change{Kind: change.KindCreateFolder, ID: "f1", Name: "Flaky"})
	appendOp(t, log, "op-2", change.Change{Kind: change.KindCreateRunbook, ID: "r1", Parent: "f1"})

	require.NoError(t, p.RunOnce(ctx))

	require.Len(t, remote.Calls(), 1, "sweep must stop at the failed operation")
	n, err := log.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "both operations stay queued")

	// Next sweep after the blip delivers everything in the original order.
	remote.SetErr("f1", nil)
	require.NoError(t, p.RunOnce(ctx))

	n, err = log.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, ok := remote.Tree().Item("r1")
	assert.True(t, ok)
}

func TestRunOnce_OfflineIsNoop(t *testing.T) {
	ctx := context.Background()
	log := newLog(t)
	remote := testutil.NewScriptedRemote()
	p := processor.New(processor.Config{Log: log, Remote: remote})

	appendOp(t, log, "op-1", change.Change{Kind: change.KindCreateFolder, ID: "f1", Name: "Queued"})

	require.NoError(t, p.RunOnce(ctx))
	assert.Empty(t, remote.Calls(), "offline sweeps must not touch the remote")

	n, err := log.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSetOnline_TransitionTriggersSweep(t *testing.T) {
	ctx := context.Background()
	log := newLog(t)
	remote := testutil.NewScriptedRemote()
	p := processor.New(processor.Config{Log: log, Remote: remote})

	appendOp(t, log, "op-1", change.Change{Kind: change.KindCreateFolder, ID: "f1", Name: "Offline edit"})

	p.SetOnline(true)
	p.Wait()

	n, err := log.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "coming online must flush the queue")

	// Repeating the same state is not a transition and triggers nothing.
	before := p.Sweeps()
	p.SetOnline(true)
	p.Wait()
	assert.Equal(t, before, p.Sweeps())
}

func TestNotify_SingleFlightCoalesces(t *testing.T) {
	ctx := context.Background()
	log := newLog(t)
	remote := testutil.NewScriptedRemote()
	remote.Gate = make(chan struct{})
	p := processor.New(processor.Config{Log: log, Remote: remote})
	p.SetOnline(true)

	appendOp(t, log, "op-1", change.Change{Kind: change.KindCreateFolder, ID: "f1", Name: "Gated"})

	// First sweep starts and blocks inside the delivery.
	p.Notify()
	require.Eventually(t, func() bool { return p.Sweeps() == 1 },
		time.Second, time.Millisecond)

	// A burst of triggers while the sweep is held open.
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Notify()
		}()
	}
	wg.Wait()

	close(remote.Gate)
	p.Wait()

	assert.Equal(t, int64(2), p.Sweeps(),
		"a burst during a sweep coalesces into exactly one follow-up sweep")

	n, err := log.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSweep_StopsWhenConnectivityDropsMidSweep(t *testing.T) {
	ctx := context.Background()
	log := newLog(t)
	remote := testutil.NewScriptedRemote()
	remote.Gate = make(chan struct{})
	remote.Entering = make(chan string, 1)
	p := processor.New(processor.Config{Log: log, Remote: remote})
	p.SetOnline(true)

	appendOp(t, log, "op-1", change.Change{Kind: change.KindCreateFolder, ID: "f1", Name: "First"})
	appendOp(t, log, "op-2", change.Change{Kind: change.KindCreateFolder, ID: "f2", Name: "Second"})

	p.Notify()

	// Wait until the first delivery is in flight, drop the link, then
	// release the gate: the in-flight delivery completes, and the sweep
	// stops before the second operation.
	require.Equal(t, "f1", <-remote.Entering)
	p.SetOnline(false)
	remote.Gate <- struct{}{}
	p.Wait()

	require.Len(t, remote.Calls(), 1, "remaining operations wait for the next sweep")
	n, err := log.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
