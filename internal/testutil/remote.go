package testutil

import (
	"context"
	"sync"

	"github.com/roach88/foldersync/internal/change"
	"github.com/roach88/foldersync/internal/processor"
	"github.com/roach88/foldersync/internal/tree"
)

// Call records one delivery attempt against the scripted remote.
type Call struct {
	Kind   change.Kind
	Target string // primary id (first of the batch for bulk calls)
	Err    error  // outcome returned to the processor
}

// ScriptedRemote implements processor.Remote against an in-memory
// authoritative tree. Successful deliveries mutate the tree, so tests can
// compare the state a sweep produced with the state direct application
// would have produced.
//
// Behavior per delivery:
//   - a scripted error for the target id is returned as-is
//   - otherwise the change is applied to the authoritative tree
//   - a change that no longer applies reports processor.ErrGone, except
//     creations and imports, which are idempotent (already-present ids are
//     success, as a real authority would treat a redelivery)
//
// If Gate is non-nil every delivery first receives from it, letting tests
// hold a sweep open at a precise point. If Entering is non-nil the target
// id is sent there before waiting on Gate, so tests can detect that a
// delivery is in flight.
type ScriptedRemote struct {
	Gate     chan struct{}
	Entering chan string

	mu    sync.Mutex
	tree  *tree.Tree
	errs  map[string]error
	calls []Call
}

// NewScriptedRemote creates a remote with an empty authoritative tree.
func NewScriptedRemote() *ScriptedRemote {
	return &ScriptedRemote{
		tree: tree.New(),
		errs: make(map[string]error),
	}
}

// SetErr scripts err for every delivery targeting id until cleared with a
// nil err.
func (r *ScriptedRemote) SetErr(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.errs, id)
		return
	}
	r.errs[id] = err
}

// Tree returns a copy of the authoritative tree.
func (r *ScriptedRemote) Tree() *tree.Tree {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tree.Clone()
}

// Calls returns every delivery attempt in order.
func (r *ScriptedRemote) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *ScriptedRemote) CreateFolder(ctx context.Context, workspace, folderID, name, parentID string) error {
	return r.apply(change.Change{Kind: change.KindCreateFolder, ID: folderID, Name: name, Parent: parentID}, folderID)
}

func (r *ScriptedRemote) CreateRunbook(ctx context.Context, workspace, runbookID, parentID string) error {
	return r.apply(change.Change{Kind: change.KindCreateRunbook, ID: runbookID, Parent: parentID}, runbookID)
}

func (r *ScriptedRemote) ImportRunbooks(ctx context.Context, workspace string, runbookIDs []string, parentID string) error {
	return r.apply(change.Change{Kind: change.KindImportRunbooks, IDs: runbookIDs, Parent: parentID}, first(runbookIDs))
}

func (r *ScriptedRemote) RenameFolder(ctx context.Context, workspace, folderID, name string) error {
	return r.apply(change.Change{Kind: change.KindRenameFolder, ID: folderID, Name: name}, folderID)
}

func (r *ScriptedRemote) DeleteFolder(ctx context.Context, workspace, folderID string) error {
	return r.apply(change.Change{Kind: change.KindDeleteFolder, ID: folderID}, folderID)
}

func (r *ScriptedRemote) DeleteRunbook(ctx context.Context, workspace, runbookID string) error {
	return r.apply(change.Change{Kind: change.KindDeleteRunbook, ID: runbookID}, runbookID)
}

func (r *ScriptedRemote) MoveItems(ctx context.Context, workspace string, ids []string, parentID string, index int) error {
	return r.apply(change.Change{Kind: change.KindMoveItems, IDs: ids, Parent: parentID, Index: index}, first(ids))
}

func (r *ScriptedRemote) apply(c change.Change, target string) error {
	if r.Entering != nil {
		r.Entering <- target
	}
	if r.Gate != nil {
		<-r.Gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.outcomeLocked(c, target)
	r.calls = append(r.calls, Call{Kind: c.Kind, Target: target, Err: err})
	return err
}

func (r *ScriptedRemote) outcomeLocked(c change.Change, target string) error {
	if err, scripted := r.errs[target]; scripted {
		return err
	}
	if r.tree.Apply(c) {
		return nil
	}
	switch c.Kind {
	case change.KindCreateFolder, change.KindCreateRunbook, change.KindImportRunbooks:
		// Redelivery of a creation; the rows already exist.
		return nil
	default:
		return processor.ErrGone
	}
}

func first(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
