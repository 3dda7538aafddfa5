package processor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/foldersync/internal/change"
	"github.com/roach88/foldersync/internal/oplog"
)

// nopRemote accepts everything; used to probe the dispatch alone.
type nopRemote struct{}

func (nopRemote) CreateFolder(ctx context.Context, workspace, folderID, name, parentID string) error {
	return nil
}
func (nopRemote) CreateRunbook(ctx context.Context, workspace, runbookID, parentID string) error {
	return nil
}
func (nopRemote) ImportRunbooks(ctx context.Context, workspace string, runbookIDs []string, parentID string) error {
	return nil
}
func (nopRemote) RenameFolder(ctx context.Context, workspace, folderID, name string) error {
	return nil
}
func (nopRemote) DeleteFolder(ctx context.Context, workspace, folderID string) error  { return nil }
func (nopRemote) DeleteRunbook(ctx context.Context, workspace, runbookID string) error { return nil }
func (nopRemote) MoveItems(ctx context.Context, workspace string, ids []string, parentID string, index int) error {
	return nil
}

func TestDeliver_ExhaustiveOverUnion(t *testing.T) {
	p := New(Config{Remote: nopRemote{}})

	samples := map[change.Kind]change.Change{
		change.KindCreateFolder:   {Kind: change.KindCreateFolder, ID: "f1", Name: "x"},
		change.KindCreateRunbook:  {Kind: change.KindCreateRunbook, ID: "r1"},
		change.KindImportRunbooks: {Kind: change.KindImportRunbooks, IDs: []string{"r1"}},
		change.KindRenameFolder:   {Kind: change.KindRenameFolder, ID: "f1", Name: "y"},
		change.KindDeleteFolder:   {Kind: change.KindDeleteFolder, ID: "f1"},
		change.KindDeleteRunbook:  {Kind: change.KindDeleteRunbook, ID: "r1"},
		change.KindMoveItems:      {Kind: change.KindMoveItems, IDs: []string{"r1"}},
	}

	for _, kind := range change.Kinds() {
		c, ok := samples[kind]
		require.True(t, ok, "no sample for kind %q", kind)
		assert.NotPanics(t, func() {
			_ = p.deliver(context.Background(), oplog.Operation{Workspace: "ws-1", Change: c})
		}, "kind %q must be dispatched", kind)
	}
}

func TestDeliver_UnknownKindPanics(t *testing.T) {
	p := New(Config{Remote: nopRemote{}})

	assert.Panics(t, func() {
		_ = p.deliver(context.Background(), oplog.Operation{
			Workspace: "ws-1",
			Change:    change.Change{Kind: "compact_log"},
		})
	})
}
