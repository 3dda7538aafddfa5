package processor

import (
	"context"
	"errors"
)

// ErrGone signals that the remote reports the operation's target no longer
// exists (deleted by another client, typically HTTP 404/410). Deliveries
// that fail with ErrGone are vacuously complete: the state the operation
// wanted no longer has anything to act on, so the operation is marked
// processed. Every other error is treated as transient.
var ErrGone = errors.New("remote target gone")

// Remote is the delivery surface: one call per operation tag. Errors other
// than ErrGone are retried indefinitely, so implementations must be
// idempotent - delivering the same operation twice has to be safe.
type Remote interface {
	CreateFolder(ctx context.Context, workspace, folderID, name, parentID string) error
	CreateRunbook(ctx context.Context, workspace, runbookID, parentID string) error
	ImportRunbooks(ctx context.Context, workspace string, runbookIDs []string, parentID string) error
	RenameFolder(ctx context.Context, workspace, folderID, name string) error
	DeleteFolder(ctx context.Context, workspace, folderID string) error
	DeleteRunbook(ctx context.Context, workspace, runbookID string) error
	MoveItems(ctx context.Context, workspace string, ids []string, parentID string, index int) error
}
