package folderops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/foldersync/internal/change"
	"github.com/roach88/foldersync/internal/oplog"
	"github.com/roach88/foldersync/internal/state"
	"github.com/roach88/foldersync/internal/tree"
)

// ErrRejected reports a mutation the current tree state does not allow:
// a missing target, a duplicate id, a move into a descendant, or a manager
// that is mid-resync. The caller's view is unchanged.
var ErrRejected = errors.New("mutation rejected")

// Notifier is the processor-facing slice of this package: something that
// can be told new work is queued. Satisfied by *processor.Processor.
type Notifier interface {
	Notify()
}

// Service applies workspace mutations end to end: optimistic local apply,
// durable queueing, processor wake-up. It holds one registry acquisition
// per workspace it has touched, released in Close, so pending optimistic
// state survives between calls.
type Service struct {
	registry *state.Registry
	log      *oplog.Store
	proc     Notifier
	ids      state.RefGenerator
	logger   *slog.Logger

	mu   sync.Mutex
	held map[string]*state.Manager
}

// Config carries the collaborators for NewService.
type Config struct {
	Registry *state.Registry
	Log      *oplog.Store
	Notifier Notifier
	IDs      state.RefGenerator // defaults to UUIDv7Generator
	Logger   *slog.Logger       // defaults to discard
}

// NewService creates a service.
func NewService(cfg Config) *Service {
	if cfg.IDs == nil {
		cfg.IDs = state.UUIDv7Generator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		registry: cfg.Registry,
		log:      cfg.Log,
		proc:     cfg.Notifier,
		ids:      cfg.IDs,
		logger:   cfg.Logger,
		held:     make(map[string]*state.Manager),
	}
}

// manager returns the pinned manager for workspace, acquiring it on first
// use.
func (s *Service) manager(ctx context.Context, workspace string) (*state.Manager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mgr, ok := s.held[workspace]; ok {
		return mgr, nil
	}
	mgr, err := s.registry.Acquire(ctx, workspace)
	if err != nil {
		return nil, err
	}
	s.held[workspace] = mgr
	return mgr, nil
}

// Close releases every workspace the service pinned. The service must not
// be used afterwards.
func (s *Service) Close() {
	s.mu.Lock()
	held := s.held
	s.held = make(map[string]*state.Manager)
	s.mu.Unlock()

	for workspace := range held {
		s.registry.Release(workspace)
	}
}

// CreateFolder creates a folder under parentID ("" for the workspace root)
// and returns its generated id.
func (s *Service) CreateFolder(ctx context.Context, workspace, name, parentID string) (string, error) {
	id := s.ids.Generate()
	err := s.apply(ctx, workspace, func(doc *tree.Tree) ([]change.Change, bool) {
		if !doc.CreateFolder(id, name, parentID) {
			return nil, false
		}
		return []change.Change{{Kind: change.KindCreateFolder, ID: id, Name: name, Parent: parentID}}, true
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// CreateRunbook creates a runbook under parentID and returns its generated
// id.
func (s *Service) CreateRunbook(ctx context.Context, workspace, parentID string) (string, error) {
	id := s.ids.Generate()
	err := s.apply(ctx, workspace, func(doc *tree.Tree) ([]change.Change, bool) {
		if !doc.CreateRunbook(id, parentID) {
			return nil, false
		}
		return []change.Change{{Kind: change.KindCreateRunbook, ID: id, Parent: parentID}}, true
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ImportRunbooks places a batch of externally minted runbook ids under
// parentID as one atomic mutation.
func (s *Service) ImportRunbooks(ctx context.Context, workspace string, runbookIDs []string, parentID string) error {
	return s.apply(ctx, workspace, func(doc *tree.Tree) ([]change.Change, bool) {
		if !doc.ImportRunbooks(runbookIDs, parentID) {
			return nil, false
		}
		return []change.Change{{Kind: change.KindImportRunbooks, IDs: runbookIDs, Parent: parentID}}, true
	})
}

// RenameFolder renames an existing folder.
func (s *Service) RenameFolder(ctx context.Context, workspace, folderID, name string) error {
	return s.apply(ctx, workspace, func(doc *tree.Tree) ([]change.Change, bool) {
		if !doc.RenameFolder(folderID, name) {
			return nil, false
		}
		return []change.Change{{Kind: change.KindRenameFolder, ID: folderID, Name: name}}, true
	})
}

// DeleteFolder removes a folder and its whole subtree.
func (s *Service) DeleteFolder(ctx context.Context, workspace, folderID string) error {
	return s.apply(ctx, workspace, func(doc *tree.Tree) ([]change.Change, bool) {
		if !doc.DeleteFolder(folderID) {
			return nil, false
		}
		return []change.Change{{Kind: change.KindDeleteFolder, ID: folderID}}, true
	})
}

// DeleteRunbook removes a single runbook.
func (s *Service) DeleteRunbook(ctx context.Context, workspace, runbookID string) error {
	return s.apply(ctx, workspace, func(doc *tree.Tree) ([]change.Change, bool) {
		if !doc.DeleteRunbook(runbookID) {
			return nil, false
		}
		return []change.Change{{Kind: change.KindDeleteRunbook, ID: runbookID}}, true
	})
}

// MoveItems moves a batch of items under newParentID at the given sibling
// index as one atomic mutation.
func (s *Service) MoveItems(ctx context.Context, workspace string, ids []string, newParentID string, index int) error {
	return s.apply(ctx, workspace, func(doc *tree.Tree) ([]change.Change, bool) {
		if !doc.MoveItems(ids, newParentID, index) {
			return nil, false
		}
		return []change.Change{{Kind: change.KindMoveItems, IDs: ids, Parent: newParentID, Index: index}}, true
	})
}

// Snapshot returns the workspace's current composite tree.
func (s *Service) Snapshot(ctx context.Context, workspace string) (tree.Snapshot, error) {
	mgr, err := s.manager(ctx, workspace)
	if err != nil {
		return tree.Snapshot{}, err
	}
	return mgr.Snapshot(), nil
}

// Descendants lists the subtree rooted at id, including id itself unless it
// is the root.
func (s *Service) Descendants(ctx context.Context, workspace, id string) ([]tree.Item, error) {
	mgr, err := s.manager(ctx, workspace)
	if err != nil {
		return nil, err
	}

	t, err := tree.FromSnapshot(mgr.Snapshot())
	if err != nil {
		return nil, err
	}
	items, ok := t.Descendants(id)
	if !ok {
		return nil, fmt.Errorf("descendants of %q: %w", id, ErrRejected)
	}
	return items, nil
}

// apply runs one mutation through the full pipeline. The optimistic update
// and the durable append either both happen or neither does; the processor
// is only notified once the operation is on disk.
func (s *Service) apply(ctx context.Context, workspace string, mutate func(*tree.Tree) ([]change.Change, bool)) error {
	mgr, err := s.manager(ctx, workspace)
	if err != nil {
		return err
	}

	var delta []change.Change
	ref, ok := mgr.UpdateOptimistic(func(doc *tree.Tree) ([]change.Change, bool) {
		d, applied := mutate(doc)
		if applied {
			delta = d
		}
		return d, applied
	})
	if !ok {
		return ErrRejected
	}

	for _, c := range delta {
		if err := s.log.Append(ctx, s.ids.Generate(), workspace, ref, c); err != nil {
			mgr.ExpireOptimisticUpdates([]string{ref})
			return fmt.Errorf("queue operation: %w", err)
		}
	}

	s.proc.Notify()
	s.logger.Debug("mutation queued", "workspace", workspace, "ref", ref)
	return nil
}
