package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/foldersync/internal/change"
	"github.com/roach88/foldersync/internal/tree"
)

// pendingDelta is one locally applied, not-yet-confirmed mutation.
type pendingDelta struct {
	ref   string
	delta []change.Change
}

// subscriber entries are held in a slice so fan-out order is subscription
// order, not map order.
type subscriber struct {
	id int
	fn func(tree.Snapshot)
}

// Manager reconciles one workspace's folder tree between local optimistic
// mutations and the remote authority. Construct through a Registry, not
// directly; the Registry owns the lifecycle.
type Manager struct {
	id      string
	adapter Adapter
	refs    RefGenerator
	logger  *slog.Logger

	mu          sync.Mutex
	confirmed   *tree.Tree
	version     Version
	pending     []pendingDelta
	subs        []subscriber
	nextSubID   int
	resyncing   bool
	destroyed   bool
	unsubscribe func()
}

// ManagerConfig carries the collaborators for NewManager.
type ManagerConfig struct {
	ID      string
	Adapter Adapter
	Refs    RefGenerator // defaults to UUIDv7Generator
	Logger  *slog.Logger // defaults to discard
}

// NewManager creates an unstarted manager with an empty confirmed baseline.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Refs == nil {
		cfg.Refs = UUIDv7Generator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		id:        cfg.ID,
		adapter:   cfg.Adapter,
		refs:      cfg.Refs,
		logger:    cfg.Logger.With("workspace", cfg.ID),
		confirmed: tree.New(),
	}
}

// Start initializes the transport, subscribes to pushes, joins the channel,
// and seeds the confirmed baseline with an initial resync.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.adapter.Init(ctx); err != nil {
		return fmt.Errorf("manager %s: init adapter: %w", m.id, err)
	}
	m.unsubscribe = m.adapter.Subscribe(m.handlePush)

	if err := m.adapter.EnsureConnected(ctx); err != nil {
		return fmt.Errorf("manager %s: join channel: %w", m.id, err)
	}
	if err := m.Resync(ctx); err != nil {
		return fmt.Errorf("manager %s: initial resync: %w", m.id, err)
	}
	return nil
}

// Destroy releases the subscription and the adapter. Idempotent. In-flight
// adapter calls are not cancelled; their results are discarded when they
// land on a destroyed manager.
func (m *Manager) Destroy() error {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return nil
	}
	m.destroyed = true
	unsub := m.unsubscribe
	m.subs = nil
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	return m.adapter.Destroy()
}

// UpdateOptimistic runs the mutator against the current composite state.
// The mutator reports the changes it performed and whether it applied at
// all; a cancelled mutation leaves the manager untouched.
//
// On success the delta joins the pending set under a fresh ChangeRef, the
// new composite is published immediately, and the ref is returned so the
// caller can later expire the update if it fails to queue durably.
//
// Returns ok=false without side effects if the mutator cancelled, or if the
// manager is mid-resync or destroyed (the baseline is about to be replaced
// wholesale, so stacking optimistic deltas on it would be a guess).
func (m *Manager) UpdateOptimistic(mutate func(doc *tree.Tree) ([]change.Change, bool)) (ref string, ok bool) {
	m.mu.Lock()
	if m.destroyed || m.resyncing {
		m.mu.Unlock()
		return "", false
	}

	working := m.compositeLocked()
	delta, applied := mutate(working)
	if !applied || len(delta) == 0 {
		m.mu.Unlock()
		return "", false
	}

	ref = m.refs.Generate()
	m.pending = append(m.pending, pendingDelta{ref: ref, delta: delta})
	notify := m.publishLocked()
	m.mu.Unlock()

	notify()
	return ref, true
}

// ExpireOptimisticUpdates discards the pending deltas for the given refs
// without waiting for server confirmation and republishes. Unknown refs are
// ignored. This is the rollback path for local persistence failures.
func (m *Manager) ExpireOptimisticUpdates(refs []string) {
	drop := make(map[string]bool, len(refs))
	for _, r := range refs {
		drop[r] = true
	}

	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	kept := m.pending[:0]
	for _, p := range m.pending {
		if !drop[p.ref] {
			kept = append(kept, p)
		}
	}
	m.pending = kept
	notify := m.publishLocked()
	m.mu.Unlock()

	notify()
}

// Resync replaces the confirmed baseline and version wholesale from the
// authoritative response and reconciles the pending set: refs the server
// still considers in-flight are kept, everything else is dropped. A resync
// already in progress makes this call a no-op.
func (m *Manager) Resync(ctx context.Context) error {
	m.mu.Lock()
	if m.destroyed || m.resyncing {
		m.mu.Unlock()
		return nil
	}
	m.resyncing = true
	last := m.version
	m.mu.Unlock()

	resp, err := m.adapter.Resync(ctx, last)

	m.mu.Lock()
	m.resyncing = false
	if m.destroyed {
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("resync %s: %w", m.id, err)
	}

	baseline, err := tree.FromSnapshot(resp.State)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("resync %s: %w", m.id, err)
	}

	known := make(map[string]bool, len(resp.InFlightRefs))
	for _, r := range resp.InFlightRefs {
		known[r] = true
	}
	kept := m.pending[:0]
	for _, p := range m.pending {
		if known[p.ref] {
			kept = append(kept, p)
		}
	}

	m.confirmed = baseline
	m.version = resp.Version
	m.pending = kept
	notify := m.publishLocked()
	m.mu.Unlock()

	m.logger.Debug("resynced", "version", resp.Version, "pending", len(kept))
	notify()
	return nil
}

// Subscribe registers fn for composite-state publications and returns a
// cancel function. The current state is delivered immediately.
func (m *Manager) Subscribe(fn func(tree.Snapshot)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	snap := m.compositeLocked().Snapshot()
	m.mu.Unlock()

	fn(snap)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns the current composite state: confirmed baseline plus
// pending deltas in application order.
func (m *Manager) Snapshot() tree.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.compositeLocked().Snapshot()
}

// Version returns the last server-confirmed version.
func (m *Manager) Version() Version {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// PendingRefs returns the refs of unconfirmed optimistic updates in
// application order.
func (m *Manager) PendingRefs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs := make([]string, len(m.pending))
	for i, p := range m.pending {
		refs[i] = p.ref
	}
	return refs
}

// handlePush reconciles one server push against the confirmed baseline.
func (m *Manager) handlePush(p Push) {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}

	switch {
	case p.Version.Succeeds(m.version):
		m.confirmed.ApplyAll(p.Delta)
		m.version = p.Version
		if p.ChangeRef != "" {
			m.consumeRefLocked(p.ChangeRef)
		}
		notify := m.publishLocked()
		m.mu.Unlock()
		notify()

	case p.Version <= m.version:
		// Duplicate or out-of-order delivery of an already-confirmed
		// version; the baseline is ahead of it.
		m.mu.Unlock()
		m.logger.Debug("ignoring stale push", "pushed", p.Version)

	default:
		// Missed at least one push; the delta cannot be applied safely.
		confirmed := m.version
		m.mu.Unlock()
		m.logger.Info("version gap detected, resyncing",
			"confirmed", confirmed, "pushed", p.Version)
		go func() {
			if err := m.Resync(context.Background()); err != nil {
				m.logger.Warn("resync after gap failed", "error", err)
			}
		}()
	}
}

// consumeRefLocked removes one pending delta by ref. A ref the server
// acknowledges that is no longer pending (already expired locally) is fine
// to ignore; the confirmed delta carries the same effect.
func (m *Manager) consumeRefLocked(ref string) {
	for i, p := range m.pending {
		if p.ref == ref {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// compositeLocked builds confirmed + pending replay. Callers hold mu.
func (m *Manager) compositeLocked() *tree.Tree {
	t := m.confirmed.Clone()
	for _, p := range m.pending {
		t.ApplyAll(p.delta)
	}
	return t
}

// publishLocked captures the composite snapshot and subscriber list under
// the lock and returns the fan-out as a closure to run after unlocking, so
// a subscriber calling back into the manager cannot deadlock.
func (m *Manager) publishLocked() func() {
	if len(m.subs) == 0 {
		return func() {}
	}
	snap := m.compositeLocked().Snapshot()
	fns := make([]func(tree.Snapshot), len(m.subs))
	for i, s := range m.subs {
		fns[i] = s.fn
	}
	return func() {
		for _, fn := range fns {
			fn(snap)
		}
	}
}
