// Package state implements the shared per-workspace state manager that
// reconciles optimistic local mutations with the remote authority.
//
// ARCHITECTURE:
//
// One Manager exists per workspace id, handed out by a reference-counted
// Registry: the first consumer constructs and starts it, the last release
// destroys it and its transport adapter. Consumers never build Managers
// directly.
//
// The Manager holds two things:
//   - the confirmed baseline: the last server-confirmed tree plus its
//     Version (a monotonic counter)
//   - the pending set: locally applied, not-yet-confirmed deltas, each keyed
//     by an opaque ChangeRef, in the order they were applied
//
// INVARIANT: the state published to subscribers is always the confirmed
// baseline with every pending delta replayed in application order. Never a
// gapped or reordered composite.
//
// Reconciliation rules:
//   - A pushed update whose version is the immediate successor of the
//     confirmed version is applied to the baseline; a matching ChangeRef is
//     consumed from the pending set.
//   - A version gap means pushes were missed; the manager resyncs (full
//     authoritative state + version) instead of applying the delta blindly.
//   - After a resync, pending refs the server no longer knows about are
//     dropped; refs it still considers in-flight are kept.
//   - ExpireOptimisticUpdates discards pending deltas without server input;
//     this is the rollback path when local persistence fails.
//
// Each Manager serializes its own transitions with a mutex; independent
// workspaces progress independently. In-flight adapter calls are not
// cancelled on destroy - their results are ignored once the manager is gone.
package state
