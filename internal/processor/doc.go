// Package processor delivers queued operations to the remote authority.
//
// ARCHITECTURE:
//
// Single-Flight Sweep:
// All delivery happens in sweeps over the unprocessed tail of the operation
// log, in creation order. The processor coalesces triggers: while a sweep is
// running, any number of further triggers collapse into exactly one queued
// follow-up sweep. N concurrent requests during a sweep produce one more
// sweep, never N.
//
// Sweep algorithm:
//  1. Fetch all unprocessed operations, creation order.
//  2. For each: if connectivity was lost since the sweep started, stop;
//     the rest stay queued for the next sweep.
//  3. Deliver via the per-tag Remote call.
//  4. Mark processed on success, or when the remote reports the operation's
//     target no longer exists (the intended effect already holds, so the
//     operation is vacuously done). This gone-means-done rule is applied
//     uniformly to every operation tag.
//  5. On any other failure, stop the sweep; the operation and everything
//     after it stay queued, preserving delivery order for the next attempt.
//
// An operation tag the dispatch does not recognize is a schema mismatch
// between the log writer and this build. That is a programming error and
// panics; it is never skipped or marked processed.
//
// Triggers: a new operation persisted while online, and every transition
// from offline to online. Failures during a sweep are never surfaced to the
// caller that queued the operation - the optimistic state already shows the
// intended outcome, and delivery retries for as long as it takes.
package processor
