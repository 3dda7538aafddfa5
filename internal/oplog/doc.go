// Package oplog provides SQLite-backed durable storage for the outbound
// mutation log.
//
// Every locally accepted optimistic mutation is appended here the moment it
// is applied, and the processor delivers rows to the remote authority in
// creation order. The table is append-mostly:
//
//   - Rows are inserted exactly once (ON CONFLICT(id) DO NOTHING makes
//     re-appends after a crash idempotent).
//   - processed_at is the only column ever mutated, set once when the
//     processor confirms delivery or determines the operation is moot.
//   - Rows are never deleted by the engine. PruneProcessed exists for
//     housekeeping and only ever touches processed rows.
//
// Scans are deterministic: ORDER BY created ASC, id ASC, so two sweeps over
// the same log always see the same order.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package oplog
