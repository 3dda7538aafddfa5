package oplog

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/foldersync/internal/change"
)

// timeFormat is the storage encoding for timestamps. RFC 3339 with
// nanoseconds in UTC sorts lexicographically in insertion order, which the
// unprocessed scan relies on.
const timeFormat = time.RFC3339Nano

// Append inserts an operation into the log. Uses ON CONFLICT(id) DO NOTHING
// for idempotency - appending the same id twice is silently ignored, so a
// caller that retries after an ambiguous failure cannot double-queue a
// mutation.
func (s *Store) Append(ctx context.Context, id, workspace, changeRef string, c change.Change) error {
	payload, err := marshalPayload(workspace, changeRef, c)
	if err != nil {
		return fmt.Errorf("append operation: %w", err)
	}

	now := s.now().UTC().Format(timeFormat)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO operations (id, operation, processed_at, created, updated)
		VALUES (?, ?, NULL, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, payload, now, now)
	if err != nil {
		return fmt.Errorf("append operation: %w", err)
	}

	return nil
}

// MarkProcessed stamps an operation as delivered. Only the first call for a
// given id transitions the row; later calls are no-ops. Returns whether this
// call performed the transition.
func (s *Store) MarkProcessed(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE operations
		SET processed_at = ?, updated = ?
		WHERE id = ? AND processed_at IS NULL
	`, at.UTC().Format(timeFormat), s.now().UTC().Format(timeFormat), id)
	if err != nil {
		return false, fmt.Errorf("mark processed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark processed: rows affected: %w", err)
	}
	return n > 0, nil
}

// PruneProcessed deletes processed rows older than the cutoff. Housekeeping
// only - the engine never calls this on its own, and unprocessed rows are
// never touched regardless of age.
func (s *Store) PruneProcessed(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM operations
		WHERE processed_at IS NOT NULL AND processed_at < ?
	`, olderThan.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("prune processed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune processed: rows affected: %w", err)
	}
	return n, nil
}
