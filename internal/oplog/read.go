package oplog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when no operation has the requested id.
var ErrNotFound = errors.New("operation not found")

// ListUnprocessed returns every operation still awaiting delivery, in
// deterministic creation order (created ASC, id ASC). Returns an empty
// slice, not nil, when the log is fully delivered.
func (s *Store) ListUnprocessed(ctx context.Context) ([]Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, processed_at, created, updated
		FROM operations
		WHERE processed_at IS NULL
		ORDER BY created ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed: %w", err)
	}
	defer rows.Close()

	var ops []Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unprocessed: %w", err)
	}

	if ops == nil {
		ops = []Operation{}
	}
	return ops, nil
}

// List returns every operation in the log in creation order, processed rows
// included. Used by the CLI for inspection.
func (s *Store) List(ctx context.Context) ([]Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, processed_at, created, updated
		FROM operations
		ORDER BY created ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	var ops []Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}

	if ops == nil {
		ops = []Operation{}
	}
	return ops, nil
}

// Get returns a single operation by id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Operation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, operation, processed_at, created, updated
		FROM operations
		WHERE id = ?
	`, id)

	op, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Operation{}, ErrNotFound
	}
	if err != nil {
		return Operation{}, err
	}
	return op, nil
}

// CountUnprocessed returns the number of operations awaiting delivery.
func (s *Store) CountUnprocessed(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM operations WHERE processed_at IS NULL
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unprocessed: %w", err)
	}
	return count, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanOperation.
type scanner interface {
	Scan(dest ...any) error
}

func scanOperation(row scanner) (Operation, error) {
	var (
		op          Operation
		payload     string
		processedAt sql.NullString
		created     string
		updated     string
	)
	if err := row.Scan(&op.ID, &payload, &processedAt, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Operation{}, err
		}
		return Operation{}, fmt.Errorf("scan operation: %w", err)
	}

	env, err := unmarshalPayload(payload)
	if err != nil {
		return Operation{}, fmt.Errorf("operation %s: %w", op.ID, err)
	}
	op.Workspace = env.Workspace
	op.ChangeRef = env.ChangeRef
	op.Change = env.Change

	if op.Created, err = time.Parse(timeFormat, created); err != nil {
		return Operation{}, fmt.Errorf("operation %s: parse created: %w", op.ID, err)
	}
	if op.Updated, err = time.Parse(timeFormat, updated); err != nil {
		return Operation{}, fmt.Errorf("operation %s: parse updated: %w", op.ID, err)
	}
	if processedAt.Valid {
		t, err := time.Parse(timeFormat, processedAt.String)
		if err != nil {
			return Operation{}, fmt.Errorf("operation %s: parse processed_at: %w", op.ID, err)
		}
		op.ProcessedAt = &t
	}

	return op, nil
}
