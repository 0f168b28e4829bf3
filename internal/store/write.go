package store

import (
	"context"
	"database/sql"
	"fmt"
)

// WriteRun journals a run with its trace and diagnostics in one
// transaction and returns the seq assigned to it.
//
// Run ids are unique; writing the same id twice fails.
func (s *Store) WriteRun(ctx context.Context, run Run) (int64, error) {
	if run.ID == "" {
		return 0, fmt.Errorf("write run: empty id")
	}
	sink, err := marshalValue(run.Sink)
	if err != nil {
		return 0, fmt.Errorf("write run %s: %w", run.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run %s: begin: %w", run.ID, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run %s: next seq: %w", run.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, success, pulls, sink, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, seq, boolToInt(run.Success), run.Pulls, sink, run.Error)
	if err != nil {
		return 0, fmt.Errorf("write run %s: %w", run.ID, err)
	}

	if err := writeTrace(ctx, tx, run); err != nil {
		return 0, err
	}
	if err := writeDiagnostics(ctx, tx, run); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run %s: commit: %w", run.ID, err)
	}
	return seq, nil
}

func writeTrace(ctx context.Context, tx *sql.Tx, run Run) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace (run_id, seq, block, name, outputs)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	defer stmt.Close()

	for _, step := range run.Trace {
		outputs, err := marshalValues(step.Outputs)
		if err != nil {
			return fmt.Errorf("write trace step %d: %w", step.Seq, err)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, step.Seq, step.Block, step.Name, outputs); err != nil {
			return fmt.Errorf("write trace step %d: %w", step.Seq, err)
		}
	}
	return nil
}

func writeDiagnostics(ctx context.Context, tx *sql.Tx, run Run) error {
	for i, msg := range run.Diagnostics {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO diagnostics (run_id, seq, message) VALUES (?, ?, ?)
		`, run.ID, i+1, msg)
		if err != nil {
			return fmt.Errorf("write diagnostic %d: %w", i+1, err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
