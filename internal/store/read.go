package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned by ReadRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// ReadRun returns a run with its trace and diagnostics.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, success, pulls, sink, error
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	if run.Trace, err = s.readTrace(ctx, id); err != nil {
		return Run{}, err
	}
	if run.Diagnostics, err = s.readDiagnostics(ctx, id); err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, oldest first, without their
// traces or diagnostics. A limit of 0 or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, success, pulls, sink, error FROM (
			SELECT id, seq, success, pulls, sink, error
			FROM runs
			ORDER BY seq DESC, id COLLATE BINARY DESC
			LIMIT ?
		)
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run     Run
		success int
		sink    []byte
	)
	if err := row.Scan(&run.ID, &run.Seq, &success, &run.Pulls, &sink, &run.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Success = success == 1

	v, err := unmarshalValue(sink)
	if err != nil {
		return Run{}, fmt.Errorf("run %s sink: %w", run.ID, err)
	}
	run.Sink = v
	return run, nil
}

func (s *Store) readTrace(ctx context.Context, id string) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, block, name, outputs
		FROM trace
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	steps := []Step{}
	for rows.Next() {
		var (
			step    Step
			outputs []byte
		)
		if err := rows.Scan(&step.Seq, &step.Block, &step.Name, &outputs); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		if step.Outputs, err = unmarshalValues(outputs); err != nil {
			return nil, fmt.Errorf("trace step %d: %w", step.Seq, err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return steps, nil
}

func (s *Store) readDiagnostics(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message
		FROM diagnostics
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	msgs := []string{}
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return msgs, nil
}
