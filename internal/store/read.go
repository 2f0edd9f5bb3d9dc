package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/wodkit/internal/runtime"
)

// Run is one stored run's header row.
type Run struct {
	ID         string
	Program    string
	StartedAt  time.Time
	FinishedAt time.Time // zero when the run never finished
}

// Finished reports whether the run has a recorded end time.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// ReadRun returns a run header by ID. Returns sql.ErrNoRows (wrapped) when
// the run does not exist.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, program, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, runID)

	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns all run headers ordered by start time, newest first.
// Returns an empty slice (not nil) when the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// ReadRecords returns a run's output records in emission order.
// Returns an empty slice (not nil) when the run has no records.
func (s *Store) ReadRecords(ctx context.Context, runID string) ([]runtime.OutputRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, block_key, block_type, label, depth, round, reason, started_at, ended_at, elapsed_ns
		FROM records
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []runtime.OutputRecord{}
	for rows.Next() {
		var rec runtime.OutputRecord
		var kind, key, btype, reason string
		var startedAt, endedAt string
		var elapsedNS int64
		if err := rows.Scan(&kind, &key, &btype, &rec.Label, &rec.Depth, &rec.Round, &reason, &startedAt, &endedAt, &elapsedNS); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		rec.Kind = runtime.RecordKind(kind)
		rec.BlockKey = runtime.BlockKey(key)
		rec.Type = runtime.BlockType(btype)
		rec.Reason = runtime.CompletionReason(reason)
		rec.Elapsed = time.Duration(elapsedNS)

		if rec.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if rec.EndedAt, err = time.Parse(timeLayout, endedAt); err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Program, &startedAt, &finishedAt); err != nil {
		return Run{}, err
	}

	var err error
	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if finishedAt.Valid {
		if run.FinishedAt, err = time.Parse(timeLayout, finishedAt.String); err != nil {
			return Run{}, fmt.Errorf("parse finished_at: %w", err)
		}
	}
	return run, nil
}
