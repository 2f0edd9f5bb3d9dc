package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/wodkit/internal/runtime"
)

// timeLayout is the text form timestamps are stored in. RFC 3339 with
// nanoseconds keeps stored traces bit-comparable with the engine's output.
const timeLayout = time.RFC3339Nano

// BeginRun registers a run before its first record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - re-registering the same
// run ID is silently ignored.
func (s *Store) BeginRun(ctx context.Context, runID, program string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, program, started_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, runID, program, startedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun stamps a run's end time. Idempotent: once set, the finish time
// is never overwritten.
func (s *Store) FinishRun(ctx context.Context, runID string, finishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?
		WHERE id = ? AND finished_at IS NULL
	`, finishedAt.UTC().Format(timeLayout), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// WriteRecord inserts one output record at a fixed position in a run.
// Uses ON CONFLICT DO NOTHING for idempotency - duplicate (run, seq) writes
// are silently ignored. Other constraint violations (e.g. a missing run row)
// still return errors.
func (s *Store) WriteRecord(ctx context.Context, runID string, seq int, rec runtime.OutputRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records
		(run_id, seq, kind, block_key, block_type, label, depth, round, reason, started_at, ended_at, elapsed_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		seq,
		string(rec.Kind),
		string(rec.BlockKey),
		string(rec.Type),
		rec.Label,
		rec.Depth,
		rec.Round,
		string(rec.Reason),
		rec.StartedAt.UTC().Format(timeLayout),
		rec.EndedAt.UTC().Format(timeLayout),
		int64(rec.Elapsed),
	)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// RunWriter adapts the store to the runtime's record stream: it assigns
// sequence numbers in arrival order and remembers the first write failure.
//
// The record callback cannot return an error, so failures are sticky and
// surface from Err after the run. A writer is bound to one run and is not
// safe for concurrent use, matching the engine's single-threaded delivery.
type RunWriter struct {
	store *Store
	runID string
	seq   int
	err   error
}

// NewRunWriter creates a writer appending records to runID.
func (s *Store) NewRunWriter(runID string) *RunWriter {
	return &RunWriter{store: s, runID: runID}
}

// Record persists one output record. Pass it to Runtime.OnRecord.
// After the first failure, further records are dropped.
func (w *RunWriter) Record(rec runtime.OutputRecord) {
	if w.err != nil {
		return
	}
	if err := w.store.WriteRecord(context.Background(), w.runID, w.seq, rec); err != nil {
		w.err = err
		return
	}
	w.seq++
}

// Count returns the number of records written so far.
func (w *RunWriter) Count() int {
	return w.seq
}

// Err returns the first write failure, if any.
func (w *RunWriter) Err() error {
	return w.err
}
