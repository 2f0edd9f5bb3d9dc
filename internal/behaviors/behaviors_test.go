package behaviors_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/wodkit/internal/behaviors"
	"github.com/roach88/wodkit/internal/program"
	"github.com/roach88/wodkit/internal/runtime"
	"github.com/roach88/wodkit/internal/testutil"
)

// leafCompiler compiles any node group into a user-advanced leaf labeled
// after its first id. Tests assemble parent blocks by hand and only need the
// compiler for child groups.
type leafCompiler struct{}

func (leafCompiler) Compile(ids []program.NodeID, rt *runtime.Runtime) (*runtime.Block, error) {
	label := ""
	if len(ids) > 0 {
		label = string(ids[0])
	}
	return runtime.NewBlock(rt.NewBlockKey(), runtime.BlockEffort, label, ids,
		behaviors.NewAdvance(),
		behaviors.NewRecorder(),
	), nil
}

func newEngine(t *testing.T) (*runtime.Runtime, *testutil.ManualClock, *[]runtime.OutputRecord) {
	t.Helper()

	clock := testutil.NewManualClock()
	rt := runtime.New(leafCompiler{}, nil,
		runtime.WithClock(clock),
		runtime.WithKeyGenerator(&runtime.SequentialKeyGenerator{}),
	)

	var records []runtime.OutputRecord
	rt.OnRecord(func(rec runtime.OutputRecord) {
		records = append(records, rec)
	})
	return rt, clock, &records
}

func span(d time.Duration) program.DurationFragment {
	return program.DurationFragment{Span: d}
}

func push(t *testing.T, rt *runtime.Runtime, b *runtime.Block) {
	t.Helper()
	require.NoError(t, rt.Do(&runtime.PushBlock{Block: b}))
}

func tick(t *testing.T, rt *runtime.Runtime) {
	t.Helper()
	require.NoError(t, rt.Handle(runtime.Event{Name: runtime.EventTick}))
}

func next(t *testing.T, rt *runtime.Runtime) {
	t.Helper()
	require.NoError(t, rt.Handle(runtime.Event{Name: runtime.EventNext}))
}

func completions(records []runtime.OutputRecord) []runtime.OutputRecord {
	var out []runtime.OutputRecord
	for _, rec := range records {
		if rec.Kind == runtime.RecordCompletion {
			out = append(out, rec)
		}
	}
	return out
}
