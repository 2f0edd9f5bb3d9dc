package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wodkit/internal/runtime"
	"github.com/roach88/wodkit/internal/store"
	"github.com/roach88/wodkit/internal/testutil"
)

// seedHistory writes one finished run with a few records and returns the
// database path.
func seedHistory(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.BeginRun(ctx, "run-1", "cindy", testutil.Epoch))

	w := st.NewRunWriter("run-1")
	w.Record(runtime.OutputRecord{
		Kind: runtime.RecordSegment, BlockKey: "block-0", Type: runtime.BlockTimer,
		Label: "Cindy", Depth: 1,
		StartedAt: testutil.Epoch, EndedAt: testutil.Epoch,
	})
	w.Record(runtime.OutputRecord{
		Kind: runtime.RecordMilestone, BlockKey: "block-0", Type: runtime.BlockTimer,
		Label: "Cindy", Depth: 1, Round: 2,
		StartedAt: testutil.Epoch.Add(time.Minute), EndedAt: testutil.Epoch.Add(time.Minute),
	})
	w.Record(runtime.OutputRecord{
		Kind: runtime.RecordCompletion, BlockKey: "block-0", Type: runtime.BlockTimer,
		Label: "Cindy", Depth: 1, Reason: runtime.ReasonTimerExpired,
		StartedAt: testutil.Epoch, EndedAt: testutil.Epoch.Add(20 * time.Minute),
		Elapsed: 20 * time.Minute,
	})
	require.NoError(t, w.Err())

	require.NoError(t, st.FinishRun(ctx, "run-1", testutil.Epoch.Add(20*time.Minute)))
	return path
}

func TestTrace_ListsRuns(t *testing.T) {
	path := seedHistory(t)

	out, err := executeCommand(t, "trace", "--db", path)
	require.NoError(t, err)

	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "cindy")
	assert.Contains(t, out, "finished 20m0s")
}

func TestTrace_ListEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	st.Close()

	out, err := executeCommand(t, "trace", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestTrace_PrintsTimeline(t *testing.T) {
	path := seedHistory(t)

	out, err := executeCommand(t, "trace", "--db", path, "run-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Run run-1 (cindy)")
	assert.Contains(t, out, "[00:00]")
	assert.Contains(t, out, "round 2")
	assert.Contains(t, out, "timer-expired")
	assert.Contains(t, out, "3 record(s): 1 segment(s), 1 milestone(s), 1 completion(s)")
}

func TestTrace_JSON(t *testing.T) {
	path := seedHistory(t)

	out, err := executeCommand(t, "trace", "--db", path, "run-1", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.Data.RunID)
	require.Len(t, resp.Data.Records, 3)
	assert.Equal(t, runtime.RecordCompletion, resp.Data.Records[2].Kind)
	assert.Equal(t, 3, resp.Data.Stats.TotalRecords)
	require.NotNil(t, resp.Data.Finished)
}

func TestTrace_UnknownRun(t *testing.T) {
	path := seedHistory(t)

	_, err := executeCommand(t, "trace", "--db", path, "run-missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_MissingDatabaseFlag(t *testing.T) {
	_, err := executeCommand(t, "trace")
	require.Error(t, err)
}
