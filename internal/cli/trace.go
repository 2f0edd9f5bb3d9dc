package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/wodkit/internal/runtime"
	"github.com/roach88/wodkit/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// TraceResult holds the complete trace output for one run.
type TraceResult struct {
	RunID    string                 `json:"run_id"`
	Program  string                 `json:"program,omitempty"`
	Started  time.Time              `json:"started_at"`
	Finished *time.Time             `json:"finished_at,omitempty"`
	Records  []runtime.OutputRecord `json:"records"`
	Stats    TraceStats             `json:"stats"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	TotalRecords int `json:"total_records"`
	Segments     int `json:"segments"`
	Milestones   int `json:"milestones"`
	Completions  int `json:"completions"`
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID    string     `json:"run_id"`
	Program  string     `json:"program,omitempty"`
	Started  time.Time  `json:"started_at"`
	Finished *time.Time `json:"finished_at,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Inspect recorded run history",
		Long: `Inspect the result history database.

Without arguments, lists all recorded runs, newest first. With a run ID,
prints that run's full record timeline: segments opening, round
milestones, and completions with their reasons.

Examples:
  wodkit trace --db ./history.db
  wodkit trace --db ./history.db 018f3c6e-...
  wodkit trace --db ./history.db 018f3c6e-... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runTraceList(opts, cmd)
			}
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite result history (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTraceList(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	if opts.Format == "json" {
		summaries := make([]RunSummary, len(runs))
		for i, r := range runs {
			summaries[i] = RunSummary{
				RunID:    r.ID,
				Program:  r.Program,
				Started:  r.StartedAt,
				Finished: optionalTime(r.FinishedAt),
			}
		}
		return formatter.Success(summaries)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tPROGRAM\tSTARTED\tSTATUS")
	for _, r := range runs {
		status := "in progress"
		if r.Finished() {
			status = "finished " + r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Program, r.StartedAt.Format(time.RFC3339), status)
	}
	return w.Flush()
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	records, err := st.ReadRecords(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read records", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		return formatter.Success(TraceResult{
			RunID:    run.ID,
			Program:  run.Program,
			Started:  run.StartedAt,
			Finished: optionalTime(run.FinishedAt),
			Records:  records,
			Stats:    traceStats(records),
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s", run.ID)
	if run.Program != "" {
		fmt.Fprintf(out, " (%s)", run.Program)
	}
	fmt.Fprintf(out, "\nStarted %s\n\n", run.StartedAt.Format(time.RFC3339))

	for _, rec := range records {
		printRecord(out, opts.Format, run.StartedAt, rec)
	}

	stats := traceStats(records)
	fmt.Fprintf(out, "\n%d record(s): %d segment(s), %d milestone(s), %d completion(s)\n",
		stats.TotalRecords, stats.Segments, stats.Milestones, stats.Completions)
	return nil
}

func traceStats(records []runtime.OutputRecord) TraceStats {
	stats := TraceStats{TotalRecords: len(records)}
	for _, rec := range records {
		switch rec.Kind {
		case runtime.RecordSegment:
			stats.Segments++
		case runtime.RecordMilestone:
			stats.Milestones++
		case runtime.RecordCompletion:
			stats.Completions++
		}
	}
	return stats
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
