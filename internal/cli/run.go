package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/wodkit/internal/compile"
	"github.com/roach88/wodkit/internal/runtime"
	"github.com/roach88/wodkit/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Tick     time.Duration

	// Clock allows overriding the time source (for testing).
	// If nil, defaults to the system clock.
	Clock runtime.Clock

	// Input allows overriding the command source (for testing).
	// If nil, defaults to os.Stdin.
	Input io.Reader
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <definition.cue>",
		Short: "Execute a program definition interactively",
		Long: `Execute a workout program definition.

The program is loaded, checked against the schema, and driven by a
fixed-interval tick plus commands read line by line from standard input:

  next     advance past the current block
  pause    pause the active timer
  resume   resume a paused timer
  stop     abort the run

The run ends when the program completes, on stop, or on Ctrl-C. With --db
set, every output record is persisted to the result history as it is
emitted.

Example:
  wodkit run ./murph.cue
  wodkit run --db ./history.db ./murph.cue --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite result history (optional)")
	cmd.Flags().DurationVar(&opts.Tick, "tick", time.Second, "tick interval")

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	slog.Info("loading definition", "path", path)
	loaded, loadErr := LoadProgram(path)
	if loadErr != nil {
		return WrapExitError(ExitCommandError, "failed to load definition", loadErr)
	}
	slog.Info("definition loaded", "name", loaded.Name, "nodes", loaded.Program.Len())

	comp, err := compile.New(loaded.Program, compile.DefaultStrategies()...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build compiler", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = runtime.SystemClock{}
	}
	rt := runtime.New(comp, loaded.Program.Roots(), runtime.WithClock(clock))

	// Stream records to the terminal as they are emitted.
	startedAt := clock.Now()
	rt.OnRecord(func(rec runtime.OutputRecord) {
		printRecord(cmd.OutOrStdout(), opts.Format, startedAt, rec)
	})

	// Optional result history.
	var writer *store.RunWriter
	if opts.Database != "" {
		slog.Info("opening result history", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		runID := uuid.Must(uuid.NewV7()).String()
		if err := st.BeginRun(context.Background(), runID, loaded.Name, startedAt); err != nil {
			return WrapExitError(ExitCommandError, "failed to register run", err)
		}
		writer = st.NewRunWriter(runID)
		rt.OnRecord(writer.Record)
		defer func() {
			if err := st.FinishRun(context.Background(), runID, clock.Now()); err != nil {
				slog.Error("error finishing run", "error", err)
			}
			slog.Info("run recorded", "run_id", runID, "records", writer.Count())
			fmt.Fprintf(cmd.OutOrStdout(), "Run recorded: %s\n", runID)
		}()
	}

	// Setup signal handling for graceful shutdown.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	// Commands arrive on a channel so the engine stays single-threaded:
	// only this goroutine ever touches the runtime.
	input := opts.Input
	if input == nil {
		input = cmd.InOrStdin()
	}
	commands := readCommands(input)

	if err := rt.Handle(runtime.Event{Name: runtime.EventStart}); err != nil {
		return WrapExitError(ExitFailure, "run failed to start", err)
	}
	if rt.Stack().Depth() == 0 {
		return NewExitError(ExitFailure, "program produced no blocks")
	}

	ticker := time.NewTicker(opts.Tick)
	defer ticker.Stop()

	for {
		var ev runtime.Event

		select {
		case <-ctx.Done():
			if err := rt.Handle(runtime.Event{Name: runtime.EventStop}); err != nil {
				return WrapExitError(ExitFailure, "stop failed", err)
			}
			if wErr := writerErr(writer); wErr != nil {
				return WrapExitError(ExitFailure, "result history write failed", wErr)
			}
			slog.Info("run stopped")
			return nil

		case <-ticker.C:
			ev = runtime.Event{Name: runtime.EventTick}

		case line, ok := <-commands:
			if !ok {
				// Input closed: keep ticking, the timers finish the run.
				commands = nil
				continue
			}
			name, known := commandEvent(line)
			if !known {
				fmt.Fprintf(cmd.OutOrStdout(), "unknown command %q (next, pause, resume, stop)\n", line)
				continue
			}
			ev = runtime.Event{Name: name}
		}

		if err := rt.Handle(ev); err != nil {
			return WrapExitError(ExitFailure, "run failed", err)
		}
		if wErr := writerErr(writer); wErr != nil {
			return WrapExitError(ExitFailure, "result history write failed", wErr)
		}
		if rt.Stack().Depth() == 0 {
			slog.Info("run complete")
			return nil
		}
	}
}

// readCommands feeds trimmed, lowercased input lines to a channel, closing
// it when the reader ends.
func readCommands(r io.Reader) <-chan string {
	// Buffered so a short scripted input drains even if the run ends early.
	ch := make(chan string, 16)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.ToLower(strings.TrimSpace(scanner.Text()))
			if line == "" {
				continue
			}
			ch <- line
		}
	}()
	return ch
}

// commandEvent maps an input line to its engine event name.
func commandEvent(line string) (string, bool) {
	switch line {
	case "next", "n":
		return runtime.EventNext, true
	case "pause", "p":
		return runtime.EventPause, true
	case "resume", "r":
		return runtime.EventResume, true
	case "stop", "q", "quit":
		return runtime.EventStop, true
	default:
		return "", false
	}
}

func writerErr(w *store.RunWriter) error {
	if w == nil {
		return nil
	}
	return w.Err()
}

// printRecord renders one output record. Text mode shows a clock offset
// from the run start; JSON mode emits one object per line.
func printRecord(w io.Writer, format string, startedAt time.Time, rec runtime.OutputRecord) {
	if format == "json" {
		_ = json.NewEncoder(w).Encode(rec)
		return
	}

	label := rec.Label
	if label == "" {
		label = string(rec.Type)
	}
	indent := strings.Repeat("  ", rec.Depth)

	switch rec.Kind {
	case runtime.RecordSegment:
		fmt.Fprintf(w, "[%s] %s%s\n", clockOffset(startedAt, rec.StartedAt), indent, label)
	case runtime.RecordMilestone:
		fmt.Fprintf(w, "[%s] %s%s round %d\n", clockOffset(startedAt, rec.EndedAt), indent, label, rec.Round)
	case runtime.RecordCompletion:
		fmt.Fprintf(w, "[%s] %s%s done (%s, %s)\n", clockOffset(startedAt, rec.EndedAt), indent, label, rec.Reason, rec.Elapsed)
	}
}

// clockOffset formats the span since the run started as mm:ss.
func clockOffset(startedAt, at time.Time) string {
	d := at.Sub(startedAt)
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
