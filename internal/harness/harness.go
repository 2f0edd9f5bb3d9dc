// Package harness executes scenario files against the real engine and
// compares captured record streams with golden traces.
//
// Every scenario runs with a manual clock pinned at the canonical epoch and
// a sequential key generator, so the trace a scenario produces is
// bit-identical across machines. The harness drives the same entry point
// production uses (Runtime.Handle); nothing is stubbed or manufactured.
package harness

import (
	"fmt"
	"time"

	"github.com/roach88/wodkit/internal/compile"
	"github.com/roach88/wodkit/internal/runtime"
	"github.com/roach88/wodkit/internal/testutil"
)

// commandEvents maps script commands to engine event names.
var commandEvents = map[string]string{
	"start":  runtime.EventStart,
	"tick":   runtime.EventTick,
	"next":   runtime.EventNext,
	"pause":  runtime.EventPause,
	"resume": runtime.EventResume,
	"stop":   runtime.EventStop,
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: the script ran without engine errors
	// and every assertion held.
	Pass bool `json:"pass"`

	// Records is the captured output stream in emission order.
	Records []runtime.OutputRecord `json:"records"`

	// FinalDepth is the stack depth after the script finished.
	FinalDepth int `json:"final_depth"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Records: []runtime.OutputRecord{},
		Errors:  []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh runtime for isolation. A manual clock
// and sequential keys make the captured trace fully deterministic.
func Run(scenario *Scenario) (*Result, error) {
	prog, err := scenario.buildProgram()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	comp, err := compile.New(prog, compile.DefaultStrategies()...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	clock := testutil.NewManualClock()
	rt := runtime.New(comp, prog.Roots(),
		runtime.WithClock(clock),
		runtime.WithKeyGenerator(&runtime.SequentialKeyGenerator{}),
	)

	result := NewResult()
	rt.OnRecord(func(rec runtime.OutputRecord) {
		result.Records = append(result.Records, rec)
	})

	if err := runScript(scenario, rt, clock, result); err != nil {
		result.AddError(err.Error())
	}
	result.FinalDepth = rt.Stack().Depth()

	evaluateAssertions(scenario, rt, result)
	return result, nil
}

// runScript replays the timed command sequence. An engine error aborts the
// script; the records captured so far stay in the result.
func runScript(scenario *Scenario, rt *runtime.Runtime, clock *testutil.ManualClock, result *Result) error {
	for i, step := range scenario.Script {
		repeat := step.Repeat
		if repeat < 1 {
			repeat = 1
		}

		for n := 0; n < repeat; n++ {
			if step.Advance != "" {
				d, err := time.ParseDuration(step.Advance)
				if err != nil {
					return fmt.Errorf("script step %d: %w", i, err)
				}
				clock.Advance(d)
			}
			if step.Command == "" {
				continue
			}
			ev := runtime.Event{Name: commandEvents[step.Command]}
			if err := rt.Handle(ev); err != nil {
				return fmt.Errorf("script step %d (%s): %w", i, step.Command, err)
			}
		}
	}
	return nil
}
