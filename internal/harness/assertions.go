package harness

import (
	"fmt"

	"github.com/roach88/wodkit/internal/runtime"
)

// evaluateAssertions checks every scenario assertion against the captured
// records and final engine state, collecting all failures rather than
// stopping at the first.
func evaluateAssertions(scenario *Scenario, rt *runtime.Runtime, result *Result) {
	for i, a := range scenario.Assertions {
		switch a.Type {
		case AssertRecordContains:
			assertRecordContains(i, a, result)
		case AssertRecordCount:
			assertRecordCount(i, a, result)
		case AssertCompletionOrder:
			assertCompletionOrder(i, a, result)
		case AssertStackEmpty:
			if depth := rt.Stack().Depth(); depth != 0 {
				result.AddError(fmt.Sprintf("assertion %d: stack not empty, depth %d", i, depth))
			}
		}
	}
}

// matches reports whether a record satisfies every specified assertion field.
// Unspecified fields (zero values) are not checked - subset match.
func matches(a Assertion, rec runtime.OutputRecord) bool {
	if a.Kind != "" && string(rec.Kind) != a.Kind {
		return false
	}
	if a.Label != "" && rec.Label != a.Label {
		return false
	}
	if a.Reason != "" && string(rec.Reason) != a.Reason {
		return false
	}
	if a.Round != 0 && rec.Round != a.Round {
		return false
	}
	return true
}

func assertRecordContains(i int, a Assertion, result *Result) {
	for _, rec := range result.Records {
		if matches(a, rec) {
			return
		}
	}
	result.AddError(fmt.Sprintf(
		"assertion %d: no record matches kind=%q label=%q reason=%q round=%d",
		i, a.Kind, a.Label, a.Reason, a.Round))
}

func assertRecordCount(i int, a Assertion, result *Result) {
	count := 0
	for _, rec := range result.Records {
		if matches(a, rec) {
			count++
		}
	}
	if count != a.Count {
		result.AddError(fmt.Sprintf(
			"assertion %d: got %d matching record(s), want %d", i, count, a.Count))
	}
}

func assertCompletionOrder(i int, a Assertion, result *Result) {
	var labels []string
	for _, rec := range result.Records {
		if rec.Kind == runtime.RecordCompletion {
			labels = append(labels, rec.Label)
		}
	}
	if len(labels) != len(a.Labels) {
		result.AddError(fmt.Sprintf(
			"assertion %d: got %d completion(s) %v, want %d %v",
			i, len(labels), labels, len(a.Labels), a.Labels))
		return
	}
	for j := range labels {
		if labels[j] != a.Labels[j] {
			result.AddError(fmt.Sprintf(
				"assertion %d: completion %d is %q, want %q", i, j, labels[j], a.Labels[j]))
			return
		}
	}
}
