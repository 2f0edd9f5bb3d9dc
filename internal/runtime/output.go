package runtime

import "time"

// RecordKind classifies output records.
type RecordKind string

const (
	// RecordSegment marks a span of execution opening (a block mounted).
	RecordSegment RecordKind = "segment"

	// RecordMilestone marks intra-block progress, e.g. a round advancing.
	RecordMilestone RecordKind = "milestone"

	// RecordCompletion marks a block finishing, with its tagged reason.
	RecordCompletion RecordKind = "completion"
)

// CompletionReason is the unified tagged completion value. One closed set
// serves every block type; behaviors set the tag, generic pop actions carry
// it, and consumers switch on it exhaustively.
type CompletionReason string

const (
	// ReasonNone means the block has not completed.
	ReasonNone CompletionReason = ""

	// ReasonTimerExpired means a countdown reached zero or a cap was hit.
	ReasonTimerExpired CompletionReason = "timer-expired"

	// ReasonRoundsExhausted means a sequencing block ran out of children.
	ReasonRoundsExhausted CompletionReason = "rounds-exhausted"

	// ReasonUserAdvanced means the user skipped past the block.
	ReasonUserAdvanced CompletionReason = "user-advanced"

	// ReasonStopped means the run was aborted from outside.
	ReasonStopped CompletionReason = "stopped"
)

// OutputRecord is one immutable entry in the engine's output stream.
// External history, analytics, and display layers are the only consumers.
type OutputRecord struct {
	Kind     RecordKind       `json:"kind"`
	BlockKey BlockKey         `json:"block_key"`
	Type     BlockType        `json:"block_type"`
	Label    string           `json:"label,omitempty"`
	Depth    int              `json:"depth"`
	Round    int              `json:"round,omitempty"`
	Reason   CompletionReason `json:"reason,omitempty"`

	// StartedAt/EndedAt bound the record's span. For segments and
	// milestones EndedAt equals StartedAt.
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

// RecordFunc consumes output records.
type RecordFunc func(OutputRecord)

// outputStream fans records out to subscribers synchronously, in
// subscription order.
type outputStream struct {
	subs []RecordFunc
}

func (o *outputStream) subscribe(fn RecordFunc) {
	o.subs = append(o.subs, fn)
}

func (o *outputStream) emit(rec OutputRecord) {
	for _, fn := range o.subs {
		fn(rec)
	}
}
