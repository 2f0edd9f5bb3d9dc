package program

import (
	"encoding/json"
	"fmt"
	"time"
)

// Fragment is a sealed interface over the semantic payload types a node can
// carry. Only the fragment types in this package implement it.
type Fragment interface {
	fragment() // Sealed - only these types implement it

	// Kind returns the JSON discriminator for this fragment type.
	Kind() FragmentKind
}

// FragmentKind is the closed set of fragment discriminators.
type FragmentKind string

const (
	KindDuration   FragmentKind = "duration"
	KindRounds     FragmentKind = "rounds"
	KindRep        FragmentKind = "rep"
	KindEffort     FragmentKind = "effort"
	KindDistance   FragmentKind = "distance"
	KindResistance FragmentKind = "resistance"
	KindLabel      FragmentKind = "label"
)

// ValidateFragmentKind checks that kind is a member of the closed set.
func ValidateFragmentKind(kind string) error {
	switch FragmentKind(kind) {
	case KindDuration, KindRounds, KindRep, KindEffort, KindDistance,
		KindResistance, KindLabel:
		return nil
	default:
		return fmt.Errorf("invalid fragment kind %q", kind)
	}
}

// TimerDirection distinguishes countdown from count-up timing.
type TimerDirection string

const (
	// CountDown counts from the configured duration to zero.
	CountDown TimerDirection = "down"
	// CountUp counts from zero; the duration is a cap (zero = unbounded).
	CountUp TimerDirection = "up"
)

// DurationFragment declares a timed span.
type DurationFragment struct {
	// Span is the configured length. Whole milliseconds only on the wire -
	// the external parser quantizes to the tick interval, so sub-millisecond
	// precision never survives to this layer.
	Span time.Duration `json:"-"`

	// Direction selects countdown or count-up semantics.
	Direction TimerDirection `json:"direction"`
}

func (DurationFragment) fragment()          {}
func (DurationFragment) Kind() FragmentKind { return KindDuration }

// durationWire is the JSON form of DurationFragment: millisecond integer span.
type durationWire struct {
	SpanMS    int64          `json:"span_ms"`
	Direction TimerDirection `json:"direction"`
}

// MarshalJSON encodes the span as whole milliseconds.
func (f DurationFragment) MarshalJSON() ([]byte, error) {
	return json.Marshal(durationWire{
		SpanMS:    f.Span.Milliseconds(),
		Direction: f.Direction,
	})
}

// UnmarshalJSON decodes a millisecond integer span.
func (f *DurationFragment) UnmarshalJSON(data []byte) error {
	var w durationWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.SpanMS < 0 {
		return fmt.Errorf("duration fragment requires span_ms >= 0, got %d", w.SpanMS)
	}
	f.Span = time.Duration(w.SpanMS) * time.Millisecond
	f.Direction = w.Direction
	return nil
}

// RoundsFragment declares a repetition scheme for a node's children.
type RoundsFragment struct {
	// Total is the number of full passes over the child groups. Must be >= 1.
	Total int `json:"total"`
}

func (RoundsFragment) fragment()          {}
func (RoundsFragment) Kind() FragmentKind { return KindRounds }

// RepFragment declares a repetition count for a single movement.
type RepFragment struct {
	Count int `json:"count"`
}

func (RepFragment) fragment()          {}
func (RepFragment) Kind() FragmentKind { return KindRep }

// EffortFragment names a movement or exercise.
type EffortFragment struct {
	Name string `json:"name"`
}

func (EffortFragment) fragment()          {}
func (EffortFragment) Kind() FragmentKind { return KindEffort }

// DistanceFragment declares a distance quantity (e.g. 400 m row).
type DistanceFragment struct {
	Amount int64  `json:"amount"`
	Units  string `json:"units"`
}

func (DistanceFragment) fragment()          {}
func (DistanceFragment) Kind() FragmentKind { return KindDistance }

// ResistanceFragment declares a load quantity (e.g. 95 lb).
type ResistanceFragment struct {
	Amount int64  `json:"amount"`
	Units  string `json:"units"`
}

func (ResistanceFragment) fragment()          {}
func (ResistanceFragment) Kind() FragmentKind { return KindResistance }

// LabelFragment carries free display text (e.g. "Rest", "Warmup").
type LabelFragment struct {
	Text string `json:"text"`
}

func (LabelFragment) fragment()          {}
func (LabelFragment) Kind() FragmentKind { return KindLabel }

// MarshalFragment serializes a fragment with its "type" discriminator.
func MarshalFragment(f Fragment) ([]byte, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal %s fragment: %w", f.Kind(), err)
	}

	// Splice the discriminator into the object body.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("marshal %s fragment: %w", f.Kind(), err)
	}
	kind, _ := json.Marshal(f.Kind())
	fields["type"] = kind

	return json.Marshal(fields)
}

// UnmarshalFragment decodes a fragment from its discriminated JSON form.
// Unknown discriminators are an error, not a silent skip - a node tree with
// fragments this engine cannot interpret must fail loudly at load time.
func UnmarshalFragment(data []byte) (Fragment, error) {
	var probe struct {
		Type FragmentKind `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("fragment envelope: %w", err)
	}

	switch probe.Type {
	case KindDuration:
		var f DurationFragment
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		if f.Direction == "" {
			f.Direction = CountDown
		}
		if f.Direction != CountDown && f.Direction != CountUp {
			return nil, fmt.Errorf("invalid timer direction %q", f.Direction)
		}
		return f, nil

	case KindRounds:
		var f RoundsFragment
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		if f.Total < 1 {
			return nil, fmt.Errorf("rounds fragment requires total >= 1, got %d", f.Total)
		}
		return f, nil

	case KindRep:
		var f RepFragment
		err := json.Unmarshal(data, &f)
		return f, err

	case KindEffort:
		var f EffortFragment
		err := json.Unmarshal(data, &f)
		return f, err

	case KindDistance:
		var f DistanceFragment
		err := json.Unmarshal(data, &f)
		return f, err

	case KindResistance:
		var f ResistanceFragment
		err := json.Unmarshal(data, &f)
		return f, err

	case KindLabel:
		var f LabelFragment
		err := json.Unmarshal(data, &f)
		return f, err

	default:
		return nil, fmt.Errorf("unknown fragment kind %q", probe.Type)
	}
}
