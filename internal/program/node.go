package program

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// NodeID identifies a node within one program. IDs are assigned by the
// external front end and are unique per program, not globally.
type NodeID string

// SourceMeta locates a node in its original script for diagnostics.
// The core never interprets it.
type SourceMeta struct {
	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Node is one compiled program node: an ordered fragment payload plus
// ordered child-id groups. Immutable after construction.
//
// Children is a list of groups, not a flat list: a group holds node ids that
// execute as one unit (e.g. a superset pairing). Sequencing behaviors walk
// groups in order; the compiler receives a whole group at a time.
type Node struct {
	ID        NodeID     `json:"id"`
	Fragments []Fragment `json:"-"`
	Children  [][]NodeID `json:"children,omitempty"`
	Meta      SourceMeta `json:"meta,omitempty"`
}

// nodeWire carries fragments as raw discriminated objects.
type nodeWire struct {
	ID        NodeID            `json:"id"`
	Fragments []json.RawMessage `json:"fragments"`
	Children  [][]NodeID        `json:"children,omitempty"`
	Meta      SourceMeta        `json:"meta,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (n Node) MarshalJSON() ([]byte, error) {
	w := nodeWire{
		ID:       n.ID,
		Children: n.Children,
		Meta:     n.Meta,
	}
	w.Fragments = make([]json.RawMessage, len(n.Fragments))
	for i, f := range n.Fragments {
		data, err := MarshalFragment(f)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		w.Fragments[i] = data
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	n.ID = w.ID
	n.Children = w.Children
	n.Meta = w.Meta
	n.Fragments = make([]Fragment, len(w.Fragments))
	for i, raw := range w.Fragments {
		f, err := UnmarshalFragment(raw)
		if err != nil {
			return fmt.Errorf("node %s fragment[%d]: %w", w.ID, i, err)
		}
		n.Fragments[i] = f
	}
	return nil
}

// HasChildren reports whether the node has at least one non-empty child group.
func (n *Node) HasChildren() bool {
	for _, group := range n.Children {
		if len(group) > 0 {
			return true
		}
	}
	return false
}

// ChildGroups returns the non-empty child groups in declaration order.
func (n *Node) ChildGroups() [][]NodeID {
	groups := make([][]NodeID, 0, len(n.Children))
	for _, group := range n.Children {
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}

// Duration returns the node's duration fragment, if any. The first duration
// fragment wins; the front end never emits more than one.
func (n *Node) Duration() (DurationFragment, bool) {
	for _, f := range n.Fragments {
		if d, ok := f.(DurationFragment); ok {
			return d, true
		}
	}
	return DurationFragment{}, false
}

// Rounds returns the node's round count and whether a rounds fragment exists.
func (n *Node) Rounds() (int, bool) {
	for _, f := range n.Fragments {
		if r, ok := f.(RoundsFragment); ok {
			return r.Total, true
		}
	}
	return 0, false
}

// Reps returns the node's repetition count, if declared.
func (n *Node) Reps() (int, bool) {
	for _, f := range n.Fragments {
		if r, ok := f.(RepFragment); ok {
			return r.Count, true
		}
	}
	return 0, false
}

// Effort returns the node's movement name, if declared.
func (n *Node) Effort() (string, bool) {
	for _, f := range n.Fragments {
		if e, ok := f.(EffortFragment); ok {
			return e.Name, true
		}
	}
	return "", false
}

// Label builds the node's display label from its fragments. Explicit label
// fragments win; otherwise the effort name is used. The result is NFC
// normalized so labels compare and hash identically regardless of how the
// front end composed them.
func (n *Node) Label() string {
	for _, f := range n.Fragments {
		if l, ok := f.(LabelFragment); ok {
			return norm.NFC.String(strings.TrimSpace(l.Text))
		}
	}
	if name, ok := n.Effort(); ok {
		return norm.NFC.String(strings.TrimSpace(name))
	}
	return ""
}

// IsRest reports whether the node is a rest span: a timed leaf whose label
// reads "rest" (case-insensitive).
func (n *Node) IsRest() bool {
	if _, ok := n.Duration(); !ok {
		return false
	}
	return strings.EqualFold(n.Label(), "rest")
}

// TotalSpan returns the configured duration, or zero if untimed.
func (n *Node) TotalSpan() time.Duration {
	if d, ok := n.Duration(); ok {
		return d.Span
	}
	return 0
}
