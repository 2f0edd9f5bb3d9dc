package runtime

import (
	"fmt"
	"sort"
)

// Visibility controls cross-block read access to a memory entry.
// Write access is never granted across blocks, whatever the visibility.
type Visibility string

const (
	// VisibilityPrivate entries are readable only by the owning block.
	VisibilityPrivate Visibility = "private"

	// VisibilityPublic entries are readable by anyone, including external
	// inspection tooling.
	VisibilityPublic Visibility = "public"

	// VisibilityInherited entries are readable by the owning block and its
	// descendants on the stack.
	VisibilityInherited Visibility = "inherited"
)

// ValidateVisibility checks that v is one of: private, public, inherited.
func ValidateVisibility(v Visibility) error {
	switch v {
	case VisibilityPrivate, VisibilityPublic, VisibilityInherited:
		return nil
	default:
		return fmt.Errorf("invalid visibility %q: must be private, public, or inherited", v)
	}
}

// RefID identifies one memory entry. Never reused within a Memory instance.
type RefID int64

// Ref is a typed handle to a memory entry. Holding a Ref grants read access;
// write access additionally requires being the owning block (enforced by the
// behavior Context, which is the only writer surface behaviors get).
type Ref[T any] struct {
	id    RefID
	owner BlockKey
}

// ID returns the entry id.
func (r Ref[T]) ID() RefID { return r.id }

// Owner returns the owning block key.
func (r Ref[T]) Owner() BlockKey { return r.owner }

// Zero reports whether the ref was never allocated.
func (r Ref[T]) Zero() bool { return r.id == 0 }

type memoryEntry struct {
	id         RefID
	typeTag    string
	owner      BlockKey
	visibility Visibility
	value      any
	subs       []func(old, new any)
	released   bool
}

// Memory is the typed, owner-scoped, observable key/value store.
//
// Entries are allocated by a block's behaviors during mount, written only by
// that block, and released en masse when the block unmounts. Notification is
// synchronous: a Set during a turn runs subscribers before Set returns, so
// every observer sees the turn's frozen clock.
type Memory struct {
	nextID  RefID
	entries map[RefID]*memoryEntry

	// writer is the block whose code is currently executing, installed by
	// the engine around behavior hooks and scoped event handlers. Empty
	// outside engine-driven code (external tooling, tests), where writes
	// are unrestricted.
	writer BlockKey
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[RefID]*memoryEntry)}
}

// Allocate creates a typed entry owned by owner and returns its ref.
// Panics on an invalid visibility - that is a programming error in a
// behavior, not a runtime condition.
func Allocate[T any](m *Memory, typeTag string, owner BlockKey, initial T, vis Visibility) Ref[T] {
	if err := ValidateVisibility(vis); err != nil {
		panic(fmt.Sprintf("memory allocate %q: %v", typeTag, err))
	}

	m.nextID++
	e := &memoryEntry{
		id:         m.nextID,
		typeTag:    typeTag,
		owner:      owner,
		visibility: vis,
		value:      initial,
	}
	m.entries[e.id] = e
	return Ref[T]{id: e.id, owner: owner}
}

// Get reads the current value of ref.
func Get[T any](m *Memory, ref Ref[T]) (T, error) {
	var zero T
	e, ok := m.entries[ref.id]
	if !ok || e.released {
		return zero, fmt.Errorf("memory ref %d: entry released or never allocated", ref.id)
	}
	v, ok := e.value.(T)
	if !ok {
		return zero, fmt.Errorf("memory ref %d (%s): value has type %T", ref.id, e.typeTag, e.value)
	}
	return v, nil
}

// setWriter installs the active writer identity and returns the previous
// one, so callers can bracket a hook or handler invocation and restore on
// the way out.
func (m *Memory) setWriter(k BlockKey) BlockKey {
	prev := m.writer
	m.writer = k
	return prev
}

// Set writes a new value and notifies subscribers synchronously. While a
// writer identity is installed, only the owning block may write.
//
// Deferred notification would let an observer see a later turn's clock than
// the write it observes, so subscribers always run inside the writing turn.
func Set[T any](m *Memory, ref Ref[T], value T) error {
	e, ok := m.entries[ref.id]
	if !ok || e.released {
		return fmt.Errorf("memory ref %d: entry released or never allocated", ref.id)
	}
	if m.writer != "" && m.writer != e.owner {
		return fmt.Errorf("memory ref %d (%s): block %s may not write entry owned by %s",
			ref.id, e.typeTag, m.writer, e.owner)
	}
	old := e.value
	e.value = value
	for _, sub := range e.subs {
		sub(old, value)
	}
	return nil
}

// Watch registers a synchronous subscriber on ref.
func Watch[T any](m *Memory, ref Ref[T], fn func(old, new T)) error {
	e, ok := m.entries[ref.id]
	if !ok || e.released {
		return fmt.Errorf("memory ref %d: entry released or never allocated", ref.id)
	}
	e.subs = append(e.subs, func(old, new any) {
		o, _ := old.(T)
		n, _ := new.(T)
		fn(o, n)
	})
	return nil
}

// Release disposes a single entry. Releasing an already-released or unknown
// entry is a no-op.
func (m *Memory) Release(id RefID) {
	if e, ok := m.entries[id]; ok {
		e.released = true
		delete(m.entries, id)
	}
}

// ReleaseOwned disposes every entry owned by the given block.
// Called during block unmount.
func (m *Memory) ReleaseOwned(owner BlockKey) {
	for id, e := range m.entries {
		if e.owner == owner {
			e.released = true
			delete(m.entries, id)
		}
	}
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	return len(m.entries)
}

// Criteria filters Search results. Zero-valued fields match anything.
//
// Viewer and Lineage establish the reader's standpoint for visibility
// filtering: an external inspector leaves both empty and sees only public
// entries. A block passes its own key as Viewer and its ancestor chain
// (stack keys below it, plus itself) as Lineage to also see its private
// entries and any inherited entries of its ancestors.
type Criteria struct {
	TypeTag    string
	Owner      BlockKey
	Visibility Visibility

	Viewer  BlockKey
	Lineage []BlockKey
}

// EntrySnapshot is a read-only view of a matching entry.
type EntrySnapshot struct {
	ID         RefID
	TypeTag    string
	Owner      BlockKey
	Visibility Visibility
	Value      any
}

// Search returns snapshots of entries matching the criteria, visibility
// permitting, ordered by entry id (allocation order). Read-only: inspection
// tooling must never use Search results to mutate state.
func (m *Memory) Search(c Criteria) []EntrySnapshot {
	var out []EntrySnapshot
	for _, e := range m.entries {
		if c.TypeTag != "" && e.typeTag != c.TypeTag {
			continue
		}
		if c.Owner != "" && e.owner != c.Owner {
			continue
		}
		if c.Visibility != "" && e.visibility != c.Visibility {
			continue
		}
		if !readableBy(e, c.Viewer, c.Lineage) {
			continue
		}
		out = append(out, EntrySnapshot{
			ID:         e.id,
			TypeTag:    e.typeTag,
			Owner:      e.owner,
			Visibility: e.visibility,
			Value:      e.value,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// readableBy applies the visibility rules from the viewer's standpoint.
func readableBy(e *memoryEntry, viewer BlockKey, lineage []BlockKey) bool {
	switch e.visibility {
	case VisibilityPublic:
		return true
	case VisibilityPrivate:
		return viewer != "" && viewer == e.owner
	case VisibilityInherited:
		if viewer != "" && viewer == e.owner {
			return true
		}
		for _, k := range lineage {
			if k == e.owner {
				return true
			}
		}
		return false
	default:
		return false
	}
}
