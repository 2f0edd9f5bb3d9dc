package runtime

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// BlockKey uniquely identifies a live block instance. Two blocks compiled
// from the same program node get distinct keys - the key names the execution,
// not the definition.
type BlockKey string

// KeyGenerator produces block keys.
// Implemented by UUIDv7Generator (production) and FixedKeyGenerator (tests).
type KeyGenerator interface {
	Generate() BlockKey
}

// UUIDv7Generator generates time-sortable UUIDv7 block keys.
//
// UUIDv7 embeds a timestamp in the most significant bits, so keys sort by
// creation time - helpful when reading result histories and traces.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 key as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() BlockKey {
	return BlockKey(uuid.Must(uuid.NewV7()).String())
}

// FixedKeyGenerator returns predetermined keys for testing.
//
// Deterministic keys enable exact golden-trace comparison. Tests provide a
// known sequence and verify output records against it.
type FixedKeyGenerator struct {
	mu   sync.Mutex
	keys []BlockKey
	idx  int
}

// NewFixedKeyGenerator creates a generator that returns keys in order.
//
// Example:
//
//	gen := NewFixedKeyGenerator("block-1", "block-2")
//	gen.Generate() // "block-1"
//	gen.Generate() // "block-2"
//	gen.Generate() // panic: all keys exhausted
func NewFixedKeyGenerator(keys ...BlockKey) *FixedKeyGenerator {
	return &FixedKeyGenerator{keys: keys}
}

// Generate returns the next predetermined key.
//
// Panics if all keys have been consumed. Fail-fast catches test
// misconfiguration (the test compiled more blocks than it expected).
func (g *FixedKeyGenerator) Generate() BlockKey {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.keys) {
		panic("FixedKeyGenerator: all keys exhausted")
	}
	key := g.keys[g.idx]
	g.idx++
	return key
}

// SequentialKeyGenerator yields "block-1", "block-2", ... without a preset
// list. Useful for tests that do not care about exact keys but still need
// determinism.
type SequentialKeyGenerator struct {
	mu sync.Mutex
	n  int
}

// Generate returns the next sequential key.
func (g *SequentialKeyGenerator) Generate() BlockKey {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return BlockKey("block-" + strconv.Itoa(g.n))
}
