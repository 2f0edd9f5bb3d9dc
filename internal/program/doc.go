// Package program defines the compiled workout-program node tree consumed by
// the runtime.
//
// Nodes are produced by an external front end (script parser or structured
// definition files) and are immutable once constructed. Each node carries an
// ordered list of semantic fragments (duration, rounds, repetitions, effort,
// label, ...) plus zero or more ordered child groups. The runtime never
// inspects raw source text; fragments are the entire semantic payload.
//
// Fragment is a sealed interface: only the types in this package implement
// it. JSON decoding dispatches on a "type" discriminator so external tools
// can ship node trees as plain JSON or CUE-validated definition files.
package program
