// Package behaviors provides the composable behavior set the compile
// strategies assemble blocks from.
//
// Each behavior is a small unit holding only the data it needs. A behavior
// that depends on a sibling (ChildrenBehavior needs the round counter)
// receives an explicit reference at construction - there is no name-keyed
// runtime lookup.
//
// Completion is uniform across the set: a behavior that decides its block is
// finished calls MarkComplete with a tagged reason and returns the pop
// action; nothing else ever pops a block on a behavior's behalf.
package behaviors
