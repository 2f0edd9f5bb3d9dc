// Package runtime implements the wodkit execution engine.
//
// The engine interprets a compiled workout-program node tree and drives its
// progress through timer ticks and user commands, producing a stream of
// timestamped output records.
//
// ARCHITECTURE:
//
// Single-Threaded Turn Loop:
// All mutation happens inside execution turns on one logical thread. This
// ensures:
// - Predictable handler evaluation order
// - Identical timestamps across every action of one external event
// - Simple reasoning about causality
//
// Event Processing Flow:
// 1. An external event (tick, start, next, pause, resume, stop) enters Handle()
// 2. The bus dispatches it to scope-filtered handlers in registration order
// 3. Handlers return actions; one new Turn executes them FIFO to completion
// 4. Actions mutate the stack; block lifecycle hooks invoke behaviors
// 5. Behaviors mutate memory and enqueue further actions into the same turn
//
// CRITICAL PATTERNS:
//
// Frozen Clock:
// A Turn snapshots the clock once at construction. Every action, lifecycle
// hook, and memory notification within the turn observes that identical
// instant. A pop-notify-push cascade therefore produces a zero-gap seam
// between the old block's end time and the new block's start time.
//
// Bounded Turns:
// A turn that dequeues more actions than its configured limit fails with
// IterationLimitError instead of looping. A runaway cascade is a behavior
// defect, never something to mask.
//
// Single-Writer Memory:
// A memory entry is written only by behaviors of the block that allocated
// it. Visibility (private/public/inherited) gates reads, never writes.
package runtime
