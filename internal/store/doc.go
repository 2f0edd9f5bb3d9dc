// Package store provides durable result history for workout runs.
//
// The engine itself never touches storage: the store subscribes to the
// runtime's output-record stream as an external collaborator and persists
// each record as it is emitted. SQLite with WAL mode gives concurrent
// read access (the trace command) while a run is being written.
//
// Records are keyed by (run, seq) and inserted idempotently, so replaying
// the same stream into the same run is harmless.
package store
