// Package store provides SQLite-backed history of pipeline runs.
//
// Every run records:
//   - Runs: source description and the pipeline configuration
//   - Generations: canonical snapshot and content hash of each generation
//   - Reconstitutions: the rewrite trace, when debug tracing is on
//   - Diagnostics: semantic loss reported by each pass
//
// # Ordering
//
// Runs are ordered by a store-assigned seq, generations by their position in
// the run. Nothing is ordered by wall time or by id, so two databases fed
// the same inputs list identical histories.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Snapshots and hashes come from internal/snapshot, so a stored hash can be
// compared with a freshly computed one.
package store
