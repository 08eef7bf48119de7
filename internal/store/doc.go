// Package store provides SQLite-backed storage for campaign outcomes.
//
// Three tables:
//   - campaigns: one row per executed campaign, with its configuration,
//     verdict, step statistics and content-addressed result id
//   - failures: one row per failure report, keyed by the report's content
//     id, the report itself as a msgpack BLOB
//   - corpus: numeric arguments harvested from minimal failing sequences,
//     fed back into later campaigns as a draw dictionary
//
// # Ordering
//
// Campaigns are ordered by a logical seq column, never by wall time.
// Failures are ordered by run index, then id.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
