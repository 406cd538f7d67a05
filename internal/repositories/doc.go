// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [CheckRepository] : Availability probe outcomes keyed by infohash, with freshness lookups and pruning
//   - [CheckCacheAdapter] : services.CheckCache over [CheckRepository] so recent probe results are reused across cycles
//
// Sequence numbers provide stable, human-readable ordering (e.g., check #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
