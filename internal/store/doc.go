// Package store provides SQLite-backed durable storage for album records.
//
// The store holds one collection (default "albums") with:
//   - Records: keyed by an AUTOINCREMENT integer id, never reused
//   - Secondary indexes: one SQLite index per declared field
//   - Imports: one log row per committed batch, identified by a UUIDv7
//
// # Critical Patterns
//
// Atomic Batches
//   - A WriteTx inserts every record of a batch and its import row, or nothing
//   - Indexes are maintained by SQLite inside the same transaction, so primary
//     rows and index entries never disagree
//
// Insertion Order
//   - All enumeration uses ORDER BY id ASC
//   - Ids are assigned in submission order within a batch
//
// Single Writer
//   - An advisory file lock (<path>.lock) makes the handle process-wide
//   - A mutex serializes write transactions within the process
//
// # Database Configuration
//
//   - WAL mode: Readers see only committed state during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - _txlock=immediate: Write transactions take the write lock at BEGIN
//
// Schema versions are tracked in PRAGMA user_version. Opening with a version
// lower than the persisted one fails with SchemaVersionConflictError.
package store
