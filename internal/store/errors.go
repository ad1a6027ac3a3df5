package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when no record has the requested id.
	ErrNotFound = errors.New("record not found")

	// ErrUnknownIndex is returned for lookups on a field without a declared index.
	ErrUnknownIndex = errors.New("unknown index")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")

	// ErrLocked is returned by Open when another handle holds the store.
	ErrLocked = errors.New("store is locked by another handle")

	// ErrTxDone is returned by operations on a committed or aborted WriteTx.
	ErrTxDone = errors.New("transaction already finished")
)

// StorageIOError reports a failure of the underlying storage medium.
// A failed write leaves the store as it was before the transaction began.
type StorageIOError struct {
	// Op names the failed operation: "open", "begin", "insert", "commit", "read".
	Op string

	// Err is the underlying driver or filesystem error.
	Err error
}

func (e *StorageIOError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageIOError) Unwrap() error {
	return e.Err
}

// SchemaVersionConflictError reports an Open at a version lower than the
// version already persisted in the database.
type SchemaVersionConflictError struct {
	Requested int
	Persisted int
}

func (e *SchemaVersionConflictError) Error() string {
	return fmt.Sprintf("schema version conflict: requested %d, persisted %d", e.Requested, e.Persisted)
}

// IsStorageIO returns true if err is or wraps a StorageIOError.
func IsStorageIO(err error) bool {
	var se *StorageIOError
	return errors.As(err, &se)
}

// IsVersionConflict returns true if err is or wraps a SchemaVersionConflictError.
func IsVersionConflict(err error) bool {
	var ve *SchemaVersionConflictError
	return errors.As(err, &ve)
}

func ioError(op string, err error) error {
	return &StorageIOError{Op: op, Err: err}
}
