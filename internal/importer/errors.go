package importer

import (
	"errors"

	"github.com/roach88/crate/internal/parser"
	"github.com/roach88/crate/internal/store"
)

// ErrorKind names the category of a failed import.
type ErrorKind string

const (
	KindMalformedDocument     ErrorKind = "MalformedDocumentError"
	KindMissingField          ErrorKind = "MissingFieldError"
	KindStorageIO             ErrorKind = "StorageIOError"
	KindSchemaVersionConflict ErrorKind = "SchemaVersionConflictError"
	KindOther                 ErrorKind = "Error"
)

// Kind classifies err for presentation. Returns "" for a nil error.
// Uses errors.As to handle wrapped errors.
func Kind(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var (
		malformed *parser.MalformedDocumentError
		missing   *parser.MissingFieldError
		storageIO *store.StorageIOError
		conflict  *store.SchemaVersionConflictError
	)
	switch {
	case errors.As(err, &malformed):
		return KindMalformedDocument
	case errors.As(err, &missing):
		return KindMissingField
	case errors.As(err, &conflict):
		return KindSchemaVersionConflict
	case errors.As(err, &storageIO):
		return KindStorageIO
	}
	return KindOther
}
