package parser

import (
	"errors"
	"fmt"
)

// MalformedDocumentError reports input that cannot be read as XML at all.
type MalformedDocumentError struct {
	// Offset is the input byte offset where decoding stopped.
	Offset int64

	// Err is the underlying decoder error.
	Err error
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed document at offset %d: %v", e.Offset, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

// MissingFieldError reports an entry without one of the required fields.
type MissingFieldError struct {
	// EntryIndex is the zero-based position of the entry in document order.
	EntryIndex int

	// Field is the name of the absent field.
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("entry %d: missing required field %q", e.EntryIndex, e.Field)
}

// IsMalformed returns true if err is or wraps a MalformedDocumentError.
func IsMalformed(err error) bool {
	var me *MalformedDocumentError
	return errors.As(err, &me)
}

// IsMissingField returns true if err is or wraps a MissingFieldError.
func IsMissingField(err error) bool {
	var mf *MissingFieldError
	return errors.As(err, &mf)
}
