package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of an import run or lookup.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindConnection    ErrorKind = "connection"
	KindSchema        ErrorKind = "schema"
	KindRowValidation ErrorKind = "row_validation"
	KindFileAccess    ErrorKind = "file_access"
	KindImport        ErrorKind = "import"
	KindIndexCreation ErrorKind = "index_creation"
)

var (
	// ErrFileNotFound marks a missing stops file (or a zip without stops.txt).
	ErrFileNotFound = errors.New("stops file not found")

	// ErrStopNotFound is returned by lookups that match no row.
	ErrStopNotFound = errors.New("stop not found")

	// ErrMissingConnString is returned when Connect gets an empty connection string.
	ErrMissingConnString = errors.New("database connection string is empty")
)

// Error is a classified failure. Op names the step that failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError wraps err with a kind and operation name.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Recoverable reports whether the run may continue past this error.
func (e *Error) Recoverable() bool {
	return e.Kind == KindRowValidation || e.Kind == KindFileAccess
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
