package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind is the machine-readable failure class surfaced to callers.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindStateConflict     ErrorKind = "state_conflict"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindNotFound          ErrorKind = "not_found"
	KindPermissionDenied  ErrorKind = "permission_denied"
	KindOverdueBlock      ErrorKind = "overdue_block"
)

// Error is a workflow failure. The transaction that produced it never
// partially commits.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func errf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies any error for the HTTP boundary. Unrecognized errors
// (driver failures etc.) come back as "".
func KindOf(err error) ErrorKind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return KindNotFound
	}
	return ""
}

// notFoundOr maps gorm's record-not-found onto the workflow taxonomy and
// passes everything else through.
func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errf(KindNotFound, format, args...)
	}
	return err
}
