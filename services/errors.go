package services

import (
	"errors"
	"fmt"
	"net/http"

	"race-league-go/database"
)

// ErrorKind classifies a service failure for callers
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindInternal   ErrorKind = "internal"
)

// ErrInvalidTransition is wrapped by the conflict returned for an illegal status change
var ErrInvalidTransition = errors.New("invalid round transition")

// Error is the typed error returned by every prediction operation
type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind onto an HTTP status
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError reports caller-fixable input naming the offending field
func NewValidationError(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports a missing round, entry or score
func NewNotFoundError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewConflictError reports an operation that is illegal in the current state
func NewConflictError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// WrapInternal wraps an unexpected storage failure
func WrapInternal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: op + " failed", Err: err}
}

// IsKind reports whether err is a service error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var svcErr *Error
	return errors.As(err, &svcErr) && svcErr.Kind == kind
}

// translateRepoError turns repository sentinels into service errors.
// notFound is the message used when the document is missing.
func translateRepoError(op string, err error, notFound string) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	switch {
	case errors.Is(err, database.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: notFound, Err: err}
	case errors.Is(err, database.ErrDuplicate):
		return &Error{Kind: KindConflict, Message: "document already exists", Err: err}
	case errors.Is(err, database.ErrVersionConflict):
		return &Error{Kind: KindConflict, Message: "round was modified by another request, retry", Err: err}
	}
	return WrapInternal(op, err)
}
