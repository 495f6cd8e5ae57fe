// Package apperr defines the error kinds shared by the lifecycle engine,
// the repositories and the HTTP handlers. Each kind is a sentinel value;
// concrete errors carry a short, client-safe message and unwrap to their
// kind so callers can test them with errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when the current state of an entity does not
// allow the operation, e.g. borrowing a book that is already out.
var ErrConflict = errors.New("conflict")

// ErrValidation is returned for malformed or out-of-range input such as
// bad reservation dates, a rating outside 1..5 or an unknown status.
var ErrValidation = errors.New("validation failed")

// ErrForbidden is returned when the caller lacks the capability or the
// ownership required for an operation.
var ErrForbidden = errors.New("forbidden")

// Error pairs a kind with a message that is safe to show to clients.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Unwrap exposes the kind so errors.Is(err, ErrConflict) works.
func (e *Error) Unwrap() error { return e.kind }

func NotFound(msg string) error   { return &Error{kind: ErrNotFound, msg: msg} }
func Conflict(msg string) error   { return &Error{kind: ErrConflict, msg: msg} }
func Validation(msg string) error { return &Error{kind: ErrValidation, msg: msg} }
func Forbidden(msg string) error  { return &Error{kind: ErrForbidden, msg: msg} }

// HTTPStatus maps an error to the status code the API reports for it.
// Conflicts are reported as 400 to stay compatible with existing clients.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for err. Errors that are not
// typed get a generic message so internal details never leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	if IsTyped(err) {
		return err.Error()
	}
	return "internal error"
}

// IsTyped reports whether err carries one of the kinds above.
func IsTyped(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrValidation) || errors.Is(err, ErrForbidden)
}
