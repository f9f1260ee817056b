// Package apperr defines the failure taxonomy shared by the overview engine
// and the conversion of failures into user-facing notifications.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	// KindValidation is a missing or invalid field caught before submit.
	KindValidation Kind = "validation"
	// KindTransport is a network or HTTP failure.
	KindTransport Kind = "transport"
	// KindDecode is a malformed or absent document payload.
	KindDecode Kind = "decode"
	// KindNotFound is a record that vanished between list and detail fetch.
	KindNotFound Kind = "not_found"
)

// Sentinel errors, matched with errors.Is against any *Error of the same kind.
var (
	ErrValidation = errors.New("validation failed")
	ErrTransport  = errors.New("transport failed")
	ErrDecode     = errors.New("decode failed")
	ErrNotFound   = errors.New("not found")
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Op is the operation that failed, e.g. "MarkPaid".
	Op string
	// Field is set for validation failures.
	Field   string
	Message string
	// Status is the HTTP status for transport failures, 0 if none was received.
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	switch {
	case e.Err != nil && msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrNotFound:
		return e.Kind == KindNotFound
	}
	return false
}

// Validation returns a field-level validation failure.
func Validation(op, field, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Message: message}
}

// Transport wraps a network or HTTP failure. status is 0 when no response arrived.
func Transport(op string, status int, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Status: status, Err: err}
}

// Decode wraps a document payload failure.
func Decode(op, message string, err error) *Error {
	return &Error{Kind: KindDecode, Op: op, Message: message, Err: err}
}

// NotFound reports a missing record.
func NotFound(op, what string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: what + " not found"}
}

// KindOf returns the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps an error to the status a handler should answer with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
