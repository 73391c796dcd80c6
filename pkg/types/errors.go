package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures surfaced by the swap core
type ErrorKind string

const (
	KindInvalidInput          ErrorKind = "invalid-input"
	KindNotFound              ErrorKind = "not-found"
	KindExternalService       ErrorKind = "external-service-error"
	KindNoTransactionReturned ErrorKind = "no-transaction-returned"
	KindSigningRejected       ErrorKind = "signing-rejected"
	KindSubmissionFailed      ErrorKind = "submission-failed"
	KindConfirmationUnknown   ErrorKind = "confirmation-unknown"
)

// ServiceCategory narrows an external service failure by HTTP status class
type ServiceCategory string

const (
	CategoryBadRequest  ServiceCategory = "bad-request"
	CategoryServerError ServiceCategory = "server-error"
	CategoryGeneric     ServiceCategory = "generic"
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrInvalidInput          = &Error{Kind: KindInvalidInput}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrExternalService       = &Error{Kind: KindExternalService}
	ErrNoTransactionReturned = &Error{Kind: KindNoTransactionReturned}
	ErrSigningRejected       = &Error{Kind: KindSigningRejected}
	ErrSubmissionFailed      = &Error{Kind: KindSubmissionFailed}
	ErrConfirmationUnknown   = &Error{Kind: KindConfirmationUnknown}
)

// Error is the typed failure returned across component boundaries
type Error struct {
	Kind     ErrorKind
	Category ServiceCategory // only for KindExternalService
	Op       string
	Status   int
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Category != "" {
		msg += " (" + string(e.Category) + ")"
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" status %d", e.Status)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so callers can compare against the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError builds an *Error of the given kind
func NewError(kind ErrorKind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// StatusError maps a non-2xx HTTP status to an error kind.
// 404 is a missing route or resource, 400 a bad request, 5xx a server error.
func StatusError(op string, status int, body string) *Error {
	e := &Error{Op: op, Status: status, Msg: body}
	switch {
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusBadRequest:
		e.Kind = KindExternalService
		e.Category = CategoryBadRequest
	case status >= 500:
		e.Kind = KindExternalService
		e.Category = CategoryServerError
	default:
		e.Kind = KindExternalService
		e.Category = CategoryGeneric
	}
	return e
}

// KindOf returns the kind of err, or "" when err is not an *Error
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
