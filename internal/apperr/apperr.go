// Package apperr defines the error kinds every handler reports to clients.
//
// Handlers return an *Error (or anything wrapping one); the HTTP edge turns it
// into a status code and a {success:false,message} body. Errors that are not an
// *Error are reported as Internal and their detail never leaves the process.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindInvalidCredentials
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindTooManyRequests
	KindTooLarge
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindConflict, KindInvalidCredentials:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindTooManyRequests:
		return "too_many_requests"
	case KindTooLarge:
		return "too_large"
	default:
		return "internal"
	}
}

// InternalMessage is the only message clients ever see for internal failures.
const InternalMessage = "Internal server error"

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error         { return &Error{Kind: KindValidation, Message: msg} }
func Conflict(msg string) *Error           { return &Error{Kind: KindConflict, Message: msg} }
func InvalidCredentials(msg string) *Error { return &Error{Kind: KindInvalidCredentials, Message: msg} }
func NotFound(msg string) *Error           { return &Error{Kind: KindNotFound, Message: msg} }
func TooManyRequests(msg string) *Error    { return &Error{Kind: KindTooManyRequests, Message: msg} }
func TooLarge(msg string) *Error           { return &Error{Kind: KindTooLarge, Message: msg} }

// Unauthenticated keeps the cause for logging; the message is what the client sees.
func Unauthenticated(msg string, cause error) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg, Err: cause}
}

func Forbidden(msg string, cause error) *Error {
	return &Error{Kind: KindForbidden, Message: msg, Err: cause}
}

func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: InternalMessage, Err: cause}
}

// From returns err as an *Error, treating anything unrecognised as Internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
