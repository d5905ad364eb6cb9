package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of failure categories surfaced to callers.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindServerRejected
	KindUnreachable
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindServerRejected:
		return "server_rejected"
	case KindUnreachable:
		return "unreachable"
	case KindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// User-facing messages.
const (
	MsgUnreachable       = "Couldn't reach server. Check your internet connection."
	MsgUnexpected        = "An unexpected error occurred"
	MsgCancelled         = "request cancelled"
	MsgNotLoggedIn       = "You are not logged in"
	serverRejectedPrefix = "An error occurred: "
)

// Error is a classified failure with a human-readable message.
// Every repository and service operation returns failures as *Error.
type Error struct {
	Kind    Kind
	Message string
	Status  int   // HTTP status for KindServerRejected, 0 otherwise
	Cause   error // for logs only
}

// Error returns the user-facing message.
func (e *Error) Error() string { return e.Message }

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches the kind sentinel, so errors.Is(err, ErrUnreachable) works.
func (e *Error) Is(target error) bool {
	return target != nil && target == sentinel(e.Kind)
}

func sentinel(k Kind) error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindServerRejected:
		return ErrServerRejected
	case KindUnreachable:
		return ErrUnreachable
	case KindUnexpected:
		return ErrUnexpected
	}
	return nil
}

// Validation builds a validation failure with the given message.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// ServerRejected builds a failure for a non-success status carrying the server reason.
func ServerRejected(status int, reason string) *Error {
	if reason == "" {
		reason = http.StatusText(status)
	}
	return &Error{
		Kind:    KindServerRejected,
		Message: serverRejectedPrefix + reason,
		Status:  status,
	}
}

// Unreachable builds a connectivity failure; the message does not depend on the cause.
func Unreachable(cause error) *Error {
	return &Error{Kind: KindUnreachable, Message: MsgUnreachable, Cause: cause}
}

// Unexpected builds a failure for anything else, including the cause description when present.
func Unexpected(cause error) *Error {
	msg := MsgUnexpected
	if cause != nil && cause.Error() != "" {
		msg = fmt.Sprintf("%s: %s", MsgUnexpected, cause.Error())
	}
	return &Error{Kind: KindUnexpected, Message: msg, Cause: cause}
}

// NotLoggedIn reports a missing session; errors.Is(err, ErrNotFound) holds.
func NotLoggedIn() *Error {
	return &Error{Kind: KindUnexpected, Message: MsgNotLoggedIn, Cause: ErrNotFound}
}

// KindOf returns the kind of a classified error, or 0 if err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// StatusError is returned by the transport for a non-2xx HTTP response.
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Reason)
}
