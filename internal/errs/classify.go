package errs

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// Classify maps any failure into exactly one of ServerRejected, Unreachable
// or Unexpected. Already classified errors are returned unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	var se *StatusError
	if errors.As(err, &se) {
		e := ServerRejected(se.Code, se.Reason)
		e.Cause = err
		return e
	}

	// canceled must be checked before net.Error: *url.Error implements it
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindUnexpected, Message: MsgCancelled, Cause: err}
	}

	if isConnectivity(err) {
		return Unreachable(err)
	}

	return Unexpected(err)
}

func isConnectivity(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
