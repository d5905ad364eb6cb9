// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across storage/repository/service layers.
var (
	// ErrNotFound indicates the requested record does not exist in local storage.
	ErrNotFound = errors.New("not found")

	// ErrMalformed indicates a response whose shape does not match the expected schema.
	ErrMalformed = errors.New("malformed response")

	// ErrValidation marks input rejected before any network call.
	ErrValidation = errors.New("validation failed")

	// ErrServerRejected marks a non-success status returned by the API.
	ErrServerRejected = errors.New("server rejected request")

	// ErrUnreachable marks a connectivity or transport failure.
	ErrUnreachable = errors.New("server unreachable")

	// ErrUnexpected marks any other failure (mapping, storage, programming defect).
	ErrUnexpected = errors.New("unexpected failure")
)
