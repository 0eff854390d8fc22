package audit

import "errors"

// Sentinel errors classifying failures across the service. Wrap them with
// fmt.Errorf("...: %w", Err...) so callers can test with errors.Is.
var (
	// ErrValidation marks missing or malformed required input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized marks a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUpstream marks a non-success response or explicit failure flag
	// from a third-party API.
	ErrUpstream = errors.New("upstream error")
	// ErrTimeout marks an exhausted poll attempt budget.
	ErrTimeout = errors.New("timed out")
	// ErrNotFound marks a missing row.
	ErrNotFound = errors.New("not found")
)
