// Package faults defines the error taxonomy shared by the API layer and the
// pipeline executor. Internal code classifies failures once, at the edge
// where they occur; everything downstream switches on the kind instead of
// pattern-matching on generic errors.
package faults

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error for retry and HTTP-mapping decisions.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindTransientProvider Kind = "transient_provider"
	KindContentPolicy     Kind = "content_policy"
	KindFatalProvider     Kind = "fatal_provider"
	KindNoFallback        Kind = "no_fallback"
	KindCanceled          Kind = "canceled"
)

// Error is the concrete error type carried through the pipeline. Provider
// fields are populated when the failure originated in an external call.
type Error struct {
	Kind              Kind
	Message           string
	Provider          string
	ProviderRequestID string
	OccurredAt        time.Time
	cause             error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a taxonomy error without a cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), OccurredAt: time.Now().UTC()}
}

// Wrap creates a taxonomy error preserving the original error as its cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), OccurredAt: time.Now().UTC(), cause: cause}
}

// WithProvider attaches the provider name and, when available, the provider
// request id so a failure can be traced back through the provider's logs.
func (e *Error) WithProvider(name, requestID string) *Error {
	e.Provider = name
	e.ProviderRequestID = requestID
	return e
}

// KindOf returns the taxonomy kind of err, unwrapping as needed.
// Unclassified errors report KindFatalProvider: anything a provider call
// returned that nobody classified is by definition not retryable.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindFatalProvider
}

// Retryable reports whether err may be retried. Only transient provider
// failures qualify; content-policy refusals are never retried with a
// relaxed policy, and validation errors will not improve on a second try.
func Retryable(err error) bool {
	return KindOf(err) == KindTransientProvider
}

// NoFallbackError wraps the last error of an exhausted stage. It is the only
// way a provider failure reaches job state: no placeholder asset is ever
// substituted for the real one.
type NoFallbackError struct {
	Stage    string
	Attempts int
	Cause    error
}

func (e *NoFallbackError) Error() string {
	return fmt.Sprintf("no fallback for failed stage %q after %d attempt(s): %v", e.Stage, e.Attempts, e.Cause)
}

func (e *NoFallbackError) Unwrap() error { return e.Cause }

// NoFallback wraps cause for the named stage.
func NoFallback(stage string, attempts int, cause error) *NoFallbackError {
	return &NoFallbackError{Stage: stage, Attempts: attempts, Cause: cause}
}

// Validation builds a caller-input error.
func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

// NotFound builds a missing-resource error.
func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

// Conflict builds a state-conflict error, e.g. cancel on a terminal job.
func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}
