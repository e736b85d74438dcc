package scraper

import (
	"errors"
	"fmt"
)

// ErrJobNotFound is returned by job stores for unknown or evicted jobs.
var ErrJobNotFound = errors.New("job not found")

// FailureKind classifies scrape failures. The kind decides retry behavior
// and is what callers see as a per-URL failure reason.
type FailureKind string

// Failure kinds.
const (
	KindInvalidURL          FailureKind = "invalid_url"
	KindUnparsableReference FailureKind = "unparsable_reference"
	KindNavigationTimeout   FailureKind = "navigation_timeout"
	KindUnexpectedStructure FailureKind = "unexpected_structure"
	KindImageFetch          FailureKind = "image_fetch"
	KindJobSubmission       FailureKind = "job_submission"
)

// Error is a classified scrape failure.
type Error struct {
	Kind FailureKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether retrying the operation can help. Only transient
// origin/network failures qualify; unrecognized templates and bad references
// stay broken no matter how often they are retried.
func (e *Error) Retryable() bool {
	return e.Kind == KindNavigationTimeout
}

// Reason returns the short, user-visible classification for the error.
func (e *Error) Reason() string {
	return string(e.Kind)
}

// NewError builds a classified error wrapping an optional cause.
func NewError(kind FailureKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the failure kind from err, or "" if err is unclassified.
func KindOf(err error) FailureKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsRetryable reports whether err is a classified, retryable failure.
// Unclassified errors are treated as retryable transient faults.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}

// FailureReason renders the user-visible reason for a per-URL failure.
func FailureReason(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Reason()
	}
	return "internal_error"
}
