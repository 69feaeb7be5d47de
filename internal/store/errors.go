package store

import (
	"errors"
	"fmt"
)

// Reason classifies a ValidationError so the web layer can pick the right
// friendly message.
type Reason string

const (
	// ReasonEmptyField means a required field was empty after trimming.
	ReasonEmptyField Reason = "empty_field"
	// ReasonBadEmail means the email does not look like an address at all.
	ReasonBadEmail Reason = "bad_email"
	// ReasonNotAuthorized means the email is well-formed but not on the
	// participant allow-list.
	ReasonNotAuthorized Reason = "not_authorized"
	// ReasonUnserializable means the submission could not be repaired into
	// valid UTF-8 and cannot be saved.
	ReasonUnserializable Reason = "unserializable"
)

// ValidationError rejects a submission. It is always recoverable and never
// leaves a trace in the store.
type ValidationError struct {
	Field  string
	Reason Reason
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("store: invalid submission: %s (%s)", e.Reason, e.Field)
	}
	return fmt.Sprintf("store: invalid submission: %s", e.Reason)
}

// SchedulingError rejects a schedule action: unknown contribution, unknown
// axis name, or an index out of range. No partial write happens.
type SchedulingError struct {
	Err error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("store: scheduling failed: %v", e.Err)
}

func (e *SchedulingError) Unwrap() error { return e.Err }

// ErrUnknownContribution is wrapped into a SchedulingError when the target
// contribution id does not exist.
var ErrUnknownContribution = errors.New("unknown contribution id")

// ErrSwapCount is returned when a swap request does not name exactly two
// distinct contributions.
var ErrSwapCount = errors.New("store: a swap needs exactly two distinct contributions")
