package apperrors

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when a required text field is blank after trimming.
// It is always produced locally, before any backend call.
var ErrEmptyInput = errors.New("input must not be blank")

// RejectedError is returned when the backend declines an activation or command.
// Reason is the backend's message and is shown to the user verbatim.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return e.Reason
}

// TransientError wraps a network or backend fault. The operation may be retried.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IllegalTransitionError is returned when a session command is issued
// outside the states that allow it.
type IllegalTransitionError struct {
	Command string
	From    string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Command, e.From)
}

// NewRejected creates a RejectedError
func NewRejected(reason string) *RejectedError {
	return &RejectedError{Reason: reason}
}

// NewTransient creates a TransientError for the given operation
func NewTransient(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is, or wraps, a TransientError
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsRejected reports whether err is, or wraps, a RejectedError
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

// IsIllegalTransition reports whether err is, or wraps, an IllegalTransitionError
func IsIllegalTransition(err error) bool {
	var ie *IllegalTransitionError
	return errors.As(err, &ie)
}

// UserMessage returns the text to show for err. Rejections are surfaced
// verbatim; everything else uses the error string.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Reason
	}
	return err.Error()
}
