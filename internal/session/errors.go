package session

import (
	"errors"
	"fmt"
)

// Kind classifies session errors.
type Kind string

const (
	KindProviderAbsent     Kind = "provider_absent"
	KindProviderRejected   Kind = "provider_rejected"
	KindRPCFailure         Kind = "rpc_failure"
	KindMalformedRecord    Kind = "malformed_record"
	KindInvalidDraft       Kind = "invalid_draft"
	KindNotConnected       Kind = "not_connected"
	KindSubmissionInFlight Kind = "submission_in_flight"
)

// Error is returned by every Manager operation that fails.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	// ErrSubmissionInFlight a transfer is already being sent or confirmed.
	ErrSubmissionInFlight = errors.New("a transfer is already in flight")
	// ErrNotConnected no wallet account is connected.
	ErrNotConnected = errors.New("no wallet account connected")
	// ErrUnknownField the draft has no field with that name.
	ErrUnknownField = errors.New("unknown draft field")
)

// KindOf returns the Kind of a session error, or "" when err is not one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
