package alpacastream

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes client errors.
type ErrorKind int

const (
	// KindUnknown is the zero kind.
	KindUnknown ErrorKind = iota
	// KindTransportFailure means the connection could not be established or was aborted.
	KindTransportFailure
	// KindUnexpectedClosure means an active session was closed by either side.
	KindUnexpectedClosure
	// KindSequenceViolation means the driver fed events out of order.
	KindSequenceViolation
	// KindInvalidConfig means the configuration cannot produce a session.
	KindInvalidConfig
	// KindClosed means the client was closed by the caller.
	KindClosed
)

// String returns the string representation of an ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindTransportFailure:
		return "transport_failure"
	case KindUnexpectedClosure:
		return "unexpected_closure"
	case KindSequenceViolation:
		return "protocol_sequence_violation"
	case KindInvalidConfig:
		return "invalid_config"
	case KindClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Error is a categorized client error.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	// ErrSequenceViolation matches any error of kind KindSequenceViolation.
	ErrSequenceViolation = &Error{Kind: KindSequenceViolation, Msg: "event out of order"}
	// ErrInvalidConfig matches any error of kind KindInvalidConfig.
	ErrInvalidConfig = &Error{Kind: KindInvalidConfig, Msg: "invalid config"}
	// ErrTransportFailure matches any error of kind KindTransportFailure.
	ErrTransportFailure = &Error{Kind: KindTransportFailure, Msg: "transport failure"}
	// ErrUnexpectedClosure matches any error of kind KindUnexpectedClosure.
	ErrUnexpectedClosure = &Error{Kind: KindUnexpectedClosure, Msg: "connection closed"}
	// ErrClosed matches any error of kind KindClosed.
	ErrClosed = &Error{Kind: KindClosed, Msg: "client closed"}
)

func newError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// IsConnectionError reports whether err is a transport failure or closure.
func IsConnectionError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == KindTransportFailure || e.Kind == KindUnexpectedClosure
}
