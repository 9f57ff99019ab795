// Package status implements the six-kind error taxonomy the engine reports
// across its public API: every operation returns a small-integer status
// code on top of the normal Go error, so callers that only want the
// C-API-shaped contract can branch on an int without walking the error chain.
package status

import "fmt"

// Kind classifies an engine error into one of the six taxonomy buckets.
type Kind int8

const (
	// KindOK is not a failure; it is the zero value returned alongside a nil error.
	KindOK Kind = iota
	// KindInput covers malformed key-expressions, bad configuration keys, invalid arguments.
	KindInput
	// KindResource covers out-of-memory and table-full conditions.
	KindResource
	// KindTransport covers link closed, locator unreachable, codec errors.
	KindTransport
	// KindProtocol covers unexpected messages for the current state, id collisions.
	KindProtocol
	// KindLease covers missed liveness windows.
	KindLease
	// KindClosed covers calls against an already-disposed session or entity.
	KindClosed
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindInput:
		return "input"
	case KindResource:
		return "resource"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindLease:
		return "lease"
	case KindClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Code returns the small-integer status every public operation reports
// alongside its Go error. 0 is success; negative values mirror the kind
// order so callers can treat "< 0" as failure without inspecting the error.
func (k Kind) Code() int {
	return -int(k)
}

// Error is the engine's wrapped error type: a Kind plus a message plus an
// optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Code returns the small-integer status for this error.
func (e *Error) Code() int { return e.Kind.Code() }

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error wrapping cause, or returns nil if cause is nil.
func Wrap(kind Kind, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind == kind
	}
	return false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Sentinel errors for the Closed kind, returned idempotently rather than as
// fatal failures.
var (
	ErrSessionClosed = New(KindClosed, "session already closed")
	ErrEntityClosed  = New(KindClosed, "entity already undeclared")
)
