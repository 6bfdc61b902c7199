package sasl

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a mechanism failure.
type ErrorKind int

const (
	// KindUnknown is the zero kind, used when no better classification exists.
	KindUnknown ErrorKind = iota

	// KindInitialization means a collaborator failed to initialize.
	// Fatal for the session, not retryable.
	KindInitialization

	// KindMalformedPayload means the client payload could not be parsed,
	// or a required field was missing.
	KindMalformedPayload

	// KindIdentityMapping means the identity mapper could not resolve the
	// authentication identity to a distinguished name.
	KindIdentityMapping

	// KindDirectoryConnect means no directory connection could be opened.
	KindDirectoryConnect

	// KindDirectoryBind means the directory rejected the bind, either
	// because the credentials were wrong or because the directory became
	// unreachable mid-operation. The wrapped error preserves the
	// distinction where the directory client exposes it.
	KindDirectoryBind

	// KindProtocolEngine means the external authentication engine reported
	// an error during the exchange.
	KindProtocolEngine

	// KindProtocolViolation means a step was called after the mechanism
	// reached a terminal state, or a second step was called on a
	// single-step mechanism.
	KindProtocolViolation
)

// String returns a short identifier for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInitialization:
		return "initialization"
	case KindMalformedPayload:
		return "malformed payload"
	case KindIdentityMapping:
		return "identity mapping"
	case KindDirectoryConnect:
		return "directory connect"
	case KindDirectoryBind:
		return "directory bind"
	case KindProtocolEngine:
		return "protocol engine"
	case KindProtocolViolation:
		return "protocol violation"
	default:
		return "unknown"
	}
}

// MechanismError is the structured failure result of an authentication step.
// Every failure crosses the session boundary as one of these; the calling
// framework decides whether to log, allow a new attempt, or close the
// connection.
type MechanismError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Message is the operator-facing description.
	Message string

	// Err is the underlying collaborator error, if any.
	Err error
}

// Error implements the error interface.
func (e *MechanismError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("sasl %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("sasl %s: %s", e.Kind, msg)
}

// Unwrap returns the underlying collaborator error.
func (e *MechanismError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or KindUnknown if err is not
// a MechanismError.
func KindOf(err error) ErrorKind {
	var me *MechanismError
	if errors.As(err, &me) {
		return me.Kind
	}
	return KindUnknown
}

// IsProtocolViolation reports whether err is a step-ordering violation.
func IsProtocolViolation(err error) bool {
	return KindOf(err) == KindProtocolViolation
}

// IsMalformedPayload reports whether err is a payload parsing failure.
func IsMalformedPayload(err error) bool {
	return KindOf(err) == KindMalformedPayload
}

// IsDirectoryBindError reports whether err is a failed directory bind.
func IsDirectoryBindError(err error) bool {
	return KindOf(err) == KindDirectoryBind
}

func newError(kind ErrorKind, format string, args ...any) *MechanismError {
	return &MechanismError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, message string, err error) *MechanismError {
	return &MechanismError{Kind: kind, Message: message, Err: err}
}
