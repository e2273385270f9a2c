package protocol

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// EngineError represents a failure at the engine boundary.
type EngineError struct {
	Kind      ErrorKind
	Message   string
	SessionID string
	PartyID   string
	Original  error
}

type ErrorKind int

const (
	ErrKindUnknown ErrorKind = iota
	// ErrKindCommunication engine unreachable, timed out, or produced
	// unparsable output. Fatal to the current operation, never retried.
	ErrKindCommunication
	// ErrKindProtocol engine ran but returned semantically invalid data,
	// e.g. divergent public keys across parties after finalize.
	ErrKindProtocol
)

func (e *EngineError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Kind.String(), e.Message))
	if e.PartyID != "" {
		sb.WriteString(fmt.Sprintf(" [party: %s]", e.PartyID))
	}
	if e.SessionID != "" {
		sb.WriteString(fmt.Sprintf(" [session: %s]", e.SessionID))
	}
	if e.Original != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Original))
	}
	return sb.String()
}

func (e *EngineError) Unwrap() error {
	return e.Original
}

func (k ErrorKind) String() string {
	switch k {
	case ErrKindCommunication:
		return "COMMUNICATION"
	case ErrKindProtocol:
		return "PROTOCOL"
	default:
		return "UNKNOWN"
	}
}

// NewCommunicationError creates a new engine communication error
func NewCommunicationError(partyID string, err error) *EngineError {
	return &EngineError{
		Kind:     ErrKindCommunication,
		Message:  "engine communication failed",
		PartyID:  partyID,
		Original: err,
	}
}

// NewProtocolError creates a new engine protocol error
func NewProtocolError(msg string) *EngineError {
	return &EngineError{
		Kind:    ErrKindProtocol,
		Message: msg,
	}
}

// IsCommunicationError reports whether err is an engine communication failure.
func IsCommunicationError(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee) && ee.Kind == ErrKindCommunication
}

// IsProtocolError reports whether err is an engine protocol violation.
func IsProtocolError(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee) && ee.Kind == ErrKindProtocol
}
