package bridge

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies transport-level failures so callers can map them
// to distinct HTTP statuses and retry decisions.
type ErrorKind int

const (
	ErrKindUnknown ErrorKind = iota
	ErrKindNotConnected
	ErrKindTimeout
	ErrKindConnectionLost
	ErrKindMalformedResponse
)

// String returns a human-readable representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case ErrKindNotConnected:
		return "not_connected"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindConnectionLost:
		return "connection_lost"
	case ErrKindMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// TransportError is a structured bridge transport error. It carries the
// command that failed and the request id when one was minted, so a late
// or duplicate reply can be traced back in the logs.
type TransportError struct {
	Kind       ErrorKind
	Op         string // outgoing command type, e.g. "navigate"
	RequestID  string
	Underlying error
	Timestamp  time.Time
}

func (e *TransportError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("bridge error [%s] during %s: %s", e.Kind, e.Op, e.message())
	}
	return fmt.Sprintf("bridge error [%s]: %s", e.Kind, e.message())
}

func (e *TransportError) message() string {
	if e.Underlying != nil {
		return e.Underlying.Error()
	}
	switch e.Kind {
	case ErrKindNotConnected:
		return "extension not connected"
	case ErrKindTimeout:
		return "no reply within budget"
	case ErrKindConnectionLost:
		return "connection lost mid-flight"
	case ErrKindMalformedResponse:
		return "reply did not match expected shape"
	default:
		return "unclassified failure"
	}
}

func (e *TransportError) Unwrap() error {
	return e.Underlying
}

// Retryable reports whether re-invoking the failed operation can succeed
// without operator intervention. Malformed replies are deterministic and
// not worth retrying.
func (e *TransportError) Retryable() bool {
	switch e.Kind {
	case ErrKindTimeout, ErrKindConnectionLost:
		return true
	default:
		return false
	}
}

func NewNotConnectedError(op string) *TransportError {
	return &TransportError{Kind: ErrKindNotConnected, Op: op, Timestamp: time.Now()}
}

func NewTimeoutError(op, requestID string, budget time.Duration) *TransportError {
	return &TransportError{
		Kind:       ErrKindTimeout,
		Op:         op,
		RequestID:  requestID,
		Underlying: fmt.Errorf("no reply within %s", budget),
		Timestamp:  time.Now(),
	}
}

func NewConnectionLostError(op, requestID string) *TransportError {
	return &TransportError{Kind: ErrKindConnectionLost, Op: op, RequestID: requestID, Timestamp: time.Now()}
}

func NewMalformedResponseError(op string, underlying error) *TransportError {
	return &TransportError{Kind: ErrKindMalformedResponse, Op: op, Underlying: underlying, Timestamp: time.Now()}
}

// Classify returns the kind of a transport error, ErrKindUnknown for
// anything else.
func Classify(err error) ErrorKind {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ErrKindUnknown
}

func IsNotConnected(err error) bool      { return Classify(err) == ErrKindNotConnected }
func IsTimeout(err error) bool           { return Classify(err) == ErrKindTimeout }
func IsConnectionLost(err error) bool    { return Classify(err) == ErrKindConnectionLost }
func IsMalformedResponse(err error) bool { return Classify(err) == ErrKindMalformedResponse }
