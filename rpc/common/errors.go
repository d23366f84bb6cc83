package common

import (
	"encoding/json"
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Sentinel Errors
// --------------------------------------------------------------------------

var (
	// ErrConnection is returned when a connection attempt fails (socket not
	// found, permission denied, connection refused)
	ErrConnection = errors.New("connection error")
	// ErrFraming signals a malformed or truncated frame. It terminates the
	// connection that produced it.
	ErrFraming = errors.New("framing error")
	// ErrOversizedPayload is returned when a payload exceeds the configured maximum
	ErrOversizedPayload = errors.New("oversized payload")
	// ErrUnknownMethod is the outcome of a call to a method without a bound handler
	ErrUnknownMethod = errors.New("unknown method")
	// ErrMalformedArguments is the outcome of a call whose arguments could not be decoded
	ErrMalformedArguments = errors.New("malformed arguments")
	// ErrSerializationFailed is the outcome of a call whose return value could not be encoded
	ErrSerializationFailed = errors.New("serialization failed")
	// ErrHandlerFailed is the outcome of a call whose handler returned an error or panicked
	ErrHandlerFailed = errors.New("handler failed")
	// ErrRateLimited is the outcome of a call rejected by the server's rate limiter
	ErrRateLimited = errors.New("rate limited")
	// ErrMalformedResponse is returned by the client when a response body cannot be decoded
	ErrMalformedResponse = errors.New("malformed response")
	// ErrConnectionClosed is delivered to every pending call when a connection
	// ends, and returned by every call attempted afterwards
	ErrConnectionClosed = errors.New("connection closed")
)

// --------------------------------------------------------------------------
// Error Kind Definition
// --------------------------------------------------------------------------

// ErrorKind identifies a failure class on the wire. Protocol level failures are
// transmitted as an err-response frame carrying the kind and a reason.
type ErrorKind uint8

const (
	ErrKindUnknown ErrorKind = iota
	ErrKindConnection
	ErrKindFraming
	ErrKindOversizedPayload
	ErrKindUnknownMethod
	ErrKindMalformedArguments
	ErrKindSerializationFailed
	ErrKindHandlerFailed
	ErrKindRateLimited
	ErrKindMalformedResponse
	ErrKindConnectionClosed

	lastErrKind = ErrKindConnectionClosed
)

// kindSentinels maps every kind to the sentinel error errors.Is matches against
var kindSentinels = map[ErrorKind]error{
	ErrKindConnection:          ErrConnection,
	ErrKindFraming:             ErrFraming,
	ErrKindOversizedPayload:    ErrOversizedPayload,
	ErrKindUnknownMethod:       ErrUnknownMethod,
	ErrKindMalformedArguments:  ErrMalformedArguments,
	ErrKindSerializationFailed: ErrSerializationFailed,
	ErrKindHandlerFailed:       ErrHandlerFailed,
	ErrKindRateLimited:         ErrRateLimited,
	ErrKindMalformedResponse:   ErrMalformedResponse,
	ErrKindConnectionClosed:    ErrConnectionClosed,
}

// String returns the string representation of an ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case ErrKindConnection:
		return "connection"
	case ErrKindFraming:
		return "framing"
	case ErrKindOversizedPayload:
		return "oversizedPayload"
	case ErrKindUnknownMethod:
		return "unknownMethod"
	case ErrKindMalformedArguments:
		return "malformedArguments"
	case ErrKindSerializationFailed:
		return "serializationFailed"
	case ErrKindHandlerFailed:
		return "handlerFailed"
	case ErrKindRateLimited:
		return "rateLimited"
	case ErrKindMalformedResponse:
		return "malformedResponse"
	case ErrKindConnectionClosed:
		return "connectionClosed"
	default:
		return "unknown"
	}
}

// Sentinel returns the sentinel error of this kind (nil for ErrKindUnknown)
func (k ErrorKind) Sentinel() error {
	return kindSentinels[k]
}

// MarshalJSON implements the json.Marshaller interface for ErrorKind.
func (k ErrorKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for ErrorKind.
func (k *ErrorKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if s == ErrKindUnknown.String() {
		*k = ErrKindUnknown
		return nil
	}
	for kind := ErrKindConnection; kind <= lastErrKind; kind++ {
		if kind.String() == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind: %s", s)
}

// --------------------------------------------------------------------------
// Remote Error
// --------------------------------------------------------------------------

// RemoteError is a protocol level failure. The server produces it for a single
// call and the client receives it as the outcome of exactly that call.
type RemoteError struct {
	Kind   ErrorKind `json:"kind"`
	Reason string    `json:"reason,omitempty"`
}

// NewRemoteError creates a RemoteError with a formatted reason
func NewRemoteError(kind ErrorKind, format string, args ...interface{}) *RemoteError {
	return &RemoteError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func (e *RemoteError) Error() string {
	sentinel := e.Kind.Sentinel()
	if sentinel == nil {
		sentinel = errors.New("remote error")
	}
	if e.Reason == "" {
		return sentinel.Error()
	}
	return fmt.Sprintf("%s: %s", sentinel, e.Reason)
}

// Unwrap makes errors.Is(err, ErrUnknownMethod) and friends work
func (e *RemoteError) Unwrap() error {
	return e.Kind.Sentinel()
}

// KindOf returns the ErrorKind of an error. Errors that do not match any
// sentinel are reported as ErrKindUnknown, nil as ErrKindUnknown too.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrKindUnknown
	}

	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Kind
	}

	for kind := ErrKindConnection; kind <= lastErrKind; kind++ {
		if errors.Is(err, kind.Sentinel()) {
			return kind
		}
	}
	return ErrKindUnknown
}
