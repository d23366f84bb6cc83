package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestRemoteErrorMatchesSentinel(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		sentinel error
	}{
		{ErrKindUnknownMethod, ErrUnknownMethod},
		{ErrKindMalformedArguments, ErrMalformedArguments},
		{ErrKindSerializationFailed, ErrSerializationFailed},
		{ErrKindHandlerFailed, ErrHandlerFailed},
		{ErrKindRateLimited, ErrRateLimited},
		{ErrKindConnectionClosed, ErrConnectionClosed},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			var err error = NewRemoteError(tt.kind, "method %d", 42)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
			if got := KindOf(err); got != tt.kind {
				t.Errorf("KindOf() = %s, want %s", got, tt.kind)
			}
			want := fmt.Sprintf("%s: method 42", tt.sentinel)
			if err.Error() != want {
				t.Errorf("Error() = %q, want %q", err.Error(), want)
			}
		})
	}
}

func TestKindOfWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("reading response: %w", ErrConnectionClosed)
	if got := KindOf(wrapped); got != ErrKindConnectionClosed {
		t.Errorf("KindOf(wrapped) = %s, want %s", got, ErrKindConnectionClosed)
	}

	if got := KindOf(errors.New("something else")); got != ErrKindUnknown {
		t.Errorf("KindOf(plain error) = %s, want %s", got, ErrKindUnknown)
	}

	if got := KindOf(nil); got != ErrKindUnknown {
		t.Errorf("KindOf(nil) = %s, want %s", got, ErrKindUnknown)
	}
}

func TestRemoteErrorWithoutReason(t *testing.T) {
	err := &RemoteError{Kind: ErrKindUnknownMethod}
	if err.Error() != ErrUnknownMethod.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), ErrUnknownMethod.Error())
	}

	unknown := &RemoteError{Kind: ErrKindUnknown, Reason: "boom"}
	if unknown.Error() != "remote error: boom" {
		t.Errorf("Error() = %q", unknown.Error())
	}
	if errors.Unwrap(unknown) != nil {
		t.Errorf("Unknown kind should not unwrap to a sentinel")
	}
}

func TestErrorKindJSON(t *testing.T) {
	for kind := ErrKindUnknown; kind <= lastErrKind; kind++ {
		data, err := json.Marshal(kind)
		if err != nil {
			t.Fatalf("Marshal(%s): %v", kind, err)
		}

		var decoded ErrorKind
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if decoded != kind {
			t.Errorf("Round trip of %s produced %s", kind, decoded)
		}
	}

	var k ErrorKind
	if err := json.Unmarshal([]byte(`"notAKind"`), &k); err == nil {
		t.Errorf("Expected error for an unknown kind name")
	}
}
