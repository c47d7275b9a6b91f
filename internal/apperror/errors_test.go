package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestSafeMessage_WrappedAppError(t *testing.T) {
	err := fmt.Errorf("saving slot: %w", NewBadRequest("hour must be between 0 and 24"))
	if got := SafeMessage(err); got != "hour must be between 0 and 24" {
		t.Errorf("SafeMessage = %q", got)
	}
	if got := SafeCode(err); got != http.StatusBadRequest {
		t.Errorf("SafeCode = %d", got)
	}
}

func TestSafeMessage_PlainErrorIsGeneric(t *testing.T) {
	err := errors.New("dial tcp 10.0.0.3:3306: connection refused")
	if got := SafeMessage(err); got != "an unexpected error occurred" {
		t.Errorf("SafeMessage leaked %q", got)
	}
	if got := SafeCode(err); got != http.StatusInternalServerError {
		t.Errorf("SafeCode = %d", got)
	}
}

func TestNewUnavailable(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewUnavailable(cause)
	if err.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d", err.Code)
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
	if !IsUnavailable(fmt.Errorf("set slot: %w", err)) {
		t.Error("expected IsUnavailable through wrapping")
	}
	if IsUnavailable(NewInternal(cause)) {
		t.Error("internal error reported as unavailable")
	}
}
