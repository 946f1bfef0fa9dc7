package entsoe

import (
	"errors"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{name: "client error should not retry", errorClass: ErrorClassClient, expected: false},
		{name: "server error should not retry", errorClass: ErrorClassServer, expected: false},
		{name: "rate limit should retry", errorClass: ErrorClassRateLimit, expected: true},
		{name: "network error should not retry", errorClass: ErrorClassNetwork, expected: false},
		{name: "empty error class should not retry", errorClass: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := shouldRetry(tt.errorClass); result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestRequestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *RequestError
		expected string
	}{
		{
			name: "error with wrapped error",
			err: &RequestError{
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        errors.New("connection refused"),
			},
			expected: "ENTSO-E network error (status 0): request failed: connection refused",
		},
		{
			name: "error without wrapped error",
			err: &RequestError{
				StatusCode: 503,
				ErrorClass: ErrorClassServer,
				Message:    "503 Service Unavailable",
			},
			expected: "ENTSO-E server error (status 503): 503 Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRequestError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &RequestError{ErrorClass: ErrorClassNetwork, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestDecodeError_Is(t *testing.T) {
	inner := errors.New("bad timestamp")
	err := &DecodeError{Message: "interval start", Err: inner}

	if !errors.Is(err, ErrDecode) {
		t.Error("errors.Is(err, ErrDecode) = false")
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if errors.Is(err, ErrDataNotAvailable) {
		t.Error("decode error must not match ErrDataNotAvailable")
	}
}

func TestNotAvailableError(t *testing.T) {
	err := &NotAvailableError{Reason: "No TimeSeries in response"}

	if got, want := err.Error(), "data not available: No TimeSeries in response"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrDataNotAvailable) {
		t.Error("errors.Is(err, ErrDataNotAvailable) = false")
	}
}

func TestOutcome_String(t *testing.T) {
	for outcome, want := range map[Outcome]string{
		OutcomeOK:           "ok",
		OutcomeNotAvailable: "not_available",
		OutcomeFailure:      "failure",
	} {
		if got := outcome.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", outcome, got, want)
		}
	}
}
