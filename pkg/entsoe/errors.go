package entsoe

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrDataNotAvailable is matched by every *NotAvailableError.
	ErrDataNotAvailable = errors.New("data not available")

	// ErrDecode is matched by every *DecodeError.
	ErrDecode = errors.New("decode publication document")

	// ErrContextCancelled is returned when the context is cancelled during a retry wait.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"
)

// NotAvailableError reports that upstream has not published a series for the window yet.
type NotAvailableError struct {
	Reason string
}

func (e *NotAvailableError) Error() string {
	return fmt.Sprintf("data not available: %s", e.Reason)
}

// Unwrap makes errors.Is(err, ErrDataNotAvailable) hold.
func (e *NotAvailableError) Unwrap() error {
	return ErrDataNotAvailable
}

// DecodeError reports a malformed publication document.
type DecodeError struct {
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode publication document: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("decode publication document: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDecode) hold.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// RequestError represents a failed upstream request.
type RequestError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ENTSO-E %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("ENTSO-E %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Outcome is the result variant of an acquisition.
type Outcome int

const (
	// OutcomeOK means a series was acquired.
	OutcomeOK Outcome = iota

	// OutcomeNotAvailable means upstream has nothing published yet.
	OutcomeNotAvailable

	// OutcomeFailure means the request or the decoding failed.
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotAvailable:
		return "not_available"
	default:
		return "failure"
	}
}

// Classify maps an acquisition error to its Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrDataNotAvailable):
		return OutcomeNotAvailable
	default:
		return OutcomeFailure
	}
}

// shouldRetry determines if an error class is retried at all.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassRateLimit:
		return true
	default:
		// ENTSO-E counts every request against the token quota; only 429 is worth repeating.
		return false
	}
}
