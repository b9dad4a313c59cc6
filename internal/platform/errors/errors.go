package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code identifies one failure class of the closed error taxonomy. Every
// failure crossing a component boundary is normalised to exactly one code.
type Code string

const (
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeRunTimeout       Code = "AI_RUN_TIMEOUT"
	CodeRunException     Code = "AI_RUN_EXCEPTION"
	CodeRunResponseError Code = "AI_RUN_RESPONSE_ERROR"
)

// StatusOf maps an error code onto its fixed HTTP status.
func StatusOf(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeRunTimeout:
		return http.StatusGatewayTimeout
	case CodeRunResponseError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AiRunError is the single typed error that leaves any component boundary.
// Values are treated as immutable after creation; the With* helpers return
// shallow copies.
type AiRunError struct {
	Code       Code
	Status     int
	Message    string
	TraceID    string
	DurationMs int64
	Raw        any
	Cause      error
}

func (e *AiRunError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AiRunError) Unwrap() error {
	return e.Cause
}

// New creates a typed error with the status fixed by its code.
func New(code Code, message string) *AiRunError {
	return &AiRunError{
		Code:    code,
		Status:  StatusOf(code),
		Message: message,
	}
}

// Wrap attaches a cause to a new typed error. If the cause already carries a
// taxonomy code it is returned unchanged so the first classification wins.
func Wrap(code Code, message string, cause error) *AiRunError {
	if cause == nil {
		return New(code, message)
	}

	var typed *AiRunError
	if errors.As(cause, &typed) {
		return typed
	}

	return &AiRunError{
		Code:    code,
		Status:  StatusOf(code),
		Message: message,
		Cause:   cause,
	}
}

// As extracts a typed error from an arbitrary error chain.
func As(err error) (*AiRunError, bool) {
	var typed *AiRunError
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// WithTrace returns a copy carrying the request trace id. A trace id already
// present is kept.
func (e *AiRunError) WithTrace(traceID string) *AiRunError {
	if e.TraceID != "" || traceID == "" {
		return e
	}
	clone := *e
	clone.TraceID = traceID
	return &clone
}

// WithDuration returns a copy recording the elapsed time of the failed
// operation.
func (e *AiRunError) WithDuration(d time.Duration) *AiRunError {
	clone := *e
	clone.DurationMs = d.Milliseconds()
	return &clone
}

// WithRaw returns a copy carrying the upstream payload. Only the
// response-error path should attach it.
func (e *AiRunError) WithRaw(raw any) *AiRunError {
	clone := *e
	clone.Raw = raw
	return &clone
}
