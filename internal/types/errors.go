package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for Stinger framework errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
	CONFIG_NOT_FOUND         ErrorCode = "CONFIG_NOT_FOUND"
)

// Guardrail error codes
const (
	GUARDRAIL_CONFIG_INVALID ErrorCode = "GUARDRAIL_CONFIG_INVALID"
	GUARDRAIL_TIMEOUT        ErrorCode = "GUARDRAIL_TIMEOUT"
	GUARDRAIL_EXECUTION      ErrorCode = "GUARDRAIL_EXECUTION"
)

// Pipeline error codes
const (
	PIPELINE_DUPLICATE_NAME     ErrorCode = "PIPELINE_DUPLICATE_NAME"
	PIPELINE_CONFLICTING_MODIFY ErrorCode = "PIPELINE_CONFLICTING_MODIFY"
	PIPELINE_WRONG_DIRECTION    ErrorCode = "PIPELINE_WRONG_DIRECTION"
)

// Streaming session error codes
const (
	SESSION_NOT_FOUND ErrorCode = "SESSION_NOT_FOUND"
	SESSION_EXPIRED   ErrorCode = "SESSION_EXPIRED"
	SESSION_FINISHED  ErrorCode = "SESSION_FINISHED"
)

// Scheduler error codes
const (
	SCHEDULER_SATURATED ErrorCode = "SCHEDULER_SATURATED"
	SCHEDULER_CLOSED    ErrorCode = "SCHEDULER_CLOSED"
)

// Credential error codes
const (
	CREDENTIAL_UNAVAILABLE ErrorCode = "CREDENTIAL_UNAVAILABLE"
)

// Audit error codes
const (
	AUDIT_SINK_FAILED ErrorCode = "AUDIT_SINK_FAILED"
)

// StingerError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type StingerError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *StingerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
func (e *StingerError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is a StingerError with the same Code.
func (e *StingerError) Is(target error) bool {
	var stingerErr *StingerError
	if errors.As(target, &stingerErr) {
		return e.Code == stingerErr.Code
	}
	return false
}

// NewError creates a new non-retryable StingerError with the given code and message.
func NewError(code ErrorCode, message string) *StingerError {
	return &StingerError{
		Code:    code,
		Message: message,
	}
}

// NewRetryableError creates a new retryable StingerError with the given code and message.
// Use this for transient errors that may succeed on retry (e.g., classifier timeouts).
func NewRetryableError(code ErrorCode, message string) *StingerError {
	return &StingerError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// WrapError creates a new non-retryable StingerError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *StingerError {
	return &StingerError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsRetryable reports whether err (or any error in its chain) is a retryable StingerError.
func IsRetryable(err error) bool {
	var stingerErr *StingerError
	if errors.As(err, &stingerErr) {
		return stingerErr.Retryable
	}
	return false
}

// CodeOf extracts the error code from err, or returns an empty code if err
// is not a StingerError.
func CodeOf(err error) ErrorCode {
	var stingerErr *StingerError
	if errors.As(err, &stingerErr) {
		return stingerErr.Code
	}
	return ""
}
