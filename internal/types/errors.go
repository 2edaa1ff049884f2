package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for cartloop errors.
type ErrorCode string

// Catalog gateway error codes
const (
	CATALOG_SEARCH_FAILED    ErrorCode = "CATALOG_SEARCH_FAILED"
	CATALOG_TIMEOUT          ErrorCode = "CATALOG_TIMEOUT"
	CATALOG_UNAVAILABLE      ErrorCode = "CATALOG_UNAVAILABLE"
	CATALOG_INVALID_RESPONSE ErrorCode = "CATALOG_INVALID_RESPONSE"
	CATALOG_NO_VARIANTS      ErrorCode = "CATALOG_NO_VARIANTS"
)

// Reasoning gateway error codes
const (
	REASONING_CALL_FAILED    ErrorCode = "REASONING_CALL_FAILED"
	REASONING_TIMEOUT        ErrorCode = "REASONING_TIMEOUT"
	REASONING_PARSE_FAILED   ErrorCode = "REASONING_PARSE_FAILED"
	REASONING_INVALID_OUTPUT ErrorCode = "REASONING_INVALID_OUTPUT"
)

// Validation and cart error codes
const (
	VALIDATION_REJECTED ErrorCode = "VALIDATION_REJECTED"
	CART_ITEM_NOT_FOUND ErrorCode = "CART_ITEM_NOT_FOUND"
	CART_EMPTY          ErrorCode = "CART_EMPTY"
)

// Feedback and session error codes
const (
	FEEDBACK_AMBIGUOUS  ErrorCode = "FEEDBACK_AMBIGUOUS"
	SESSION_TERMINAL    ErrorCode = "SESSION_TERMINAL"
	INVARIANT_VIOLATION ErrorCode = "INVARIANT_VIOLATION"
)

// Store and configuration error codes
const (
	STORE_OPEN_FAILED        ErrorCode = "STORE_OPEN_FAILED"
	STORE_APPEND_FAILED      ErrorCode = "STORE_APPEND_FAILED"
	STORE_QUERY_FAILED       ErrorCode = "STORE_QUERY_FAILED"
	STORE_NOT_FOUND          ErrorCode = "STORE_NOT_FOUND"
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// CartloopError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and carries the transient/permanent classification used by
// the retry executor: Retryable errors are worth retrying, everything else fails fast.
type CartloopError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *CartloopError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
func (e *CartloopError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
func (e *CartloopError) Is(target error) bool {
	var cerr *CartloopError
	if errors.As(target, &cerr) {
		return e.Code == cerr.Code
	}
	return false
}

// NewError creates a new non-retryable CartloopError with the given code and message.
func NewError(code ErrorCode, message string) *CartloopError {
	return &CartloopError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     nil,
	}
}

// NewRetryableError creates a new retryable CartloopError with the given code and message.
// Use this for transient failures that may succeed on retry (timeouts, connection resets,
// vendor 5xx responses).
func NewRetryableError(code ErrorCode, message string) *CartloopError {
	return &CartloopError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     nil,
	}
}

// WrapError creates a new non-retryable CartloopError that wraps an existing error.
func WrapError(code ErrorCode, message string, cause error) *CartloopError {
	return &CartloopError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// WrapRetryableError creates a new retryable CartloopError that wraps an existing error.
func WrapRetryableError(code ErrorCode, message string, cause error) *CartloopError {
	return &CartloopError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// CodeOf returns the error code carried by err, or an empty code if err is not
// a CartloopError.
func CodeOf(err error) ErrorCode {
	var cerr *CartloopError
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return ""
}
