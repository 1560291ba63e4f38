// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package errors defines the fixed error taxonomy shared by the connector
// execution service and every adapter. The codes are part of the wire
// contract and must not be extended casually.
package errors

import (
	"fmt"
)

// Error codes
const (
	// CodeNotConfigured is returned when an integration has no usable configuration
	CodeNotConfigured = "NOT_CONFIGURED"

	// CodeUnsupportedCapability is returned when no adapter serves a routing key
	CodeUnsupportedCapability = "UNSUPPORTED_CAPABILITY"

	// CodePolicyDenied is returned when policy blocks a request outright
	CodePolicyDenied = "POLICY_DENIED"

	// CodeApprovalRequired is returned when policy requires an approval grant first
	CodeApprovalRequired = "APPROVAL_REQUIRED"

	// CodeTimeout is returned when an adapter attempt exceeds its deadline
	CodeTimeout = "TIMEOUT"

	// CodeValidationFailed is returned when request input fails adapter validation
	CodeValidationFailed = "VALIDATION_FAILED"

	// CodeRemoteToolUnavailable is returned when no (or no unambiguous) remote tool serves a capability
	CodeRemoteToolUnavailable = "REMOTE_TOOL_UNAVAILABLE"

	// CodeRemoteServerUnavailable is returned when a pinned remote server is not discovered
	CodeRemoteServerUnavailable = "REMOTE_SERVER_UNAVAILABLE"

	// CodeExecutionFailed is returned for any other adapter failure
	CodeExecutionFailed = "EXECUTION_FAILED"
)

// Error represents a classified connector error.
type Error struct {
	// Code is one of the fixed connector error codes
	Code string `json:"code"`

	// Message is a human-readable description
	Message string `json:"message"`

	// Retryable reports whether the same attempt may be retried
	Retryable bool `json:"retryable"`

	// Details carries structured diagnostic fields for the caller
	Details map[string]any `json:"details,omitempty"`

	// Cause is the underlying error; it stays out of the wire envelope
	Cause error `json:"-"`
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetails attaches structured diagnostic fields and returns the error.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithCause attaches the underlying error and returns the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// AsRetryable marks the error retryable and returns it.
func (e *Error) AsRetryable() *Error {
	e.Retryable = true
	return e
}

// New creates a new connector error.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new connector error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewRetryable creates a new connector error marked retryable.
func NewRetryable(code, message string) *Error {
	return &Error{Code: code, Message: message, Retryable: true}
}

// NewNotConfigured creates a NOT_CONFIGURED error.
func NewNotConfigured(message string) *Error {
	return New(CodeNotConfigured, message)
}

// NewUnsupportedCapability creates an UNSUPPORTED_CAPABILITY error.
func NewUnsupportedCapability(message string) *Error {
	return New(CodeUnsupportedCapability, message)
}

// NewPolicyDenied creates a POLICY_DENIED error.
func NewPolicyDenied(message string) *Error {
	return New(CodePolicyDenied, message)
}

// NewApprovalRequired creates an APPROVAL_REQUIRED error.
func NewApprovalRequired(message string) *Error {
	return New(CodeApprovalRequired, message)
}

// NewTimeout creates a TIMEOUT error. Timeouts are always retryable.
func NewTimeout(message string) *Error {
	return NewRetryable(CodeTimeout, message)
}

// NewValidationFailed creates a VALIDATION_FAILED error.
func NewValidationFailed(message string) *Error {
	return New(CodeValidationFailed, message)
}

// NewRemoteToolUnavailable creates a REMOTE_TOOL_UNAVAILABLE error.
func NewRemoteToolUnavailable(message string) *Error {
	return New(CodeRemoteToolUnavailable, message)
}

// NewRemoteServerUnavailable creates a REMOTE_SERVER_UNAVAILABLE error.
func NewRemoteServerUnavailable(message string) *Error {
	return New(CodeRemoteServerUnavailable, message)
}

// NewExecutionFailed creates an EXECUTION_FAILED error.
func NewExecutionFailed(message string, cause error) *Error {
	return &Error{Code: CodeExecutionFailed, Message: message, Cause: cause}
}

// AsError coerces any error into a *Error. Unclassified errors become
// EXECUTION_FAILED with retryable=true, matching the treatment of adapter
// panics and thrown errors.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Code: CodeExecutionFailed, Message: err.Error(), Retryable: true, Cause: err}
}

// CodeOf returns the connector code for an error, or EXECUTION_FAILED when
// the error carries no classification.
func CodeOf(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeExecutionFailed
}

// IsTimeout checks if the error is a timeout error
func IsTimeout(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == CodeTimeout
}

// IsValidationFailed checks if the error is a validation error
func IsValidationFailed(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == CodeValidationFailed
}

// IsNotConfigured checks if the error is a configuration error
func IsNotConfigured(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == CodeNotConfigured
}

// IsRetryable checks whether an attempt that produced this error may be retried.
func IsRetryable(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Retryable
}
