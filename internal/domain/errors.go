// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"errors"
	"fmt"
)

// ErrorType represents the semantic category of an error
type ErrorType int

const (
	ErrorTypeValidation   ErrorType = iota // Input validation errors (400 Bad Request)
	ErrorTypeNotFound                      // Resource not found errors (404 Not Found)
	ErrorTypeConflict                      // Resource conflict errors (409 Conflict)
	ErrorTypeInternal                      // Internal server errors (500 Internal Server Error)
	ErrorTypeUnavailable                   // Service unavailable errors (503 Service Unavailable)
	ErrorTypeUnauthorized                  // Missing or rejected credentials (401 Unauthorized)
)

// Sentinel errors shared by the repositories and services.
var (
	ErrMeetingNotFound    = errors.New("meeting not found")
	ErrSettingsNotFound   = errors.New("settings not found")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrInternal           = errors.New("internal error")
	ErrRevisionMismatch   = errors.New("revision mismatch")
	ErrUnmarshal          = errors.New("unmarshal error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrValidationFailed   = errors.New("validation failed")

	// ErrTranscriptNotReady is returned when the conference has no transcript yet.
	// Retry policy treats it the same as any other API failure.
	ErrTranscriptNotReady = errors.New("transcript not ready")
)

// DomainError represents an error with semantic type information
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error // underlying error for wrapping
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// GetErrorType returns the semantic type of an error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return ErrorTypeValidation
	}
	var subErr *SubscriptionError
	if errors.As(err, &subErr) {
		return ErrorTypeUnavailable
	}
	// Bare sentinels returned without a DomainError wrapper
	switch {
	case errors.Is(err, ErrServiceUnavailable):
		return ErrorTypeUnavailable
	case errors.Is(err, ErrMeetingNotFound), errors.Is(err, ErrSettingsNotFound), errors.Is(err, ErrCredentialNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, ErrRevisionMismatch):
		return ErrorTypeConflict
	case errors.Is(err, ErrValidationFailed):
		return ErrorTypeValidation
	}
	return ErrorTypeInternal // default fallback
}

// Error constructors for different types
func NewValidationError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeValidation, Message: message, Err: errors.Join(err...)}
}

func NewNotFoundError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeNotFound, Message: message, Err: errors.Join(err...)}
}

func NewConflictError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeConflict, Message: message, Err: errors.Join(err...)}
}

func NewInternalError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeInternal, Message: message, Err: errors.Join(err...)}
}

func NewUnavailableError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeUnavailable, Message: message, Err: errors.Join(err...)}
}

// NewAuthError reports a missing or rejected OAuth credential. The message is
// shown to the interactive caller as-is, so keep it actionable.
func NewAuthError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeUnauthorized, Message: message, Err: errors.Join(err...)}
}

// IsAuthError reports whether err is an authorization failure.
func IsAuthError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// DecodeError is returned when an inbound push envelope is structurally absent.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode error: " + e.Reason
}

// NewDecodeError creates a DecodeError with the given reason
func NewDecodeError(reason string) *DecodeError {
	return &DecodeError{Reason: reason}
}

// SubscriptionError wraps a Workspace Events API failure with the operation
// and the target it was issued against.
type SubscriptionError struct {
	Op     string
	Target string
	Err    error
}

func (e *SubscriptionError) Error() string {
	msg := fmt.Sprintf("subscription %s failed", e.Op)
	if e.Target != "" {
		msg += " for " + e.Target
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}

// NewSubscriptionError creates a SubscriptionError
func NewSubscriptionError(op, target string, err error) *SubscriptionError {
	return &SubscriptionError{Op: op, Target: target, Err: err}
}
