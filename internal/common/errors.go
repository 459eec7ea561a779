package common

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeConfiguration for configuration-related errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeValidation for malformed input to a create/update call
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound for unknown connection/project/object ids
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeConnection for unreachable host, auth failure or timeout
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeParse for malformed adapter output
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeSyncCycle for a failed background polling cycle
	ErrorTypeSyncCycle ErrorType = "sync_cycle"
	// ErrorTypeStorage for storage/persistence errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeInternal for internal system errors
	ErrorTypeInternal ErrorType = "internal"
)

// MigrationError represents a structured error with context
type MigrationError struct {
	Type      ErrorType              `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"`
}

// Error implements the error interface
func (e *MigrationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Type, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *MigrationError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *MigrationError) WithContext(key string, value interface{}) *MigrationError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *MigrationError) WithCause(cause error) *MigrationError {
	e.Cause = cause
	return e
}

// NewError creates a new MigrationError
func NewError(errorType ErrorType, code, message string) *MigrationError {
	return &MigrationError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(code, message string) *MigrationError {
	return NewError(ErrorTypeConfiguration, code, message)
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *MigrationError {
	return NewError(ErrorTypeValidation, code, message)
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(code, message string) *MigrationError {
	return NewError(ErrorTypeNotFound, code, message)
}

// NewConnectionError creates a repository connection error
func NewConnectionError(code, message string) *MigrationError {
	return NewError(ErrorTypeConnection, code, message)
}

// NewParseError creates an adapter output parse error
func NewParseError(code, message string) *MigrationError {
	return NewError(ErrorTypeParse, code, message)
}

// NewSyncCycleError creates a sync cycle error
func NewSyncCycleError(code, message string) *MigrationError {
	return NewError(ErrorTypeSyncCycle, code, message)
}

// NewStorageError creates a storage error
func NewStorageError(code, message string) *MigrationError {
	return NewError(ErrorTypeStorage, code, message)
}

// NewInternalError creates an internal system error
func NewInternalError(code, message string) *MigrationError {
	return NewError(ErrorTypeInternal, code, message)
}

// WrapError wraps an existing error with MigrationError context
func WrapError(err error, errorType ErrorType, code, message string) *MigrationError {
	return &MigrationError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     err,
	}
}

// TypeOf returns the error type of err, or ErrorTypeInternal for plain errors.
func TypeOf(err error) ErrorType {
	var me *MigrationError
	if errors.As(err, &me) {
		return me.Type
	}
	return ErrorTypeInternal
}

// IsConnectionError reports whether err carries the connection error type.
func IsConnectionError(err error) bool {
	return TypeOf(err) == ErrorTypeConnection
}

// IsNotFound reports whether err carries the not-found error type.
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}
