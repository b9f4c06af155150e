package domain

import (
	"fmt"
	"time"
)

// MCPError represents a standardized error response
type MCPError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *MCPError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput        = "INVALID_INPUT"
	ErrDatabaseError       = "DATABASE_ERROR"
	ErrCollaboratorFailure = "COLLABORATOR_FAILURE"
	ErrConfiguration       = "CONFIGURATION_ERROR"
	ErrRateLimit           = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer      = "INTERNAL_SERVER_ERROR"
	ErrValidation          = "VALIDATION_ERROR"
	ErrNotFoundCode        = "NOT_FOUND"
	ErrServiceUnavailable  = "SERVICE_UNAVAILABLE"
)

// ValidationError represents input validation errors. Err optionally
// carries a sentinel such as ErrInvalidGrade for errors.Is checks.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
	Err     error       `json:"-"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Unwrap returns the sentinel behind the validation error, if any
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ConfigurationError signals a code defect: a lookup outside the protocol
// table's domain. It is never caused by user input.
type ConfigurationError struct {
	Category RiskCategory
	Message  string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for risk category %q: %s", string(e.Category), e.Message)
}

// CollaboratorFailure wraps any failure of the external text-generation service.
type CollaboratorFailure struct {
	Provider string
	Err      error
}

// Error implements the error interface
func (e *CollaboratorFailure) Error() string {
	return fmt.Sprintf("text generation via %s failed: %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying provider error.
func (e *CollaboratorFailure) Unwrap() error {
	return e.Err
}

// NewMCPError creates a new MCPError with timestamp
func NewMCPError(code, message, details, requestID string) *MCPError {
	return &MCPError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewSentinelValidationError creates a ValidationError that unwraps to sentinel
func NewSentinelValidationError(sentinel error, field, message string, value interface{}) *ValidationError {
	err := NewValidationError(field, message, value)
	err.Err = sentinel
	return err
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(category RiskCategory, message string) *ConfigurationError {
	return &ConfigurationError{
		Category: category,
		Message:  message,
	}
}

// NewCollaboratorFailure creates a new CollaboratorFailure
func NewCollaboratorFailure(provider string, err error) *CollaboratorFailure {
	return &CollaboratorFailure{
		Provider: provider,
		Err:      err,
	}
}
