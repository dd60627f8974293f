package domain

import (
	"fmt"
	"time"
)

// ServiceError represents a standardized error response
type ServiceError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrValidation     = "VALIDATION_ERROR"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
	ErrModelInference = "MODEL_INFERENCE_ERROR"
	ErrDatabaseError  = "DATABASE_ERROR"
	ErrRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrRequestTimeout = "REQUEST_TIMEOUT"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ModelInferenceError wraps a failure of an external estimation capability.
// It is always absorbed by the caller's rule-based fallback.
type ModelInferenceError struct {
	Model string
	Op    string
	Err   error
}

func (e *ModelInferenceError) Error() string {
	return fmt.Sprintf("model %s: %s: %v", e.Model, e.Op, e.Err)
}

func (e *ModelInferenceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError with timestamp
func NewServiceError(code, message, details, requestID string) *ServiceError {
	return &ServiceError{
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

// NewModelInferenceError creates a new ModelInferenceError
func NewModelInferenceError(model, op string, err error) *ModelInferenceError {
	return &ModelInferenceError{
		Model: model,
		Op:    op,
		Err:   err,
	}
}
