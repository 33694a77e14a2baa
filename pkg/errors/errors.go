package errors

import (
	"fmt"
)

// ErrorCategory represents the category of error for handling
type ErrorCategory string

const (
	CategoryVendorRejected ErrorCategory = "vendor_rejected"
	CategorySystemError    ErrorCategory = "system_error"
	CategoryNetworkError   ErrorCategory = "network_error"
	CategoryInvalidRequest ErrorCategory = "invalid_request"
)

// GatewayError represents a vendor call failure with detailed context. The
// vendor message is kept for diagnostics but is never surfaced to shoppers.
type GatewayError struct {
	Code          string
	Message       string
	VendorMessage string
	StatusCode    int
	IsRetriable   bool
	Category      ErrorCategory
}

func (e *GatewayError) Error() string {
	if e.VendorMessage != "" {
		return fmt.Sprintf("%s: %s (vendor: %s)", e.Code, e.Message, e.VendorMessage)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewGatewayError creates a new gateway error
func NewGatewayError(code, message string, category ErrorCategory, retriable bool) *GatewayError {
	return &GatewayError{
		Code:        code,
		Message:     message,
		Category:    category,
		IsRetriable: retriable,
	}
}

// WithVendorMessage attaches the vendor's own error detail
func (e *GatewayError) WithVendorMessage(msg string) *GatewayError {
	e.VendorMessage = msg
	return e
}

// WithStatusCode attaches the vendor HTTP status
func (e *GatewayError) WithStatusCode(code int) *GatewayError {
	e.StatusCode = code
	return e
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
