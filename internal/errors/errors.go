// Package errors provides the error taxonomy shared by the pricing engine
// and the adapters around it.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeValidation indicates malformed plan, context or component input.
	// The caller should reject the originating request.
	TypeValidation Type = "VALIDATION_ERROR"

	// TypeTenantMismatch indicates an evaluation across tenant boundaries.
	TypeTenantMismatch Type = "TENANT_MISMATCH"

	// TypeInvariant indicates an engine or model defect. Never retried.
	TypeInvariant Type = "INVARIANT_VIOLATION"

	// TypeParsing indicates a plan or context file could not be parsed
	TypeParsing Type = "PARSING_ERROR"

	// TypeConfig indicates a configuration error
	TypeConfig Type = "CONFIG_ERROR"

	// TypeNotFound indicates a plan or version lookup miss
	TypeNotFound Type = "NOT_FOUND"

	// TypeConflict indicates a write-once violation in the catalog
	TypeConflict Type = "CONFLICT"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same type. This lets
// callers match on the category with errors.Is(err, errors.New(TypeX, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Field == "" || t.Field == e.Field)
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Validation creates a validation error for a single field.
func Validation(field, message string) *Error {
	return &Error{
		Type:    TypeValidation,
		Field:   field,
		Message: message,
	}
}

// Validationf creates a formatted validation error for a single field.
func Validationf(field, format string, args ...interface{}) *Error {
	return Validation(field, fmt.Sprintf(format, args...))
}

// TenantMismatch creates the error returned when a context is evaluated
// against another tenant's plan version.
func TenantMismatch(contextTenant, planTenant string) *Error {
	return Newf(TypeTenantMismatch,
		"context tenant %s does not match plan version tenant %s", contextTenant, planTenant).
		WithContext("context_tenant", contextTenant).
		WithContext("plan_tenant", planTenant)
}

// Invariant creates an invariant violation error
func Invariant(message string, cause error) *Error {
	return Wrap(TypeInvariant, message, cause)
}

// Parsing creates a parsing error
func Parsing(message string, cause error) *Error {
	return Wrap(TypeParsing, message, cause)
}

// Config creates a configuration error
func Config(message string, cause error) *Error {
	return Wrap(TypeConfig, message, cause)
}

// NotFound creates a not found error
func NotFound(resourceType, identifier string) *Error {
	return Newf(TypeNotFound, "%s not found: %s", resourceType, identifier)
}

// Conflict creates a conflict error
func Conflict(resourceType, identifier string) *Error {
	return Newf(TypeConflict, "%s already exists: %s", resourceType, identifier)
}

// IsType checks if an error, or any error it wraps, is of a specific type
func IsType(err error, t Type) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return IsType(err, TypeValidation) }

// IsTenantMismatch reports whether err is a tenant isolation failure.
func IsTenantMismatch(err error) bool { return IsType(err, TypeTenantMismatch) }

// IsInvariantViolation reports whether err signals an engine defect.
func IsInvariantViolation(err error) bool { return IsType(err, TypeInvariant) }

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool { return IsType(err, TypeNotFound) }

// IsConflict reports whether err is a write-once violation.
func IsConflict(err error) bool { return IsType(err, TypeConflict) }

// IsUserFacing reports whether err should be surfaced to the caller as a
// rejected request rather than an internal failure.
func IsUserFacing(err error) bool {
	return IsValidation(err) || IsTenantMismatch(err)
}

// FieldOf returns the offending field of a validation error, if any.
func FieldOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Field
	}
	return ""
}
