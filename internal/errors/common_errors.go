package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeResolution marks an archive (year, category) pair with no known layout.
	// These are fatal: no path may be guessed.
	ErrTypeResolution ErrorType = "RESOLUTION"
	// ErrTypeStructural marks a workbook that lacks a required sheet, header or field.
	// The file is logged and skipped.
	ErrTypeStructural ErrorType = "STRUCTURAL"
	// ErrTypeData marks a missing or non-positive measurement.
	ErrTypeData ErrorType = "DATA"
	// ErrTypeAmbiguity marks a value that could not be inferred with confidence.
	ErrTypeAmbiguity ErrorType = "AMBIGUITY"

	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeConfig     ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError of the same type. A target with an
// empty message matches any error of that type, which lets sentinel values be
// used with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Message == "" {
		return e.Type == t.Type
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Sentinels for errors.Is checks by type.
var (
	ErrResolution = &AppError{Type: ErrTypeResolution}
	ErrStructural = &AppError{Type: ErrTypeStructural}
	ErrData       = &AppError{Type: ErrTypeData}
	ErrAmbiguity  = &AppError{Type: ErrTypeAmbiguity}
	ErrNotFound   = &AppError{Type: ErrTypeNotFound}
)

// IsType reports whether any error in err's chain is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// Helper functions for common error types

// NewResolutionError creates an archive layout resolution error
func NewResolutionError(message string) *AppError {
	return NewAppError(ErrTypeResolution, message, nil)
}

// NewStructuralError creates a workbook structure error
func NewStructuralError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStructural, message, cause)
}

// NewDataError creates a measurement data error
func NewDataError(message string) *AppError {
	return NewAppError(ErrTypeData, message, nil)
}

// NewAmbiguityError creates an inference ambiguity error
func NewAmbiguityError(message string) *AppError {
	return NewAppError(ErrTypeAmbiguity, message, nil)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
