package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeUnauthorized indicates unauthorized access
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeRender indicates template rendering or PDF conversion failed;
	// fatal to report generation, nothing is persisted
	ErrorTypeRender ErrorType = "RENDER"

	// ErrorTypeUpload indicates the blob upload failed; archiving aborts
	// before any record is written
	ErrorTypeUpload ErrorType = "UPLOAD"

	// ErrorTypeRecordWrite indicates the record append failed after a
	// successful upload; the blob is retained
	ErrorTypeRecordWrite ErrorType = "RECORD_WRITE"

	// ErrorTypeExtraction indicates PDF text extraction failed; the archived
	// report is unaffected
	ErrorTypeExtraction ErrorType = "EXTRACTION"

	// ErrorTypeChatCall indicates a conversational model call failed; the
	// transcript is left unchanged
	ErrorTypeChatCall ErrorType = "CHAT_CALL"

	// ErrorTypeAuth indicates an identity provider error
	ErrorTypeAuth ErrorType = "AUTH"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// NewRenderError creates a new report rendering error
func NewRenderError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeRender,
		Message: message,
		Err:     err,
	}
}

// NewUploadError creates a new blob upload error
func NewUploadError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeUpload,
		Message: message,
		Err:     err,
	}
}

// NewRecordWriteError creates a new record write error
func NewRecordWriteError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeRecordWrite,
		Message: message,
		Err:     err,
	}
}

// NewExtractionError creates a new text extraction error
func NewExtractionError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExtraction,
		Message: message,
		Err:     err,
	}
}

// NewChatCallError creates a new conversational model error
func NewChatCallError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeChatCall,
		Message: message,
		Err:     err,
	}
}

// NewAuthError creates a new identity provider error
func NewAuthError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeAuth,
		Message: message,
		Err:     err,
	}
}
