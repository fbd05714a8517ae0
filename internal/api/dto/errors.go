package dto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// APIError represents a structured error response.
// Every error response of the API uses this format.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeInternalError = "internal_error"
	ErrCodeValidation    = "validation_error"
)

// NewAPIError creates a new APIError with the given code and message.
func NewAPIError(code, message string) APIError {
	return APIError{
		Code:    code,
		Message: message,
	}
}

// NotFoundError creates a not found error response.
func NotFoundError(resource string) APIError {
	return NewAPIError(ErrCodeNotFound, resource+" not found")
}

// BadRequestError creates a bad request error response.
func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// InternalError creates an internal server error response.
func InternalError() APIError {
	return NewAPIError(ErrCodeInternalError, "an internal error occurred")
}

// ValidationError creates a validation error response.
func ValidationError(message string) APIError {
	return NewAPIError(ErrCodeValidation, message)
}

// FieldValidationError lists the failed fields of a validator error.
func FieldValidationError(err error) APIError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationError(err.Error())
	}
	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag())
	}
	return ValidationError(strings.Join(fields, "; "))
}
