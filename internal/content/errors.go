package content

import (
	"errors"
	"fmt"
	"net/http"

	"caucus/internal/models"
	"caucus/internal/storage"
)

// ServiceError represents errors from the content service with HTTP context
type ServiceError struct {
	Code       string
	Message    string
	StatusCode int
	Details    map[string]string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func NewNotFoundError(kind, id string) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeNotFound,
		Message:    fmt.Sprintf("%s '%s' not found", kind, id),
		StatusCode: http.StatusNotFound,
	}
}

func NewInvalidRequestError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewValidationError carries per-field messages when err is a
// models.ValidationErrors.
func NewValidationError(message string, err error) *ServiceError {
	se := &ServiceError{
		Code:       models.ErrorCodeValidation,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        err,
	}
	var verrs models.ValidationErrors
	if errors.As(err, &verrs) {
		se.Details = map[string]string(verrs)
	}
	return se
}

func NewInternalError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeInternalError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// storageError maps a storage failure onto a ServiceError.
func storageError(kind, id, action string, err error) *ServiceError {
	if errors.Is(err, storage.ErrNotFound) {
		return NewNotFoundError(kind, id)
	}
	return NewInternalError("failed to "+action+" "+kind, err)
}
