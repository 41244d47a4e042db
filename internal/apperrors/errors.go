package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrPreconditionFailed indicates an illegal transition, a wrong role or missing guard data.
var ErrPreconditionFailed = errors.New("precondition failed")

// ErrForbidden indicates that the actor is not affiliated with the resource it acts on.
var ErrForbidden = errors.New("forbidden")

// ErrConflict indicates that a concurrent write won the race; the caller may retry.
var ErrConflict = errors.New("conflict")

// ErrAlreadyIssued is returned alongside the existing certificate when issuance is repeated.
var ErrAlreadyIssued = errors.New("certificate already issued")

// ErrArchived indicates that the certificate no longer accepts download requests.
var ErrArchived = errors.New("certificate archived")

// ErrInvalidReference indicates an unknown or cancelled payment reference.
var ErrInvalidReference = errors.New("invalid payment reference")

// AppError carries an HTTP-ish code and a message around an underlying error.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError wraps err with a code and message.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError returns an AppError that matches ErrNotFound.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: message, Err: ErrNotFound}
}

// NewConflictError returns an AppError that matches ErrConflict.
func NewConflictError(message string) *AppError {
	return &AppError{Code: http.StatusConflict, Message: message, Err: ErrConflict}
}

// NewValidationFailedError returns an AppError that matches ErrValidation.
func NewValidationFailedError(message string) *AppError {
	return &AppError{Code: http.StatusUnprocessableEntity, Message: message, Err: ErrValidation}
}

// Precondition builds an error matching ErrPreconditionFailed with a formatted detail.
func Precondition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPreconditionFailed, fmt.Sprintf(format, args...))
}

// HTTPStatus maps an error from the core to the status code handlers should answer with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrAlreadyIssued), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrArchived):
		return http.StatusGone
	case errors.Is(err, ErrInvalidReference):
		return http.StatusBadRequest
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
