package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// APIError represents an application error that maps to an HTTP response
type APIError struct {
	Status   int               `json:"-"`
	Message  string            `json:"error"`
	Fields   map[string]string `json:"fields,omitempty"`
	Internal error             `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Internal
}

func New(status int, message string, err error) *APIError {
	return &APIError{
		Status:   status,
		Message:  message,
		Internal: err,
	}
}

func BadRequest(msg string, err error) *APIError {
	return New(http.StatusBadRequest, msg, err)
}

func Unauthorized(msg string, err error) *APIError {
	return New(http.StatusUnauthorized, msg, err)
}

func Forbidden(msg string, err error) *APIError {
	return New(http.StatusForbidden, msg, err)
}

func NotFound(msg string, err error) *APIError {
	return New(http.StatusNotFound, msg, err)
}

func Conflict(msg string, err error) *APIError {
	return New(http.StatusConflict, msg, err)
}

func UnprocessableEntity(msg string, err error) *APIError {
	return New(http.StatusUnprocessableEntity, msg, err)
}

func Internal(err error) *APIError {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// NewValidationError turns binding errors into a 422 with one message per field
func NewValidationError(err error) *APIError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return UnprocessableEntity("Invalid request body", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = validationMessage(fe)
	}

	return &APIError{
		Status:   http.StatusUnprocessableEntity,
		Message:  "Validation failed",
		Fields:   fields,
		Internal: err,
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return "is invalid"
	}
}

// Is reports whether err is an APIError with the given status
func Is(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
