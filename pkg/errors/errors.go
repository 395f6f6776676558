package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorCode represents a unique error code
type ErrorCode int

// FieldError carries field-level detail for validation failures
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError represents an application error
type AppError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
	Err     error        `json:"-"`
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

// Is matches on the error code so callers can compare against the sentinels below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// StatusCode maps the error code onto an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest, ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrLockedField, ErrInvalidTransition:
		return http.StatusConflict
	case ErrTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrValidation
	ErrLockedField
	ErrInvalidTransition
	ErrTooManyRequests
)

// Sentinels for errors.Is checks.
var (
	ErrLockedFieldMutation     = &AppError{Code: ErrLockedField, Message: "locked field mutation"}
	ErrInvalidStatusTransition = &AppError{Code: ErrInvalidTransition, Message: "invalid status transition"}
	ErrValidationFailed        = &AppError{Code: ErrValidation, Message: "validation failed"}
	ErrResourceNotFound        = &AppError{Code: ErrNotFound, Message: "not found"}
	ErrAccessDenied            = &AppError{Code: ErrForbidden, Message: "forbidden"}
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// LockedFieldMutation reports locked fields that changed after the entity left its initial status.
func LockedFieldMutation(entity string, fields []string) *AppError {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	fe := make([]FieldError, 0, len(sorted))
	for _, f := range sorted {
		fe = append(fe, FieldError{Field: f, Message: "field is locked"})
	}
	return &AppError{
		Code:    ErrLockedField,
		Message: fmt.Sprintf("this %s cannot be modified after it has been confirmed or processed: %s", entity, strings.Join(sorted, ", ")),
		Fields:  fe,
	}
}

func InvalidStatusTransition(entity, from, to string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("%s cannot move from %q to %q", entity, from, to),
	}
}

func Validation(fields ...FieldError) *AppError {
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return &AppError{
		Code:    ErrValidation,
		Message: "validation failed: " + strings.Join(msgs, "; "),
		Fields:  fields,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

// As unwraps err into an *AppError when one is present in the chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
