package utils

import (
	"errors"
	"fmt"
)

// AppError application error structure
type AppError struct {
	Code    ResponseCode `json:"code"`
	Message string       `json:"message"`
	Err     error        `json:"-"`
}

// Error implement error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("code: %d, message: %s, error: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
}

// Unwrap implement errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError create new application error
func NewError(code ResponseCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// WrapError wrap error
func WrapError(err error, code ResponseCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Predefined errors
var (
	ErrInvalidParam = NewError(CodeInvalidParam, "invalid parameter")
	ErrUnauthorized = NewError(CodeUnauthorized, "unauthorized")
	ErrNotFound     = NewError(CodeNotFound, "resource not found")
	ErrUserNotFound = NewError(CodeNotFound, "user not found")
	ErrTokenInvalid = NewError(CodeUnauthorized, "token invalid")

	// Order workflow errors
	ErrOrderNotFound = NewError(CodeNotFound, "order not found")
	ErrEmptyOrder    = NewError(CodeEmptyOrder, "order has no items")

	// Client linking errors
	ErrClientNotFound = NewError(CodeClientNotFound, "client not found")

	// Configuration and upstream errors
	ErrConfigurationRequired = NewError(CodeConfigurationRequired, "upstream configuration required")
	ErrUpstreamUnavailable   = NewError(CodeUpstreamUnavailable, "upstream temporarily unavailable")
	ErrAuthExpired           = NewError(CodeAuthExpired, "authentication expired")

	// System errors
	ErrInternalError = NewError(CodeInternalError, "internal server error")
	ErrDatabaseError = NewError(CodeDatabaseError, "database error")
	ErrRedisError    = NewError(CodeRedisError, "redis error")
)

// NewIllegalTransition builds the error for a transition whose guard failed,
// naming both states and the unmet guard.
func NewIllegalTransition(from, to, guard string) *AppError {
	return NewError(CodeIllegalTransition,
		fmt.Sprintf("illegal transition %s -> %s: %s", from, to, guard))
}

// NewMissingTemplate builds the error for items without a bound activation template.
func NewMissingTemplate(productNames []string) *AppError {
	return NewError(CodeMissingTemplate,
		fmt.Sprintf("no activation template bound for: %v", productNames))
}

// NewMissingActivationKey builds the error for a manual item submitted without a key.
func NewMissingActivationKey(productName string) *AppError {
	return NewError(CodeMissingActivationKey,
		fmt.Sprintf("activation key required for product %q", productName))
}

// NewMissingRequiredField builds the error for a missing mandatory field.
func NewMissingRequiredField(field string) *AppError {
	return NewError(CodeMissingRequiredField,
		fmt.Sprintf("required field missing: %s", field))
}

// IsAppError check if it's an application error
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given response code.
func HasCode(err error, code ResponseCode) bool {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// GetErrorCode get error code
func GetErrorCode(err error) ResponseCode {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternalError
}

// GetErrorMessage get error message
func GetErrorMessage(err error) string {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
