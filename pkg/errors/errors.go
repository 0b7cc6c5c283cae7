package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
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

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrInternal
)

// Booking domain error codes. Each maps to one failure kind surfaced to
// callers with a human-readable message; none is retried automatically.
const (
	ErrValidation ErrorCode = iota + 2000
	ErrNoConfig
	ErrInvalidDuration
	ErrSlotConflict
	ErrOutOfWindow
	ErrExceedsWindow
	ErrDoubleBooking
	ErrCancellationWindow
	ErrFutureDate
	ErrInvalidTransition
)

// Error constructors
func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{Code: ErrBadRequest, Message: message, Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal server error", Err: err}
}

func Unauthorized(err error) *AppError {
	return &AppError{Code: ErrUnauthorized, Message: "unauthorized", Err: err}
}

func Validation(format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NoConfig(message string) *AppError {
	return &AppError{Code: ErrNoConfig, Message: message}
}

func InvalidDuration(message string) *AppError {
	return &AppError{Code: ErrInvalidDuration, Message: message}
}

func SlotConflict(message string) *AppError {
	return &AppError{Code: ErrSlotConflict, Message: message}
}

func OutOfWindow(message string) *AppError {
	return &AppError{Code: ErrOutOfWindow, Message: message}
}

func ExceedsWindow(message string) *AppError {
	return &AppError{Code: ErrExceedsWindow, Message: message}
}

func DoubleBooking(message string) *AppError {
	return &AppError{Code: ErrDoubleBooking, Message: message}
}

func CancellationWindow(message string) *AppError {
	return &AppError{Code: ErrCancellationWindow, Message: message}
}

func FutureDate(message string) *AppError {
	return &AppError{Code: ErrFutureDate, Message: message}
}

func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("cannot change status from %s to %s", from, to),
	}
}

// CodeOf extracts the ErrorCode from err, or ErrInternal when err is not an
// AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
