package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Status is the upstream HTTP status for ErrServer, zero otherwise.
	Status int   `json:"status,omitempty"`
	Err    error `json:"-"`
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

// StatusCode is picked up by the error middleware.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrNetwork, ErrServer, ErrDecode:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrInternal
	// ErrNetwork covers transport failures: refused connections, timeouts, an open breaker.
	ErrNetwork
	// ErrServer is a non-2xx answer from the backend.
	ErrServer
	// ErrDecode is a 2xx answer whose body could not be decoded.
	ErrDecode
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

func NewNetwork(operation string, err error) *AppError {
	return &AppError{
		Code:    ErrNetwork,
		Message: fmt.Sprintf("%s: request failed", operation),
		Err:     err,
	}
}

func NewServer(operation string, status int) *AppError {
	return &AppError{
		Code:    ErrServer,
		Message: fmt.Sprintf("%s: backend responded %d %s", operation, status, http.StatusText(status)),
		Status:  status,
	}
}

func NewDecode(operation string, err error) *AppError {
	return &AppError{
		Code:    ErrDecode,
		Message: fmt.Sprintf("%s: malformed response", operation),
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

func IsNetwork(err error) bool {
	return err != nil && CodeOf(err) == ErrNetwork
}

func IsServer(err error) bool {
	return err != nil && CodeOf(err) == ErrServer
}

func IsDecode(err error) bool {
	return err != nil && CodeOf(err) == ErrDecode
}
