package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if issuing a fresh call may succeed.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the response status for ErrCodeHTTP errors.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Declaration errors ---

// MethodConfiguration reports a method declaration that failed to compile.
// method is the "Service.Method" identity.
func MethodConfiguration(method, format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeMethodConfiguration,
		Message: fmt.Sprintf(format, args...) + " for method " + method,
		Details: map[string]any{"method": method},
	}
}

// ParameterConfiguration reports a parameter declaration that failed to compile.
// index is zero-based; the message uses the one-based position.
func ParameterConfiguration(method string, index int, format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeMethodConfiguration,
		Message: fmt.Sprintf(format, args...) + fmt.Sprintf(" (parameter #%d) for method %s", index+1, method),
		Details: map[string]any{"method": method, "parameter": index},
	}
}

// Parameter reports a call-time argument that violates its binding contract.
func Parameter(method string, index int, format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeParameter,
		Message: fmt.Sprintf(format, args...) + fmt.Sprintf(" (parameter #%d) for method %s", index+1, method),
		Details: map[string]any{"method": method, "parameter": index},
	}
}

// IllegalArgument reports an invalid argument passed to the client API.
func IllegalArgument(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeIllegalArgument, Message: fmt.Sprintf(format, args...)}
}

// IllegalState reports an operation invoked in the wrong lifecycle state.
func IllegalState(message string) *AppError {
	return &AppError{Code: ErrCodeIllegalState, Message: message}
}

// Validation creates a new AppError for configuration validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// --- Per-call errors ---

// Conversion reports a converter failure.
func Conversion(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeConversion, Message: message, Cause: cause}
}

// Transport wraps an opaque I/O failure from the call factory.
func Transport(cause error) *AppError {
	return &AppError{
		Code: ErrCodeTransport, Message: "transport failure",
		Retryable: true, Cause: cause,
	}
}

// Canceled reports a call preempted by cancellation.
func Canceled() *AppError {
	return &AppError{Code: ErrCodeCanceled, Message: "Canceled"}
}

// HTTPStatus reports a completed exchange whose status is outside 200..299.
func HTTPStatus(status int, body string) *AppError {
	e := &AppError{
		Code:       ErrCodeHTTP,
		Message:    fmt.Sprintf("HTTP %d %s", status, http.StatusText(status)),
		HTTPStatus: status,
	}
	if body != "" {
		e.Details = map[string]any{"body": body}
	}
	return e
}

// ServiceUnavailable reports a call rejected by an open circuit breaker.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("%s is temporarily unavailable", service),
		Retryable: true, Details: map[string]any{"service": service},
	}
}

// ConnectionFailed reports a failed connection.
func ConnectionFailed(host string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("unable to connect to %s", host),
		Retryable: true, Details: map[string]any{"host": host}, Cause: cause,
	}
}

// Timeout reports a request that exceeded its deadline.
func Timeout(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "request timed out",
		Retryable: true, Details: map[string]any{"operation": operation}, Cause: cause,
	}
}

// RateLimited reports a call rejected by the client-side rate limiter.
func RateLimited() *AppError {
	return &AppError{Code: ErrCodeRateLimited, Message: "client rate limit exceeded", Retryable: true}
}

// --- Inspection ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err, or any AppError it wraps, carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

func IsMethodConfiguration(err error) bool { return HasCode(err, ErrCodeMethodConfiguration) }
func IsParameter(err error) bool { return HasCode(err, ErrCodeParameter) }
func IsConversion(err error) bool { return HasCode(err, ErrCodeConversion) }
func IsCanceled(err error) bool { return HasCode(err, ErrCodeCanceled) }
func IsIllegalState(err error) bool { return HasCode(err, ErrCodeIllegalState) }
func IsIllegalArgument(err error) bool { return HasCode(err, ErrCodeIllegalArgument) }
func IsHTTP(err error) bool { return HasCode(err, ErrCodeHTTP) }

// IsTransport reports any transport-class failure, including timeouts,
// connection failures and client-side guards.
func IsTransport(err error) bool {
	return HasCode(err, ErrCodeTransport) || HasCode(err, ErrCodeTimeout) ||
		HasCode(err, ErrCodeConnectionFailed) || HasCode(err, ErrCodeServiceUnavailable) ||
		HasCode(err, ErrCodeRateLimited)
}
