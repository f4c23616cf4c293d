package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Declaration errors (programming errors, never retried)
const (
	// ErrCodeMethodConfiguration indicates a method declaration that cannot be compiled.
	ErrCodeMethodConfiguration ErrorCode = "METHOD_CONFIGURATION"
	// ErrCodeParameter indicates a call-time argument that violates its binding contract.
	ErrCodeParameter ErrorCode = "PARAMETER"
	// ErrCodeIllegalArgument indicates an invalid argument passed to the client API.
	ErrCodeIllegalArgument ErrorCode = "ILLEGAL_ARGUMENT"
	// ErrCodeIllegalState indicates an operation invoked in the wrong lifecycle state.
	ErrCodeIllegalState ErrorCode = "ILLEGAL_STATE"
	// ErrCodeInvalidInput indicates invalid configuration input.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Per-call errors
const (
	// ErrCodeConversion indicates a converter failed to produce or consume a value.
	ErrCodeConversion ErrorCode = "CONVERSION"
	// ErrCodeTransport indicates an I/O failure reported by the call factory.
	ErrCodeTransport ErrorCode = "TRANSPORT"
	// ErrCodeCanceled indicates the call was canceled before it completed.
	ErrCodeCanceled ErrorCode = "CANCELED"
	// ErrCodeHTTP indicates a completed exchange with a non-2xx status.
	ErrCodeHTTP ErrorCode = "HTTP_ERROR"
)

// Transport classification (retryable)
const (
	// ErrCodeServiceUnavailable indicates the remote side is guarded by an open circuit.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed indicates a failed connection.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the client-side rate limiter rejected the call.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTransport:          true,
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
