package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific failure of a chat operation.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates the completion provider is not configured.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeUnauthorized indicates the provider rejected the credential.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeCreditsExhausted indicates a quota that will not recover by waiting briefly.
	ErrCodeCreditsExhausted ErrorCode = "CREDITS_EXHAUSTED"
	// ErrCodeRateLimitExceeded indicates a transient rate limit.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeProvider indicates any other provider failure or malformed response.
	ErrCodeProvider ErrorCode = "PROVIDER_ERROR"
	// ErrCodeNetwork indicates the provider could not be reached.
	ErrCodeNetwork ErrorCode = "NETWORK_ERROR"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates the requested resource does not exist for the caller.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Error types reported to clients alongside canRetry.
const (
	TypeCredits   = "credits"
	TypeRateLimit = "rate_limit"
	TypeAuth      = "auth"
	TypeGeneral   = "general"
)

// AIError represents a structured error for chat operations.
type AIError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AIError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *AIError) WithContext(key string, value interface{}) *AIError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *AIError) GetCode() ErrorCode {
	return e.Code
}

// Type returns the client facing category of the error.
func (e *AIError) Type() string {
	switch e.Code {
	case ErrCodeCreditsExhausted:
		return TypeCredits
	case ErrCodeRateLimitExceeded:
		return TypeRateLimit
	case ErrCodeUnauthorized:
		return TypeAuth
	default:
		return TypeGeneral
	}
}

// CanRetry reports whether resending the same request later may succeed.
func (e *AIError) CanRetry() bool {
	return e.Code == ErrCodeRateLimitExceeded
}

// HTTPStatus maps the code to the status returned by the API.
func (e *AIError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeCreditsExhausted, ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeProvider:
		return http.StatusBadGateway
	case ErrCodeNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Convenience constructors for common error types.

// Configuration creates a configuration error.
func Configuration(msg string) *AIError {
	return &AIError{Code: ErrCodeConfiguration, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *AIError {
	return &AIError{Code: ErrCodeUnauthorized, Message: msg}
}

// CreditsExhausted creates a credits exhausted error.
func CreditsExhausted(msg string) *AIError {
	return &AIError{Code: ErrCodeCreditsExhausted, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *AIError {
	return &AIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// Provider creates a provider error.
func Provider(msg string, cause error) *AIError {
	return &AIError{Code: ErrCodeProvider, Message: msg, Cause: cause}
}

// Network creates a network error.
func Network(cause error) *AIError {
	return &AIError{Code: ErrCodeNetwork, Message: "failed to reach completion provider", Cause: cause}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *AIError {
	return &AIError{Code: ErrCodeInvalidArgument, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *AIError {
	return &AIError{Code: ErrCodeNotFound, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *AIError {
	return &AIError{Code: code, Message: msg, Cause: cause}
}

// As returns the first AIError in err's chain.
func As(err error) (*AIError, bool) {
	var aiErr *AIError
	if stderrors.As(err, &aiErr) {
		return aiErr, true
	}
	return nil, false
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if aiErr, ok := As(err); ok {
		return aiErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an AIError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if aiErr, ok := As(err); ok {
		return aiErr.Code
	}
	return defaultCode
}
