package http

import (
	"errors"
	"fmt"
	"time"
)

// ClientError represents different types of REST client errors
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error
type ErrorType string

const (
	NetworkError          ErrorType = "network"
	TimeoutError          ErrorType = "timeout"
	HTTPError             ErrorType = "http"
	RateLimitedError      ErrorType = "rate_limited"
	ExhaustedRetriesError ErrorType = "exhausted_retries"
	CanceledError         ErrorType = "canceled"
	ValidationError       ErrorType = "validation"
	InterceptorError      ErrorType = "interceptor"
	DecodeError           ErrorType = "decode"
)

// networkError represents a transport failure before a response was received
type networkError struct {
	message string
	wrapped error
}

func (e *networkError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

func (e *networkError) Type() ErrorType { return NetworkError }

func (e *networkError) Unwrap() error { return e.wrapped }

// timeoutError is a network failure caused by the per-attempt deadline
type timeoutError struct {
	message string
	timeout time.Duration
	wrapped error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType { return TimeoutError }

func (e *timeoutError) Unwrap() error { return e.wrapped }

// httpError is the terminal error for a non-2xx, non-429 response
type httpError struct {
	message    string
	statusCode int
	body       []byte
	readErr    error
}

func (e *httpError) Error() string {
	if len(e.body) > 0 {
		return fmt.Sprintf("HTTP error: %s (status: %d): %s", e.message, e.statusCode, truncate(string(e.body), maxBodyInError))
	}
	return fmt.Sprintf("HTTP error: %s (status: %d)", e.message, e.statusCode)
}

func (e *httpError) Type() ErrorType { return HTTPError }

func (e *httpError) StatusCode() int { return e.statusCode }

// Body returns the response body as read from the server.
func (e *httpError) Body() []byte { return e.body }

// Unwrap exposes a failure that happened while reading the body.
func (e *httpError) Unwrap() error { return e.readErr }

// rateLimitedError describes a 429 response
type rateLimitedError struct {
	retryAfter string
	attempt    int
}

func (e *rateLimitedError) Error() string {
	if e.retryAfter != "" {
		return fmt.Sprintf("rate limited on attempt %d (retry-after: %s)", e.attempt+1, e.retryAfter)
	}
	return fmt.Sprintf("rate limited on attempt %d", e.attempt+1)
}

func (e *rateLimitedError) Type() ErrorType { return RateLimitedError }

func (e *rateLimitedError) StatusCode() int { return 429 }

// exhaustedRetriesError is returned once the retry budget is spent
type exhaustedRetriesError struct {
	attempts int
	last     error
}

func (e *exhaustedRetriesError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.attempts, e.last)
}

func (e *exhaustedRetriesError) Type() ErrorType { return ExhaustedRetriesError }

func (e *exhaustedRetriesError) Unwrap() error { return e.last }

// Attempts returns how many requests were issued.
func (e *exhaustedRetriesError) Attempts() int { return e.attempts }

// canceledError is returned when the caller's context ends the execution
type canceledError struct {
	attempt int
	wrapped error
}

func (e *canceledError) Error() string {
	return fmt.Sprintf("request canceled during attempt %d: %v", e.attempt+1, e.wrapped)
}

func (e *canceledError) Type() ErrorType { return CanceledError }

func (e *canceledError) Unwrap() error { return e.wrapped }

// validationError represents request validation errors
type validationError struct {
	message string
	field   string
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

func (e *validationError) Type() ErrorType { return ValidationError }

// interceptorError represents interceptor-related errors
type interceptorError struct {
	message string
	wrapped error
	stage   string
}

func (e *interceptorError) Error() string {
	return fmt.Sprintf("interceptor error: %s (stage: %s): %v", e.message, e.stage, e.wrapped)
}

func (e *interceptorError) Type() ErrorType { return InterceptorError }

func (e *interceptorError) Unwrap() error { return e.wrapped }

// decodeError means a 2xx body could not be parsed
type decodeError struct {
	statusCode int
	body       []byte
	wrapped    error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("decode error: status %d: %v", e.statusCode, e.wrapped)
}

func (e *decodeError) Type() ErrorType { return DecodeError }

func (e *decodeError) Unwrap() error { return e.wrapped }

// NewNetworkError creates a new network error
func NewNetworkError(message string, wrapped error) ClientError {
	return &networkError{message: message, wrapped: wrapped}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, timeout time.Duration, wrapped error) ClientError {
	return &timeoutError{message: message, timeout: timeout, wrapped: wrapped}
}

// NewHTTPError creates a new terminal HTTP error
func NewHTTPError(message string, statusCode int, body []byte) ClientError {
	return &httpError{message: message, statusCode: statusCode, body: body}
}

// NewRateLimitedError creates the reason recorded for a 429 attempt
func NewRateLimitedError(attempt int, retryAfter string) ClientError {
	return &rateLimitedError{attempt: attempt, retryAfter: retryAfter}
}

// NewExhaustedRetriesError wraps the last failure after the budget is spent
func NewExhaustedRetriesError(attempts int, last error) ClientError {
	return &exhaustedRetriesError{attempts: attempts, last: last}
}

// NewCanceledError wraps a context error
func NewCanceledError(attempt int, wrapped error) ClientError {
	return &canceledError{attempt: attempt, wrapped: wrapped}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string) ClientError {
	return &validationError{message: message, field: field}
}

// NewInterceptorError creates a new interceptor error
func NewInterceptorError(message, stage string, wrapped error) ClientError {
	return &interceptorError{message: message, wrapped: wrapped, stage: stage}
}

// NewDecodeError creates an error for an unparseable success body
func NewDecodeError(statusCode int, body []byte, wrapped error) ClientError {
	return &decodeError{statusCode: statusCode, body: body, wrapped: wrapped}
}

// IsErrorType checks if an error is of a specific type. Only the outermost
// ClientError in the chain is considered.
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError checks if an error is a terminal HTTP error with a specific status code
func IsHTTPStatusError(err error, statusCode int) bool {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode() == statusCode
	}
	return false
}

// IsRetryExhausted reports whether err ended because the retry budget ran out.
func IsRetryExhausted(err error) bool {
	var exhausted *exhaustedRetriesError
	return errors.As(err, &exhausted)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.statusCode
	}
	var limited *rateLimitedError
	if errors.As(err, &limited) {
		return limited.StatusCode()
	}
	var decodeErr *decodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.statusCode
	}
	return 0
}

// ResponseBody returns the body attached to a terminal or decode error.
func ResponseBody(err error) []byte {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.body
	}
	var decodeErr *decodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.body
	}
	return nil
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

const maxBodyInError = 512

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
