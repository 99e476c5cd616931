package http

import (
	"errors"
	"fmt"
	nethttp "net/http"
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
	NetworkError     ErrorType = "network"
	TimeoutError     ErrorType = "timeout"
	HTTPError        ErrorType = "http"
	ValidationError  ErrorType = "validation"
	InterceptorError ErrorType = "interceptor"
	ExhaustedError   ErrorType = "exhausted"
)

// networkError represents network-related errors
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

func (e *networkError) Type() ErrorType {
	return NetworkError
}

func (e *networkError) Unwrap() error {
	return e.wrapped
}

// timeoutError represents timeout-related errors
type timeoutError struct {
	message string
	timeout time.Duration
	wrapped error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType {
	return TimeoutError
}

func (e *timeoutError) Unwrap() error {
	return e.wrapped
}

// httpError represents a completed exchange with a non-2xx status
type httpError struct {
	message    string
	statusCode int
	body       []byte
	headers    nethttp.Header
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP error: %s (status: %d)", e.message, e.statusCode)
}

func (e *httpError) Type() ErrorType {
	return HTTPError
}

func (e *httpError) StatusCode() int {
	return e.statusCode
}

func (e *httpError) Body() []byte {
	return e.body
}

func (e *httpError) Headers() nethttp.Header {
	return e.headers
}

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

func (e *validationError) Type() ErrorType {
	return ValidationError
}

// interceptorError represents a failing pipeline stage
type interceptorError struct {
	message string
	wrapped error
	stage   string
}

func (e *interceptorError) Error() string {
	return fmt.Sprintf("interceptor error: %s (stage: %s): %v", e.message, e.stage, e.wrapped)
}

func (e *interceptorError) Type() ErrorType {
	return InterceptorError
}

func (e *interceptorError) Unwrap() error {
	return e.wrapped
}

// ExhaustedRetriesError is returned by Retry when every attempt failed.
// It unwraps to the error of the final attempt.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Type() ErrorType {
	return ExhaustedError
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Last
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, wrapped error) ClientError {
	return &networkError{
		message: message,
		wrapped: wrapped,
	}
}

// NewTimeoutError creates a new timeout error. wrapped may be nil.
func NewTimeoutError(message string, timeout time.Duration, wrapped error) ClientError {
	return &timeoutError{
		message: message,
		timeout: timeout,
		wrapped: wrapped,
	}
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(message string, statusCode int, body []byte, headers nethttp.Header) ClientError {
	return &httpError{
		message:    message,
		statusCode: statusCode,
		body:       body,
		headers:    headers,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string) ClientError {
	return &validationError{
		message: message,
		field:   field,
	}
}

// NewInterceptorError creates a new interceptor error
func NewInterceptorError(message, stage string, wrapped error) ClientError {
	return &interceptorError{
		message: message,
		wrapped: wrapped,
		stage:   stage,
	}
}

// IsErrorType checks if an error is of a specific type
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

// IsHTTPStatusError checks if an error is an HTTP error with a specific status code
func IsHTTPStatusError(err error, statusCode int) bool {
	code, ok := StatusCode(err)
	return ok && code == statusCode
}

// StatusCode returns the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode(), true
	}
	return 0, false
}

// ErrorBody returns the response body and headers carried by an HTTP error.
func ErrorBody(err error) ([]byte, nethttp.Header, bool) {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.Body(), httpErr.Headers(), true
	}
	return nil, nil, false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// Class groups failures by how the client treats them.
type Class string

const (
	ClassNone      Class = ""
	ClassAuth      Class = "auth"
	ClassTransient Class = "transient"
	ClassClient    Class = "client"
	ClassExhausted Class = "exhausted"
	ClassInvalid   Class = "invalid"
)

// Classify maps an error returned by the client onto its failure class.
// 401 is auth, no status or 5xx is transient, any other status is a client error.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	if IsErrorType(err, ExhaustedError) {
		return ClassExhausted
	}
	if IsErrorType(err, ValidationError) || IsErrorType(err, InterceptorError) {
		return ClassInvalid
	}
	code, ok := StatusCode(err)
	switch {
	case !ok:
		return ClassTransient
	case code == nethttp.StatusUnauthorized:
		return ClassAuth
	case isRetryableStatus(code):
		return ClassTransient
	default:
		return ClassClient
	}
}

func isRetryableStatus(code int) bool {
	return code >= 500 && code < 600
}
