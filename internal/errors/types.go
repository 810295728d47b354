package errors

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	// ErrorTypeTransient errors - retry with backoff.
	ErrorTypeTransient ErrorType = "transient"

	// ErrorTypePermanent errors - fail fast, no retry.
	ErrorTypePermanent ErrorType = "permanent"

	// ErrorTypeCircuitBreaker errors - gradual recovery.
	ErrorTypeCircuitBreaker ErrorType = "circuit_breaker"

	// ErrorTypeRateLimit errors - specific backoff strategy.
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeAuth errors - immediate escalation.
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypeValidation errors - client-side fix required.
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeTimeout errors - increase timeout or circuit break.
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeNetwork errors - connection-specific handling.
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeResource exhaustion - backpressure application.
	ErrorTypeResource ErrorType = "resource"

	// ErrorTypeEmptyQuery marks a search submitted with no query terms.
	ErrorTypeEmptyQuery ErrorType = "empty_query"

	// ErrorTypeScoringIncomplete marks a search whose opportunity scores
	// could not be fully computed because upstream enrichment was partial.
	ErrorTypeScoringIncomplete ErrorType = "scoring_incomplete"

	// ErrorTypeProgrammerError marks an invariant violation that should
	// never occur outside of a defect (a nil dependency, an out-of-range
	// index). Always permanent, never retryable.
	ErrorTypeProgrammerError ErrorType = "programmer_error"
)

// PipelineError represents a structured error with context, carried through
// every layer of the ingestion, clustering, trajectory and scoring stages.
type PipelineError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Stack      string                 `json:"stack,omitempty"`
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	Timestamp  time.Time              `json:"timestamp"`
	RequestID  string                 `json:"request_id,omitempty"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Code, e.Message)
}

// Is implements error matching for Go 1.13+ error handling.
func (e *PipelineError) Is(target error) bool {
	if t, ok := target.(*PipelineError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// Unwrap implements error unwrapping for Go 1.13+ error handling.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// String returns a string representation of the error.
func (e *PipelineError) String() string {
	return e.Error()
}

// HTTPStatus returns the appropriate status code for the error, retained
// for the rare caller that surfaces pipeline errors over a transport.
func (e *PipelineError) HTTPStatus() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeValidation, ErrorTypeEmptyQuery:
		return http.StatusBadRequest
	case ErrorTypeAuth:
		return http.StatusUnauthorized
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeTimeout:
		return http.StatusRequestTimeout
	case ErrorTypeNetwork, ErrorTypeTransient, ErrorTypeCircuitBreaker, ErrorTypeScoringIncomplete:
		return http.StatusServiceUnavailable
	case ErrorTypeResource:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBuilder helps build PipelineError instances.
type ErrorBuilder struct {
	err *PipelineError
}

// NewError creates a new ErrorBuilder.
func NewError(errorType ErrorType, code, message string) *ErrorBuilder {
	return &ErrorBuilder{
		err: &PipelineError{
			Type:      errorType,
			Code:      code,
			Message:   message,
			Details:   make(map[string]interface{}),
			Timestamp: time.Now(),
			Retryable: errorType == ErrorTypeTransient || errorType == ErrorTypeTimeout || errorType == ErrorTypeNetwork,
		},
	}
}

// WithCause sets the underlying cause.
func (b *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	b.err.Cause = cause
	return b
}

// WithComponent sets the component where the error occurred.
func (b *ErrorBuilder) WithComponent(component string) *ErrorBuilder {
	b.err.Component = component
	return b
}

// WithOperation sets the operation that failed.
func (b *ErrorBuilder) WithOperation(operation string) *ErrorBuilder {
	b.err.Operation = operation
	return b
}

// WithDetail adds a detail to the error.
func (b *ErrorBuilder) WithDetail(key string, value interface{}) *ErrorBuilder {
	b.err.Details[key] = value
	return b
}

// WithDetails sets multiple details.
func (b *ErrorBuilder) WithDetails(details map[string]interface{}) *ErrorBuilder {
	for k, v := range details {
		b.err.Details[k] = v
	}
	return b
}

// WithRequestID sets the request ID.
func (b *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	b.err.RequestID = requestID
	return b
}

// WithStatusCode sets the status code.
func (b *ErrorBuilder) WithStatusCode(statusCode int) *ErrorBuilder {
	b.err.StatusCode = statusCode
	return b
}

// WithStack captures the current stack trace.
func (b *ErrorBuilder) WithStack() *ErrorBuilder {
	b.err.Stack = captureStack()
	return b
}

// Retryable sets whether the error is retryable.
func (b *ErrorBuilder) Retryable(retryable bool) *ErrorBuilder {
	b.err.Retryable = retryable
	return b
}

// Build returns the constructed error.
func (b *ErrorBuilder) Build() *PipelineError {
	return b.err
}

// Predefined error constructors

// NewValidationError creates a validation error.
func NewValidationError(message string, field string, value interface{}) *PipelineError {
	return NewError(ErrorTypeValidation, "VALIDATION_ERROR", message).
		WithDetail("field", field).
		WithDetail("rejected_value", value).
		WithStatusCode(http.StatusBadRequest).
		Build()
}

// NewEmptyQueryError creates the error a search is rejected with when it
// carries no query terms.
func NewEmptyQueryError() *PipelineError {
	return NewError(ErrorTypeEmptyQuery, "EMPTY_QUERY", "search query must not be empty").
		WithComponent("pipeline").
		WithStatusCode(http.StatusBadRequest).
		Retryable(false).
		Build()
}

// NewScoringIncompleteError creates the error raised when a search's
// opportunity scores were computed from partial enrichment.
func NewScoringIncompleteError(searchID string, missing int) *PipelineError {
	return NewError(ErrorTypeScoringIncomplete, "SCORING_INCOMPLETE", "opportunity scores computed from incomplete enrichment").
		WithComponent("scoring").
		WithDetail("search_id", searchID).
		WithDetail("missing_articles", missing).
		WithStatusCode(http.StatusServiceUnavailable).
		Retryable(true).
		Build()
}

// NewProgrammerError creates an error for an invariant violation that a
// correct caller would never trigger.
func NewProgrammerError(component, operation, message string) *PipelineError {
	return NewError(ErrorTypeProgrammerError, "PROGRAMMER_ERROR", message).
		WithComponent(component).
		WithOperation(operation).
		WithStack().
		WithStatusCode(http.StatusInternalServerError).
		Retryable(false).
		Build()
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(resource string, id string) *PipelineError {
	return NewError(ErrorTypePermanent, "NOT_FOUND", fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id).
		WithStatusCode(http.StatusNotFound).
		Retryable(false).
		Build()
}

// NewAuthenticationError creates an authentication error.
func NewAuthenticationError(message string) *PipelineError {
	return NewError(ErrorTypeAuth, "AUTHENTICATION_FAILED", message).
		WithStatusCode(http.StatusUnauthorized).
		Retryable(false).
		Build()
}

// NewRateLimitError creates a rate limit error.
func NewRateLimitError(message string, retryAfter time.Duration) *PipelineError {
	return NewError(ErrorTypeRateLimit, "RATE_LIMIT_EXCEEDED", message).
		WithDetail("retry_after", retryAfter.String()).
		WithStatusCode(http.StatusTooManyRequests).
		Build()
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(operation string, timeout time.Duration) *PipelineError {
	return NewError(ErrorTypeTimeout, "OPERATION_TIMEOUT", fmt.Sprintf("operation %s timed out", operation)).
		WithOperation(operation).
		WithDetail("timeout", timeout.String()).
		WithStatusCode(http.StatusRequestTimeout).
		Build()
}

// NewNetworkError creates a network error.
func NewNetworkError(message string, cause error) *PipelineError {
	return NewError(ErrorTypeNetwork, "NETWORK_ERROR", message).
		WithCause(cause).
		WithStatusCode(http.StatusServiceUnavailable).
		Build()
}

// NewCircuitBreakerError creates a circuit breaker error.
func NewCircuitBreakerError(service string) *PipelineError {
	return NewError(ErrorTypeCircuitBreaker, "CIRCUIT_OPEN", fmt.Sprintf("circuit breaker open for %s", service)).
		WithDetail("service", service).
		WithStatusCode(http.StatusServiceUnavailable).
		Build()
}

// NewDatabaseError creates a database error.
func NewDatabaseError(operation string, cause error) *PipelineError {
	return NewError(ErrorTypeTransient, "DATABASE_ERROR", "database operation failed").
		WithOperation(operation).
		WithCause(cause).
		WithComponent("database").
		WithStatusCode(http.StatusInternalServerError).
		Build()
}

// NewAdapterError creates an external-adapter error (bibliographic,
// citation, vocabulary, embedding) for network failures and 5xx upstream
// responses — transient, retryable.
func NewAdapterError(adapter string, message string, cause error) *PipelineError {
	return NewError(ErrorTypeTransient, "ADAPTER_ERROR", message).
		WithComponent(fmt.Sprintf("%s_adapter", adapter)).
		WithCause(cause).
		WithDetail("adapter", adapter).
		WithStatusCode(http.StatusServiceUnavailable).
		Build()
}

// NewAdapterDecodeError creates an external-adapter error for a malformed
// upstream document (body that fails to unmarshal). A retry against the
// same adapter would produce the same malformed body, so this is
// permanent per spec.md §4.2, unlike NewAdapterError's network/5xx case.
func NewAdapterDecodeError(adapter string, message string, cause error) *PipelineError {
	return NewError(ErrorTypePermanent, "ADAPTER_DECODE_ERROR", message).
		WithComponent(fmt.Sprintf("%s_adapter", adapter)).
		WithCause(cause).
		WithDetail("adapter", adapter).
		WithStatusCode(http.StatusBadGateway).
		Build()
}

// captureStack captures the current stack trace.
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var buf strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}

	return buf.String()
}

// Common error variables for easy reuse.
var (
	ErrInvalidInput = NewError(ErrorTypeValidation, "INVALID_INPUT", "invalid input provided").Build()
	ErrInternal     = NewError(ErrorTypePermanent, "INTERNAL_ERROR", "internal error").WithStatusCode(http.StatusInternalServerError).Build()
)

// NewMessagingError creates a messaging error.
func NewMessagingError(message string, details map[string]interface{}) *PipelineError {
	return NewError(ErrorTypeTransient, "MESSAGING_ERROR", message).
		WithDetails(details).
		WithStatusCode(http.StatusServiceUnavailable).
		Build()
}

// NewSerializationError creates a serialization error.
func NewSerializationError(message string, data interface{}) *PipelineError {
	return NewError(ErrorTypePermanent, "SERIALIZATION_ERROR", message).
		WithDetail("data", data).
		WithStatusCode(http.StatusBadRequest).
		Build()
}

// NewDuplicateError creates a duplicate error.
func NewDuplicateError(message string, key string) *PipelineError {
	return NewError(ErrorTypePermanent, "DUPLICATE_ERROR", message).
		WithDetail("key", key).
		WithStatusCode(http.StatusConflict).
		Build()
}

// NewInternalError creates an internal error.
func NewInternalError(message string, err error) *PipelineError {
	builder := NewError(ErrorTypePermanent, "INTERNAL_ERROR", message).
		WithStatusCode(http.StatusInternalServerError)

	if err != nil {
		builder = builder.WithCause(err)
	}

	return builder.Build()
}

// IsDuplicateKeyError checks if error is a duplicate key error.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "duplicate key") ||
		strings.Contains(errMsg, "UNIQUE constraint") ||
		strings.Contains(errMsg, "already exists")
}

// NewHealthCheckError creates a health check error.
func NewHealthCheckError(message string, component string) *PipelineError {
	return NewError(ErrorTypeTransient, "HEALTH_CHECK_ERROR", message).
		WithComponent(component).
		WithOperation("health_check").
		WithStatusCode(http.StatusServiceUnavailable).
		Build()
}
