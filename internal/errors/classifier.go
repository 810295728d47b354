package errors

import (
	"net/http"
	"strings"
)

// ErrorClassifier determines error type and handling strategy.
type ErrorClassifier struct {
	transientCodes    map[int]bool
	permanentCodes    map[int]bool
	timeoutPatterns   []string
	networkPatterns   []string
	rateLimitPatterns []string
}

// NewErrorClassifier creates a new error classifier.
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{
		transientCodes: map[int]bool{
			http.StatusInternalServerError: true,
			http.StatusBadGateway:          true,
			http.StatusServiceUnavailable:  true,
			http.StatusGatewayTimeout:      true,
		},
		permanentCodes: map[int]bool{
			http.StatusBadRequest:          true,
			http.StatusUnauthorized:        true,
			http.StatusForbidden:           true,
			http.StatusNotFound:            true,
			http.StatusMethodNotAllowed:    true,
			http.StatusConflict:            true,
			http.StatusUnprocessableEntity: true,
		},
		timeoutPatterns: []string{
			"timeout",
			"deadline exceeded",
			"context canceled",
			"connection reset",
		},
		networkPatterns: []string{
			"connection refused",
			"no such host",
			"network unreachable",
			"connection reset",
			"broken pipe",
			"connection closed",
		},
		rateLimitPatterns: []string{
			"rate limit",
			"too many requests",
			"quota exceeded",
			"throttled",
		},
	}
}

// Classify determines the error type and creates a PipelineError.
func (ec *ErrorClassifier) Classify(err error) *PipelineError {
	if err == nil {
		return nil
	}

	if pipeErr, ok := err.(*PipelineError); ok {
		return pipeErr
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case ec.isTimeoutError(errStr):
		return NewError(ErrorTypeTimeout, "OPERATION_TIMEOUT", "unknown operation timed out").
			WithCause(err).
			WithStack().
			Build()
	case ec.isNetworkError(errStr):
		return NewNetworkError("network connectivity issue", err)
	case ec.isRateLimitError(errStr):
		return NewError(ErrorTypeRateLimit, "RATE_LIMIT_EXCEEDED", "rate limit exceeded").
			WithCause(err).
			WithStack().
			Build()
	case ec.isDatabaseError(errStr):
		return NewDatabaseError("database operation", err)
	default:
		return NewError(ErrorTypeTransient, "UNKNOWN", "unknown error occurred").
			WithCause(err).
			WithStatusCode(http.StatusInternalServerError).
			WithStack().
			Retryable(false).
			Build()
	}
}

// ClassifyHTTPError classifies HTTP response errors.
func (ec *ErrorClassifier) ClassifyHTTPError(statusCode int, body string) *PipelineError {
	switch {
	case ec.transientCodes[statusCode]:
		return NewError(ErrorTypeTransient, "HTTP_ERROR", "HTTP request failed").
			WithDetail("status_code", statusCode).
			WithDetail("response_body", body).
			WithStatusCode(statusCode).
			Build()
	case ec.permanentCodes[statusCode]:
		return NewError(ErrorTypePermanent, "HTTP_ERROR", "HTTP request failed").
			WithDetail("status_code", statusCode).
			WithDetail("response_body", body).
			WithStatusCode(statusCode).
			Retryable(false).
			Build()
	case statusCode == http.StatusTooManyRequests:
		return NewError(ErrorTypeRateLimit, "HTTP_RATE_LIMIT", "HTTP rate limit exceeded").
			WithDetail("status_code", statusCode).
			WithDetail("response_body", body).
			Build()
	case statusCode == http.StatusRequestTimeout:
		return NewError(ErrorTypeTimeout, "HTTP_TIMEOUT", "HTTP request timed out").
			WithDetail("status_code", statusCode).
			WithDetail("response_body", body).
			Build()
	default:
		return NewError(ErrorTypeTransient, "HTTP_ERROR", "HTTP request failed").
			WithDetail("status_code", statusCode).
			WithDetail("response_body", body).
			WithStatusCode(statusCode).
			Build()
	}
}

func (ec *ErrorClassifier) isTimeoutError(errStr string) bool {
	for _, pattern := range ec.timeoutPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

func (ec *ErrorClassifier) isNetworkError(errStr string) bool {
	for _, pattern := range ec.networkPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

func (ec *ErrorClassifier) isRateLimitError(errStr string) bool {
	for _, pattern := range ec.rateLimitPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

func (ec *ErrorClassifier) isDatabaseError(errStr string) bool {
	dbPatterns := []string{
		"database",
		"sql",
		"connection pool",
		"deadlock",
		"constraint",
		"foreign key",
		"duplicate key",
		"table doesn't exist",
		"column doesn't exist",
	}

	for _, pattern := range dbPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// isAdapterHost checks if the error originates from a specific adapter's host.
func (ec *ErrorClassifier) isAdapterHost(errStr string, adapter string) bool {
	adapterPatterns := map[string][]string{
		"bibliographic": {
			"eutils.ncbi.nlm.nih.gov",
			"pubmed",
		},
		"citation": {
			"api.crossref.org",
			"api.openalex.org",
		},
		"vocabulary": {
			"id.nlm.nih.gov",
			"mesh",
		},
		"embedder": {
			"embedding",
		},
	}

	if patterns, exists := adapterPatterns[adapter]; exists {
		for _, pattern := range patterns {
			if strings.Contains(errStr, pattern) {
				return true
			}
		}
	}

	return false
}

// ClassifyAdapterError classifies errors surfaced by a specific external adapter.
func (ec *ErrorClassifier) ClassifyAdapterError(adapter string, err error) *PipelineError {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())

	switch adapter {
	case "bibliographic":
		return ec.classifyBibliographicError(err, errStr)
	case "citation":
		return ec.classifyCitationError(err, errStr)
	case "vocabulary":
		return ec.classifyVocabularyError(err, errStr)
	case "embedder":
		return ec.classifyEmbedderError(err, errStr)
	default:
		return NewAdapterError(adapter, "adapter error occurred", err)
	}
}

func (ec *ErrorClassifier) classifyBibliographicError(err error, errStr string) *PipelineError {
	switch {
	case strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "429"):
		return NewError(ErrorTypeRateLimit, "BIBLIOGRAPHIC_RATE_LIMIT", "bibliographic adapter rate limit exceeded").
			WithComponent("bibliographic_adapter").
			WithCause(err).
			WithStack().
			Build()
	case ec.isTimeoutError(errStr):
		return NewError(ErrorTypeTimeout, "BIBLIOGRAPHIC_TIMEOUT", "bibliographic adapter request timed out").
			WithComponent("bibliographic_adapter").
			WithCause(err).
			WithStack().
			Build()
	case ec.isNetworkError(errStr):
		return NewNetworkError("failed to connect to bibliographic source", err)
	default:
		return NewAdapterError("bibliographic", "bibliographic adapter error", err)
	}
}

func (ec *ErrorClassifier) classifyCitationError(err error, errStr string) *PipelineError {
	switch {
	case strings.Contains(errStr, "quota exceeded") || strings.Contains(errStr, "rate limit"):
		return NewError(ErrorTypeRateLimit, "CITATION_RATE_LIMIT", "citation adapter rate limit exceeded").
			WithComponent("citation_adapter").
			WithCause(err).
			WithStack().
			Build()
	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "401"):
		return NewAuthenticationError("citation adapter authentication failed")
	default:
		return NewAdapterError("citation", "citation adapter error", err)
	}
}

func (ec *ErrorClassifier) classifyVocabularyError(err error, errStr string) *PipelineError {
	switch {
	case ec.isRateLimitError(errStr):
		return NewError(ErrorTypeRateLimit, "VOCABULARY_RATE_LIMIT", "vocabulary adapter rate limit exceeded").
			WithComponent("vocabulary_adapter").
			WithCause(err).
			WithStack().
			Build()
	default:
		return NewAdapterError("vocabulary", "vocabulary adapter error", err)
	}
}

func (ec *ErrorClassifier) classifyEmbedderError(err error, errStr string) *PipelineError {
	switch {
	case strings.Contains(errStr, "dimension mismatch"):
		return NewError(ErrorTypePermanent, "EMBEDDER_DIMENSION_MISMATCH", "embedder returned a vector of unexpected dimension").
			WithComponent("embedder_adapter").
			WithCause(err).
			Retryable(false).
			WithStack().
			Build()
	case ec.isTimeoutError(errStr):
		return NewError(ErrorTypeTimeout, "EMBEDDER_TIMEOUT", "embedder request timed out").
			WithComponent("embedder_adapter").
			WithCause(err).
			WithStack().
			Build()
	default:
		return NewAdapterError("embedder", "embedder adapter error", err)
	}
}

// Error Classification Helper Functions

// IsTimeoutError checks if an error is a timeout error.
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if pipeErr, ok := err.(*PipelineError); ok {
		return pipeErr.Type == ErrorTypeTimeout
	}

	classifier := NewErrorClassifier()
	classifiedErr := classifier.Classify(err)
	return classifiedErr.Type == ErrorTypeTimeout
}

// IsRateLimitError checks if an error is a rate limit error.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	if pipeErr, ok := err.(*PipelineError); ok {
		return pipeErr.Type == ErrorTypeRateLimit
	}

	classifier := NewErrorClassifier()
	classifiedErr := classifier.Classify(err)
	return classifiedErr.Type == ErrorTypeRateLimit
}

// IsNetworkError checks if an error is a network error.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	if pipeErr, ok := err.(*PipelineError); ok {
		return pipeErr.Type == ErrorTypeNetwork
	}

	classifier := NewErrorClassifier()
	classifiedErr := classifier.Classify(err)
	return classifiedErr.Type == ErrorTypeNetwork
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}

	if pipeErr, ok := err.(*PipelineError); ok {
		return pipeErr.Type == ErrorTypeValidation
	}

	classifier := NewErrorClassifier()
	classifiedErr := classifier.Classify(err)
	return classifiedErr.Type == ErrorTypeValidation
}
