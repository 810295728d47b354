package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	pipeerrors "litscope/internal/errors"
)

func TestErrorClassifier_Classify(t *testing.T) {
	classifier := pipeerrors.NewErrorClassifier()

	tests := []struct {
		name     string
		err      error
		expected pipeerrors.ErrorType
	}{
		{"timeout", errors.New("context deadline exceeded"), pipeerrors.ErrorTypeTimeout},
		{"network", errors.New("connection refused"), pipeerrors.ErrorTypeNetwork},
		{"rate limit", errors.New("rate limit exceeded for client"), pipeerrors.ErrorTypeRateLimit},
		{"database", errors.New("duplicate key value violates constraint"), pipeerrors.ErrorTypeTransient},
		{"unknown", errors.New("something odd happened"), pipeerrors.ErrorTypeTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifier.Classify(tt.err)
			assert.Equal(t, tt.expected, classified.Type)
		})
	}
}

func TestErrorClassifier_Classify_NilReturnsNil(t *testing.T) {
	classifier := pipeerrors.NewErrorClassifier()
	assert.Nil(t, classifier.Classify(nil))
}

func TestErrorClassifier_Classify_PassesThroughPipelineError(t *testing.T) {
	classifier := pipeerrors.NewErrorClassifier()
	original := pipeerrors.NewValidationError("bad field", "title", "")
	assert.Same(t, original, classifier.Classify(original))
}

func TestErrorClassifier_ClassifyAdapterError(t *testing.T) {
	classifier := pipeerrors.NewErrorClassifier()

	result := classifier.ClassifyAdapterError("embedder", errors.New("embedder dimension mismatch"))
	assert.Equal(t, "EMBEDDER_DIMENSION_MISMATCH", result.Code)
	assert.False(t, result.Retryable)

	result = classifier.ClassifyAdapterError("bibliographic", errors.New("upstream returned 429"))
	assert.Equal(t, pipeerrors.ErrorTypeRateLimit, result.Type)
}

func TestIsTimeoutError_IsRateLimitError_IsNetworkError(t *testing.T) {
	assert.True(t, pipeerrors.IsTimeoutError(errors.New("operation timeout")))
	assert.True(t, pipeerrors.IsRateLimitError(errors.New("too many requests")))
	assert.True(t, pipeerrors.IsNetworkError(errors.New("no such host")))
	assert.False(t, pipeerrors.IsTimeoutError(nil))
}
