package errors_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	pipeerrors "litscope/internal/errors"
)

func breakerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := pipeerrors.NewCircuitBreaker(pipeerrors.CircuitBreakerConfig{
		Name:                "pubmed",
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             time.Minute,
		MaxRequests:         1,
		ExpectedFailureRate: 0.1,
		MinRequestCount:     2,
		SlidingWindow:       time.Minute,
	}, breakerLogger())

	assert.Equal(t, pipeerrors.StateClosed, cb.GetState())

	for i := 0; i < 2; i++ {
		err := cb.Execute(func() error { return pipeerrors.NewNetworkError("blip", nil) })
		assert.Error(t, err)
	}

	assert.Equal(t, pipeerrors.StateOpen, cb.GetState())
}

func TestCircuitBreaker_RejectsWhileOpen(t *testing.T) {
	cb := pipeerrors.NewCircuitBreaker(pipeerrors.CircuitBreakerConfig{
		Name:                "pubmed",
		FailureThreshold:    1,
		SuccessThreshold:    1,
		Timeout:             time.Hour,
		MaxRequests:         1,
		ExpectedFailureRate: 0,
		MinRequestCount:     1,
		SlidingWindow:       time.Minute,
	}, breakerLogger())

	_ = cb.Execute(func() error { return pipeerrors.NewNetworkError("blip", nil) })
	assert.Equal(t, pipeerrors.StateOpen, cb.GetState())

	calls := 0
	err := cb.Execute(func() error {
		calls++
		return nil
	})
	assert.Error(t, err)
	assert.Equal(t, 0, calls)
}

func TestCircuitBreaker_FailedTrialAfterTimeoutStaysOpen(t *testing.T) {
	cb := pipeerrors.NewCircuitBreaker(pipeerrors.CircuitBreakerConfig{
		Name:                "pubmed",
		FailureThreshold:    1,
		SuccessThreshold:    1,
		Timeout:             10 * time.Millisecond,
		MaxRequests:         5,
		ExpectedFailureRate: 0,
		MinRequestCount:     1,
		SlidingWindow:       time.Minute,
	}, breakerLogger())

	_ = cb.Execute(func() error { return pipeerrors.NewNetworkError("blip", nil) })
	assert.Equal(t, pipeerrors.StateOpen, cb.GetState())

	time.Sleep(15 * time.Millisecond)
	assert.True(t, cb.Allow())

	cb.Record(false, time.Millisecond)
	assert.Equal(t, pipeerrors.StateOpen, cb.GetState())
}

func TestCircuitBreakerManager_GetOrCreateReusesInstance(t *testing.T) {
	mgr := pipeerrors.NewCircuitBreakerManager(breakerLogger())

	cb1 := mgr.GetOrCreate("crossref", pipeerrors.CircuitBreakerConfig{
		FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Minute,
		MaxRequests: 1, MinRequestCount: 1, SlidingWindow: time.Minute,
	})
	cb2 := mgr.GetOrCreate("crossref", pipeerrors.CircuitBreakerConfig{FailureThreshold: 99})
	assert.Same(t, cb1, cb2)

	got, ok := mgr.Get("crossref")
	assert.True(t, ok)
	assert.Same(t, cb1, got)

	_, ok = mgr.Get("unknown")
	assert.False(t, ok)

	all := mgr.GetAll()
	assert.Len(t, all, 1)
}
