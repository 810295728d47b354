package errors_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerrors "litscope/internal/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetryExecutor_SucceedsWithoutRetry(t *testing.T) {
	executor := pipeerrors.NewRetryExecutor(
		pipeerrors.WithFixedDelay(3, time.Millisecond),
		pipeerrors.NewErrorClassifier(),
		discardLogger(),
	)

	calls := 0
	err := executor.Execute(context.Background(), "op", func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryExecutor_RetriesTransientThenSucceeds(t *testing.T) {
	executor := pipeerrors.NewRetryExecutor(
		pipeerrors.WithFixedDelay(5, time.Millisecond),
		pipeerrors.NewErrorClassifier(),
		discardLogger(),
	)

	calls := 0
	err := executor.Execute(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return pipeerrors.NewNetworkError("blip", nil)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExecutor_GivesUpOnPermanentError(t *testing.T) {
	executor := pipeerrors.NewRetryExecutor(
		pipeerrors.WithFixedDelay(5, time.Millisecond),
		pipeerrors.NewErrorClassifier(),
		discardLogger(),
	)

	calls := 0
	err := executor.Execute(context.Background(), "op", func() error {
		calls++
		return pipeerrors.NewValidationError("bad field", "x", "y")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryExecutor_ExhaustsMaxAttempts(t *testing.T) {
	executor := pipeerrors.NewRetryExecutor(
		pipeerrors.WithFixedDelay(3, time.Millisecond),
		pipeerrors.NewErrorClassifier(),
		discardLogger(),
	)

	calls := 0
	err := executor.Execute(context.Background(), "op", func() error {
		calls++
		return pipeerrors.NewNetworkError("persistent failure", nil)
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)

	stats := executor.GetStats()
	assert.Equal(t, int64(1), stats.FailedRetries)
}

func TestRetryExecutor_RespectsContextCancellation(t *testing.T) {
	executor := pipeerrors.NewRetryExecutor(
		pipeerrors.WithFixedDelay(10, 50*time.Millisecond),
		pipeerrors.NewErrorClassifier(),
		discardLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := executor.Execute(ctx, "op", func() error {
		calls++
		return pipeerrors.NewNetworkError("blip", nil)
	})
	assert.ErrorIs(t, err, context.Canceled)
}
