package crossref_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litscope/internal/adapters/citation/crossref"
	"litscope/internal/errors"
	"litscope/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBreakers() *errors.CircuitBreakerManager {
	return errors.NewCircuitBreakerManager(discardLogger())
}

func TestSource_CurrentCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"is-referenced-by-count":42}}`))
	}))
	t.Cleanup(server.Close)

	source := crossref.New(server.URL, 2*time.Second, discardLogger(), testBreakers())
	assert.Equal(t, models.CitationSourceCrossRef, source.Name())

	count, err := source.CurrentCount(context.Background(), "10.1000/xyz")
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestSource_CurrentCount_NotFoundYieldsZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	source := crossref.New(server.URL, 2*time.Second, discardLogger(), testBreakers())
	count, err := source.CurrentCount(context.Background(), "unknown-doi")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSource_YearlyCounts_AlwaysEmpty(t *testing.T) {
	source := crossref.New("http://example.invalid", time.Second, discardLogger(), testBreakers())
	series, err := source.YearlyCounts(context.Background(), "10.1000/xyz")
	require.NoError(t, err)
	assert.Empty(t, series)
}
