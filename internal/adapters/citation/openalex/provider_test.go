package openalex_test

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

	"litscope/internal/adapters/citation/openalex"
	"litscope/internal/errors"
	"litscope/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBreakers() *errors.CircuitBreakerManager {
	return errors.NewCircuitBreakerManager(discardLogger())
}

const workBody = `{"cited_by_count":17,"counts_by_year":[{"year":2022,"cited_by_count":10},{"year":2021,"cited_by_count":7}]}`

func TestSource_CurrentCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(workBody))
	}))
	t.Cleanup(server.Close)

	source := openalex.New(server.URL, 2*time.Second, discardLogger(), testBreakers())
	assert.Equal(t, models.CitationSourceOpenAlex, source.Name())

	count, err := source.CurrentCount(context.Background(), "10.1000/xyz")
	require.NoError(t, err)
	assert.Equal(t, 17, count)
}

func TestSource_YearlyCounts_SortedAscending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(workBody))
	}))
	t.Cleanup(server.Close)

	source := openalex.New(server.URL, 2*time.Second, discardLogger(), testBreakers())
	series, err := source.YearlyCounts(context.Background(), "10.1000/xyz")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, 2021, series[0].Year)
	assert.Equal(t, 2022, series[1].Year)
}

func TestSource_CurrentCount_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	source := openalex.New(server.URL, 2*time.Second, discardLogger(), testBreakers())
	count, err := source.CurrentCount(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
