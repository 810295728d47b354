package embedder_test

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

	"litscope/internal/adapters/embedder"
	"litscope/internal/errors"
)

func testBreakers() *errors.CircuitBreakerManager {
	return errors.NewCircuitBreakerManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Embed_EmptyTextSkipsUpstream(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(server.Close)

	client := embedder.New(server.URL, 4, time.Second, testBreakers())
	vec, err := client.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 4), vec)
	assert.False(t, called)
}

func TestClient_Embed_ReturnsUpstreamVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"vector":[0.1,0.2,0.3]}`))
	}))
	t.Cleanup(server.Close)

	client := embedder.New(server.URL, 3, time.Second, testBreakers())
	vec, err := client.Embed(context.Background(), "some article text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestClient_Embed_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"vector":[0.1,0.2]}`))
	}))
	t.Cleanup(server.Close)

	client := embedder.New(server.URL, 5, time.Second, testBreakers())
	_, err := client.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestStubEmbedder_DeterministicAndNormalized(t *testing.T) {
	stub := embedder.NewStub(16)
	assert.Equal(t, 16, stub.Dimension())

	a, err := stub.Embed(context.Background(), "same text")
	require.NoError(t, err)
	b, err := stub.Embed(context.Background(), "same text")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := stub.Embed(context.Background(), "different text")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	var sumSquares float64
	for _, v := range a {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sumSquares, 1e-6)
}

func TestStubEmbedder_BlankTextYieldsZeroVector(t *testing.T) {
	stub := embedder.NewStub(4)
	vec, err := stub.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 4), vec)
}
