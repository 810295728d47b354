package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// StubEmbedder hashes text into a stable, deterministic vector. It exists
// for reproducible tests where a real embedding service is unavailable,
// the same way the teacher's providers swap a test double behind
// SearchProvider.
type StubEmbedder struct {
	dimension int
}

// NewStub creates a StubEmbedder of the given dimension.
func NewStub(dimension int) *StubEmbedder {
	return &StubEmbedder{dimension: dimension}
}

// Dimension implements Embedder.
func (s *StubEmbedder) Dimension() int { return s.dimension }

// Embed implements Embedder. The same text always yields the same
// vector; whitespace-only input yields a zero vector.
func (s *StubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector := make([]float32, s.dimension)

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return vector, nil
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(trimmed))
	seed := h.Sum64()

	var sumSquares float64
	for i := range vector {
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float32(int64(seed>>40)%2000-1000) / 1000.0
		vector[i] = v
		sumSquares += float64(v) * float64(v)
	}

	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return vector, nil
	}
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
	return vector, nil
}
