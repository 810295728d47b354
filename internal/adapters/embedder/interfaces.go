// Package embedder defines the Embedder contract (C5): turning article
// text into a fixed-dimension vector for clustering and novelty scoring.
package embedder

import "context"

// Embedder embeds text into a vector of a fixed dimension D, set at
// construction time. Implementations are pure (same text, same vector)
// and safe to call from multiple goroutines concurrently.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
