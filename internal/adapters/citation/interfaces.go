// Package citation defines the Citation Adapter contract (C3): fetching
// current and yearly citation counts for an article, tried against a
// primary source and falling back to a secondary one.
package citation

import (
	"context"
	"time"

	"litscope/internal/models"
)

// YearCount is one (year, count) observation.
type YearCount struct {
	Year  int
	Count int
}

// Source fetches citation data from a single upstream provider.
type Source interface {
	Name() models.CitationSource
	CurrentCount(ctx context.Context, doiOrPMID string) (count int, err error)
	YearlyCounts(ctx context.Context, doiOrPMID string) ([]YearCount, error)
}

// Adapter is the composite citation source: tries its primary Source
// first, falling back to the secondary when the primary result is
// missing or zero. A missing article yields count=0/empty series, never
// an error.
type Adapter interface {
	CurrentCount(ctx context.Context, doiOrPMID string) (source models.CitationSource, count int, observedOn time.Time, err error)
	YearlyCounts(ctx context.Context, doiOrPMID string) ([]YearCount, error)
}
