// Package bibliographic defines the Bibliographic Adapter contract (C2):
// searching an upstream literature index for article records matching a
// query expression composed by the Ingestor.
package bibliographic

import (
	"context"
	"time"
)

// ArticleRecord is one article as returned by a bibliographic source,
// before it is persisted as a models.Article.
type ArticleRecord struct {
	PMID     string
	Title    string
	Abstract string
	Journal  string
	DOI      string
	PubDate  *time.Time
	Authors  []string
}

// DateRange optionally bounds a search by publication date.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Adapter searches an upstream bibliographic index. Implementations
// preserve the upstream's relevance ordering and fail with
// TransientRemoteError on network/5xx conditions (retryable by the
// caller) or PermanentRemoteError on malformed responses.
type Adapter interface {
	Search(ctx context.Context, queryExpression string, maxResults int, dateRange *DateRange) ([]ArticleRecord, error)
	HealthCheck(ctx context.Context) error
}
