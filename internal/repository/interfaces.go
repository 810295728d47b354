package repository

import (
	"context"
	"time"

	"litscope/internal/models"
)

// ArticleRepository is the durable, transactional persistence contract for
// articles, their authors, citation snapshots and vectors (Store, C1).
type ArticleRepository interface {
	// UpsertArticle keys by PMID. Non-empty incoming fields overwrite
	// existing ones; empty incoming fields never clear an existing field.
	// Returns the article's ID and whether the row was newly created.
	UpsertArticle(ctx context.Context, article *models.Article) (id string, wasCreated bool, err error)

	// AttachAuthors ensures Author rows exist for the normalized names and
	// links them to the article. Idempotent.
	AttachAuthors(ctx context.Context, articleID string, normalizedNames []string) error

	// RecordCitationSnapshot replaces the prior snapshot for the same
	// (article, source) pair.
	RecordCitationSnapshot(ctx context.Context, articleID string, source models.CitationSource, count int, observedOn time.Time) error

	// RecordYearlyCitations replaces the prior yearly series for the
	// article atomically.
	RecordYearlyCitations(ctx context.Context, articleID string, series []models.YearCount) error

	// UpsertVector is idempotent on article ID.
	UpsertVector(ctx context.Context, articleID string, vector []float32, clusterLabel *int) error

	GetArticle(ctx context.Context, pmid string) (*models.Article, error)
	ListArticles(ctx context.Context, paging models.Paging) ([]models.Article, error)
	YearlyCitations(ctx context.Context, articleID string) ([]models.YearCount, error)

	// AllVectors returns every current article vector, the population the
	// Cluster Manager clusters from scratch on each pass.
	AllVectors(ctx context.Context) ([]models.ArticleVector, error)
	VectorsOfSearch(ctx context.Context, searchID uint) ([]models.ArticleVector, error)
}

// SearchRepository is the durable persistence contract for searches, their
// article links, and opportunity scores (Store, C1).
type SearchRepository interface {
	CreateSearch(ctx context.Context, ideaText, keywordText string, maxResults int, dateRange models.DateRange) (searchID uint, err error)
	UpdateSearchStatus(ctx context.Context, searchID uint, status models.SearchStatus) error
	GetSearch(ctx context.Context, searchID uint) (*models.Search, error)
	ListSearches(ctx context.Context, paging models.Paging) ([]models.Search, error)

	// LinkSearchArticles is idempotent; duplicates are ignored.
	LinkSearchArticles(ctx context.Context, searchID uint, articleIDs []string) error
	ArticlesOfSearch(ctx context.Context, searchID uint) ([]models.Article, error)

	// PutScore overwrites any prior normalized score for the search and
	// appends the pre-normalization raw triple to score history in the
	// same transaction. raw and normalized are distinct: history must
	// always hold raw values so later searches' empirical-CDF
	// normalization is computed against the true historical distribution.
	PutScore(ctx context.Context, searchID uint, raw models.RawScoreTriple, novelty, velocity, recency, overall float64) error
	GetScore(ctx context.Context, searchID uint) (*models.OpportunityScore, error)

	// RawScoreHistory returns every historical raw score triple, read by
	// the Scorer to percentile-rank a new search.
	RawScoreHistory(ctx context.Context) ([]models.RawScoreTriple, error)
}

// ClusterRepository is the durable persistence contract for clusters (Store,
// C1), replaced wholesale on each Cluster Manager pass.
type ClusterRepository interface {
	// ReplaceClusters atomically deletes every existing cluster row and
	// inserts the given set, the transactional shape the Cluster Manager
	// needs since clustering is always recomputed from scratch.
	ReplaceClusters(ctx context.Context, clusters []models.Cluster) error
	ListClusters(ctx context.Context) ([]models.Cluster, error)
}

// Transaction exposes the same repository surface scoped to one database
// transaction, committed or rolled back by the caller.
type Transaction interface {
	Commit() error
	Rollback() error

	Articles() ArticleRepository
	Searches() SearchRepository
	Clusters() ClusterRepository
}

// Store aggregates every repository and owns the transaction boundary used
// by the Ingestor, Cluster Manager and Scorer. RecordYearlyCitations, PutScore
// and ReplaceClusters each run in their own transaction, and callers can group
// further work with Transaction. The other mutating operations are not
// wrapped: AttachAuthors creates missing Author rows before linking them, so a
// failure part-way can leave new Author rows that are not linked.
type Store interface {
	Articles() ArticleRepository
	Searches() SearchRepository
	Clusters() ClusterRepository

	Transaction(ctx context.Context, fn func(Transaction) error) error

	Ping(ctx context.Context) error
	Close() error
}
