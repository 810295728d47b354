// Package pipeline implements the Pipeline Coordinator (C10): the
// public entry point in front of the Ingestor, Cluster Manager, Scorer
// and Store, the way the teacher's SearchService sits in front of
// ProviderManager and messaging.Client.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"litscope/internal/adapters/bibliographic"
	"litscope/internal/adapters/citation"
	"litscope/internal/adapters/embedder"
	"litscope/internal/adapters/vocabulary"
	"litscope/internal/cluster"
	"litscope/internal/errors"
	"litscope/internal/ingest"
	"litscope/internal/models"
	"litscope/internal/repository"
	"litscope/internal/scoring"
)

// Notifier publishes pipeline lifecycle events (ingest started/completed,
// scoring completed). A nil Notifier is a valid no-op.
type Notifier interface {
	IngestStarted(ctx context.Context, searchID uint)
	IngestCompleted(ctx context.Context, searchID uint, articlesIngested int)
	ScoringCompleted(ctx context.Context, searchID uint, score models.OpportunityScore)
}

// Coordinator is the pipeline's public surface: run_search, get_score,
// and thin pass-throughs to the Store.
type Coordinator struct {
	store    repository.Store
	ingestor *ingest.Ingestor
	clusters *cluster.Manager
	scorer   *scoring.Scorer
	notifier Notifier
	logger   *slog.Logger

	scoringLocksMu sync.Mutex
	scoringLocks   map[uint]*sync.Mutex

	backgroundWG sync.WaitGroup
}

// Adapters bundles the four external adapters the Coordinator wires into
// its Ingestor.
type Adapters struct {
	Bibliographic bibliographic.Adapter
	Citation      citation.Adapter
	Vocabulary    vocabulary.Adapter
	Embedder      embedder.Embedder
}

// Config holds the pipeline-wide tunables from spec.md §6.
type Config struct {
	IngestConcurrency int
	RecencyTauYears   float64
	ScoreWeights      scoring.Weights
	ClusterMinSize    int
	ClusterRandomSeed int64
	MaxResultsCap     int
}

// New wires a Coordinator from its Store, adapters, and configuration.
func New(store repository.Store, ad Adapters, cfg Config, notifier Notifier, logger *slog.Logger) *Coordinator {
	ingestor := ingest.New(store, ad.Bibliographic, ad.Citation, ad.Vocabulary, ad.Embedder, cfg.IngestConcurrency, logger)

	clusterManager := cluster.New(store, cluster.Config{
		MinSize:    cfg.ClusterMinSize,
		RandomSeed: cfg.ClusterRandomSeed,
	}, logger)

	weights := cfg.ScoreWeights
	if weights == (scoring.Weights{}) {
		weights = scoring.DefaultWeights()
	}
	scorer := scoring.New(store, weights, cfg.RecencyTauYears)

	if notifier == nil {
		notifier = noopNotifier{}
	}

	return &Coordinator{
		store:        store,
		ingestor:     ingestor,
		clusters:     clusterManager,
		scorer:       scorer,
		notifier:     notifier,
		logger:       logger,
		scoringLocks: make(map[uint]*sync.Mutex),
	}
}

// RunSearch performs ingestion synchronously and returns once the Search
// row and its articles are persisted. Scoring (cluster -> trajectory ->
// score) is scheduled onto a background task; RunSearch does not wait
// for it, per spec.md §4.10.
func (c *Coordinator) RunSearch(ctx context.Context, ideaText, keywords string, maxResults int, dateRange models.DateRange) (uint, error) {
	if maxResults <= 0 {
		maxResults = 20
	}

	result, err := c.ingestor.Run(ctx, ingest.Request{
		IdeaText:   ideaText,
		Keywords:   keywords,
		MaxResults: maxResults,
		DateRange:  dateRange,
	})
	if err != nil {
		return 0, err
	}

	c.notifier.IngestCompleted(ctx, result.SearchID, result.ArticlesIngested)

	c.backgroundWG.Add(1)
	go func() {
		defer c.backgroundWG.Done()
		// Detached from the request context: scoring must finish even if
		// the caller's context is cancelled once RunSearch has returned.
		c.runScoring(context.Background(), result.SearchID)
	}()

	return result.SearchID, nil
}

// runScoring enforces "at most one scoring task per Search" via a keyed
// lock, and the happens-before edge between ingest-completed and
// scoring-start by only ever being invoked after RunSearch's synchronous
// ingest has returned.
func (c *Coordinator) runScoring(ctx context.Context, searchID uint) {
	lock := c.scoringLockFor(searchID)
	lock.Lock()
	defer lock.Unlock()

	if err := c.store.Searches().UpdateSearchStatus(ctx, searchID, models.SearchStatusScoring); err != nil {
		c.logger.Error("failed to mark search as scoring", slog.Any("search_id", searchID), slog.String("error", err.Error()))
		return
	}

	if err := c.clusters.Run(ctx); err != nil {
		c.logger.Error("clustering pass failed", slog.String("error", err.Error()))
		_ = c.store.Searches().UpdateSearchStatus(ctx, searchID, models.SearchStatusScoringFailed)
		return
	}

	normalized, err := c.scorer.Score(ctx, searchID)
	if err != nil {
		c.logger.Error("scoring failed", slog.Any("search_id", searchID), slog.String("error", err.Error()))
		_ = c.store.Searches().UpdateSearchStatus(ctx, searchID, models.SearchStatusScoringFailed)
		return
	}

	if err := c.store.Searches().UpdateSearchStatus(ctx, searchID, models.SearchStatusScored); err != nil {
		c.logger.Error("failed to mark search as scored", slog.Any("search_id", searchID), slog.String("error", err.Error()))
		return
	}

	score, err := c.store.Searches().GetScore(ctx, searchID)
	if err == nil {
		c.notifier.ScoringCompleted(ctx, searchID, *score)
	}

	c.logger.Info("scoring completed", slog.Any("search_id", searchID), slog.Float64("overall", normalized.Overall))
}

func (c *Coordinator) scoringLockFor(searchID uint) *sync.Mutex {
	c.scoringLocksMu.Lock()
	defer c.scoringLocksMu.Unlock()

	lock, ok := c.scoringLocks[searchID]
	if !ok {
		lock = &sync.Mutex{}
		c.scoringLocks[searchID] = lock
	}
	return lock
}

// GetScore returns the opportunity score for searchID, or a NotReady
// error if scoring has not completed.
func (c *Coordinator) GetScore(ctx context.Context, searchID uint) (*models.OpportunityScore, error) {
	score, err := c.store.Searches().GetScore(ctx, searchID)
	if err != nil {
		if pErr, ok := err.(*errors.PipelineError); ok && pErr.Code == "NOT_FOUND" {
			return nil, errors.NewScoringIncompleteError(fmt.Sprintf("%d", searchID), 1)
		}
		return nil, err
	}
	return score, nil
}

// ListArticles is a thin pass-through to the Store.
func (c *Coordinator) ListArticles(ctx context.Context, paging models.Paging) ([]models.Article, error) {
	return c.store.Articles().ListArticles(ctx, paging)
}

// ListSearches is a thin pass-through to the Store.
func (c *Coordinator) ListSearches(ctx context.Context, paging models.Paging) ([]models.Search, error) {
	return c.store.Searches().ListSearches(ctx, paging)
}

// GetArticle is a thin pass-through to the Store.
func (c *Coordinator) GetArticle(ctx context.Context, pmid string) (*models.Article, error) {
	return c.store.Articles().GetArticle(ctx, pmid)
}

// Health pings the Store, grounded on the teacher's SearchService.Health.
// The adapters' health and the messaging connection are not checked.
func (c *Coordinator) Health(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("store unhealthy: %w", err)
	}
	return nil
}

// Shutdown waits for any in-flight background scoring tasks to finish,
// bounded by ctx.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.backgroundWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type noopNotifier struct{}

func (noopNotifier) IngestStarted(ctx context.Context, searchID uint)                             {}
func (noopNotifier) IngestCompleted(ctx context.Context, searchID uint, articlesIngested int)     {}
func (noopNotifier) ScoringCompleted(ctx context.Context, searchID uint, score models.OpportunityScore) {}
