package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litscope/internal/adapters/bibliographic"
	"litscope/internal/adapters/citation"
	"litscope/internal/adapters/embedder"
	"litscope/internal/config"
	"litscope/internal/models"
	"litscope/internal/pipeline"
	"litscope/internal/repository"
	"litscope/internal/scoring"
)

type stubBibliographic struct {
	records []bibliographic.ArticleRecord
}

func (s *stubBibliographic) Search(ctx context.Context, queryExpression string, maxResults int, dateRange *bibliographic.DateRange) ([]bibliographic.ArticleRecord, error) {
	return s.records, nil
}

func (s *stubBibliographic) HealthCheck(ctx context.Context) error { return nil }

type stubCitation struct{}

func (stubCitation) CurrentCount(ctx context.Context, doiOrPMID string) (models.CitationSource, int, time.Time, error) {
	return models.CitationSourceCrossRef, 3, time.Now().UTC(), nil
}

func (stubCitation) YearlyCounts(ctx context.Context, doiOrPMID string) ([]citation.YearCount, error) {
	return []citation.YearCount{{Year: 2022, Count: 1}, {Year: 2023, Count: 3}}, nil
}

type stubVocabulary struct{}

func (stubVocabulary) Expand(ctx context.Context, keywords []string) ([]string, error) {
	return keywords, nil
}

type recordingNotifier struct {
	mu               chan struct{}
	ingestCompleted  bool
	scoringCompleted bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{mu: make(chan struct{}, 1)}
}

func (n *recordingNotifier) IngestStarted(ctx context.Context, searchID uint) {}

func (n *recordingNotifier) IngestCompleted(ctx context.Context, searchID uint, articlesIngested int) {
	n.ingestCompleted = true
}

func (n *recordingNotifier) ScoringCompleted(ctx context.Context, searchID uint, score models.OpportunityScore) {
	n.scoringCompleted = true
	select {
	case n.mu <- struct{}{}:
	default:
	}
}

func newTestCoordinator(t *testing.T, records []bibliographic.ArticleRecord, notifier *recordingNotifier) *pipeline.Coordinator {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Type = "sqlite"
	cfg.Database.SQLite.Path = ":memory:"
	cfg.Database.SQLite.AutoMigrate = true

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := repository.NewStore(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	adapters := pipeline.Adapters{
		Bibliographic: &stubBibliographic{records: records},
		Citation:      stubCitation{},
		Vocabulary:    stubVocabulary{},
		Embedder:      embedder.NewStub(8),
	}

	pipelineCfg := pipeline.Config{
		IngestConcurrency: 4,
		RecencyTauYears:   5,
		ScoreWeights:      scoring.DefaultWeights(),
		ClusterMinSize:    1,
		ClusterRandomSeed: 42,
		MaxResultsCap:     50,
	}

	return pipeline.New(store, adapters, pipelineCfg, notifier, logger)
}

func TestCoordinator_RunSearch_IngestsAndSchedulesScoring(t *testing.T) {
	notifier := newRecordingNotifier()
	records := []bibliographic.ArticleRecord{
		{PMID: "1", Title: "Paper one", Abstract: "about something"},
		{PMID: "2", Title: "Paper two", Abstract: "about something else"},
	}
	coordinator := newTestCoordinator(t, records, notifier)

	searchID, err := coordinator.RunSearch(context.Background(), "idea", "kw1; kw2", 10, models.DateRange{})
	require.NoError(t, err)
	assert.NotZero(t, searchID)
	assert.True(t, notifier.ingestCompleted)

	select {
	case <-notifier.mu:
	case <-time.After(2 * time.Second):
		t.Fatal("scoring did not complete in time")
	}

	score, err := coordinator.GetScore(context.Background(), searchID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score.OverallScore, 0.0)
	assert.LessOrEqual(t, score.OverallScore, 1.0)

	require.NoError(t, coordinator.Shutdown(context.Background()))
}

func TestCoordinator_GetScore_NotReadyBeforeScoring(t *testing.T) {
	notifier := newRecordingNotifier()
	coordinator := newTestCoordinator(t, nil, notifier)

	_, err := coordinator.GetScore(context.Background(), 9999)
	assert.Error(t, err)
}

func TestCoordinator_ListArticlesAndSearches(t *testing.T) {
	notifier := newRecordingNotifier()
	records := []bibliographic.ArticleRecord{{PMID: "42", Title: "Listed paper"}}
	coordinator := newTestCoordinator(t, records, notifier)

	searchID, err := coordinator.RunSearch(context.Background(), "idea", "kw", 10, models.DateRange{})
	require.NoError(t, err)

	select {
	case <-notifier.mu:
	case <-time.After(2 * time.Second):
		t.Fatal("scoring did not complete in time")
	}

	articles, err := coordinator.ListArticles(context.Background(), models.Paging{Offset: 0, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, articles, 1)

	searches, err := coordinator.ListSearches(context.Background(), models.Paging{Offset: 0, Limit: 10})
	require.NoError(t, err)
	require.Len(t, searches, 1)
	assert.Equal(t, searchID, searches[0].ID)

	article, err := coordinator.GetArticle(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Listed paper", article.Title)
}

func TestCoordinator_Health(t *testing.T) {
	notifier := newRecordingNotifier()
	coordinator := newTestCoordinator(t, nil, notifier)
	assert.NoError(t, coordinator.Health(context.Background()))
}
