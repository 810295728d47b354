package repository_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litscope/internal/config"
	"litscope/internal/models"
	"litscope/internal/repository"
)

func newTestStore(t *testing.T) repository.Store {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Type = "sqlite"
	cfg.Database.SQLite.Path = ":memory:"
	cfg.Database.SQLite.AutoMigrate = true

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := repository.NewStore(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_PingAndClose(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestStore_ArticleUpsertAndFetch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	article := &models.Article{
		PMID:  "12345",
		Title: "A study of something",
	}

	id, created, err := store.Articles().UpsertArticle(ctx, article)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.True(t, created)

	fetched, err := store.Articles().GetArticle(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, "A study of something", fetched.Title)
}

func TestStore_ArticleUpsert_MergesOnConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, created, err := store.Articles().UpsertArticle(ctx, &models.Article{PMID: "777", Title: "Original Title"})
	require.NoError(t, err)
	require.True(t, created)

	abstract := "a new abstract"
	_, created, err = store.Articles().UpsertArticle(ctx, &models.Article{PMID: "777", Abstract: &abstract})
	require.NoError(t, err)
	assert.False(t, created)

	fetched, err := store.Articles().GetArticle(ctx, "777")
	require.NoError(t, err)
	assert.Equal(t, "Original Title", fetched.Title)
	require.NotNil(t, fetched.Abstract)
	assert.Equal(t, "a new abstract", *fetched.Abstract)
}

func TestStore_VectorUpsertAndAllVectors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, _, err := store.Articles().UpsertArticle(ctx, &models.Article{PMID: "999", Title: "Vector bearing article"})
	require.NoError(t, err)

	vec := []float32{0.1, 0.2, 0.3}
	require.NoError(t, store.Articles().UpsertVector(ctx, id, vec, nil))

	vectors, err := store.Articles().AllVectors(ctx)
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, id, vectors[0].ArticleID)
	assert.Equal(t, vec, vectors[0].Vector)
}

func TestStore_Transaction_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	txErr := assertError("boom")
	err := store.Transaction(ctx, func(tx repository.Transaction) error {
		if _, _, err := tx.Articles().UpsertArticle(ctx, &models.Article{PMID: "rollback-me", Title: "Should not persist"}); err != nil {
			return err
		}
		return txErr
	})
	assert.ErrorIs(t, err, txErr)

	_, err = store.Articles().GetArticle(ctx, "rollback-me")
	assert.Error(t, err)
}

func TestStore_ClusterReplace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	clusters := []models.Cluster{
		{Label: 0, Centroid: []float32{1, 2}, Size: 3, Velocity: 1.5, LastUpdated: time.Now().UTC()},
	}
	require.NoError(t, store.Clusters().ReplaceClusters(ctx, clusters))
	require.NoError(t, store.Clusters().ReplaceClusters(ctx, nil))
}

func TestStore_SearchCreateAndLinkArticles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	searchID, err := store.Searches().CreateSearch(ctx, "idea", "kw1 kw2", 50, models.DateRange{})
	require.NoError(t, err)
	assert.NotZero(t, searchID)

	articleID, _, err := store.Articles().UpsertArticle(ctx, &models.Article{PMID: "555", Title: "Linked article"})
	require.NoError(t, err)

	require.NoError(t, store.Searches().LinkSearchArticles(ctx, searchID, []string{articleID}))

	articles, err := store.Searches().ArticlesOfSearch(ctx, searchID)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, articleID, articles[0].ID)
}

func TestStore_PutScoreAndHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	searchID, err := store.Searches().CreateSearch(ctx, "idea", "kw", 10, models.DateRange{})
	require.NoError(t, err)

	raw := models.RawScoreTriple{NoveltyRaw: 0.9, CitationRaw: 12.0, RecencyRaw: 0.8}
	require.NoError(t, store.Searches().PutScore(ctx, searchID, raw, 0.5, 0.4, 0.3, 0.45))

	score, err := store.Searches().GetScore(ctx, searchID)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, score.OverallScore, 1e-9)

	history, err := store.Searches().RawScoreHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.InDelta(t, 0.9, history[0].NoveltyRaw, 1e-9)
	assert.InDelta(t, 12.0, history[0].CitationRaw, 1e-9)
	assert.InDelta(t, 0.8, history[0].RecencyRaw, 1e-9)
}

type assertError string

func (e assertError) Error() string { return string(e) }
