package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litscope/internal/adapters/embedder"
	"litscope/internal/config"
	"litscope/internal/models"
	"litscope/internal/pipeline"
	"litscope/internal/repository"
	"litscope/internal/scoring"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	var cfg config.Config
	cfg.Database.Type = "sqlite"
	cfg.Database.SQLite.Path = ":memory:"
	cfg.Database.SQLite.AutoMigrate = true

	store, err := repository.NewStore(&cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	coordinator := pipeline.New(store, pipeline.Adapters{
		Embedder: embedder.NewStub(8),
	}, pipeline.Config{
		IngestConcurrency: 2,
		RecencyTauYears:   5,
		ScoreWeights:      scoring.DefaultWeights(),
		ClusterMinSize:    1,
		ClusterRandomSeed: 7,
		MaxResultsCap:     50,
	}, nil, discardLogger())

	return New(coordinator, discardLogger())
}

func requestWithArgs(args map[string]interface{}) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func TestNew_BuildsMCPServer(t *testing.T) {
	s := newTestServer(t)
	assert.NotNil(t, s.server)
}

func TestHandleRunSearch_MissingRequiredArgsErrors(t *testing.T) {
	s := newTestServer(t)
	result, err := s.handleRunSearch(context.Background(), requestWithArgs(map[string]interface{}{
		"idea_text": "",
		"keywords":  "",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleRunSearch_InvalidArgumentsFormat(t *testing.T) {
	s := newTestServer(t)
	request := mcp.CallToolRequest{}
	result, err := s.handleRunSearch(context.Background(), request)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGetArticle_RequiresPMID(t *testing.T) {
	s := newTestServer(t)
	result, err := s.handleGetArticle(context.Background(), requestWithArgs(map[string]interface{}{"pmid": ""}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGetArticle_NotFoundSurfacesAsToolError(t *testing.T) {
	s := newTestServer(t)
	result, err := s.handleGetArticle(context.Background(), requestWithArgs(map[string]interface{}{"pmid": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGetScore_RequiresSearchID(t *testing.T) {
	s := newTestServer(t)
	result, err := s.handleGetScore(context.Background(), requestWithArgs(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleListArticles_EmptyStoreReturnsEmptyList(t *testing.T) {
	s := newTestServer(t)
	result, err := s.handleListArticles(context.Background(), requestWithArgs(map[string]interface{}{
		"offset": float64(0),
		"limit":  float64(10),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := result.Content[0].(mcp.TextContent).Text
	var articles []models.Article
	require.NoError(t, json.Unmarshal([]byte(text), &articles))
	assert.Empty(t, articles)
}

func TestHandleListSearches_EmptyStoreReturnsEmptyList(t *testing.T) {
	s := newTestServer(t)
	result, err := s.handleListSearches(context.Background(), requestWithArgs(map[string]interface{}{}))
	require.NoError(t, err)
	require.False(t, result.IsError)
}

func TestParseSearchID_AcceptsStringAndFloat(t *testing.T) {
	id, err := parseSearchID("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	id, err = parseSearchID(float64(7))
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	_, err = parseSearchID(nil)
	assert.Error(t, err)
}

func TestPagingFromArgs_DefaultsAndOverrides(t *testing.T) {
	paging := pagingFromArgs(nil)
	assert.Equal(t, 0, paging.Offset)
	assert.Equal(t, 50, paging.Limit)

	paging = pagingFromArgs(map[string]interface{}{"offset": float64(10), "limit": float64(5)})
	assert.Equal(t, 10, paging.Offset)
	assert.Equal(t, 5, paging.Limit)
}
