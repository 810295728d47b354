// Package mcp exposes the Pipeline Coordinator's public operations over
// MCP stdio, the way the teacher exposes SearchService/PaperService
// through its MCP server.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"litscope/internal/models"
	"litscope/internal/pipeline"
)

// Server wraps the Coordinator and serves its operations as MCP tools.
type Server struct {
	server      *server.MCPServer
	coordinator *pipeline.Coordinator
	logger      *slog.Logger
}

// New creates an MCP server backed by coordinator.
func New(coordinator *pipeline.Coordinator, logger *slog.Logger) *Server {
	mcpServer := server.NewMCPServer(
		"litscope",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s := &Server{server: mcpServer, coordinator: coordinator, logger: logger}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	runSearch := mcp.NewTool("run_search",
		mcp.WithDescription("Run a new search: ingest matching articles for a research idea and schedule opportunity scoring"),
		mcp.WithString("idea_text", mcp.Required()),
		mcp.WithString("keywords", mcp.Required()),
		mcp.WithNumber("max_results"),
		mcp.WithString("date_from"),
		mcp.WithString("date_to"),
	)
	s.server.AddTool(runSearch, s.handleRunSearch)

	getScore := mcp.NewTool("get_score",
		mcp.WithDescription("Get the opportunity score for a completed search"),
		mcp.WithString("search_id", mcp.Required()),
	)
	s.server.AddTool(getScore, s.handleGetScore)

	listArticles := mcp.NewTool("list_articles",
		mcp.WithDescription("List ingested articles"),
		mcp.WithNumber("offset"),
		mcp.WithNumber("limit"),
	)
	s.server.AddTool(listArticles, s.handleListArticles)

	listSearches := mcp.NewTool("list_searches",
		mcp.WithDescription("List searches"),
		mcp.WithNumber("offset"),
		mcp.WithNumber("limit"),
	)
	s.server.AddTool(listSearches, s.handleListSearches)

	getArticle := mcp.NewTool("get_article",
		mcp.WithDescription("Get an article by PMID"),
		mcp.WithString("pmid", mcp.Required()),
	)
	s.server.AddTool(getArticle, s.handleGetArticle)

	s.logger.Info("registered MCP tools", slog.Int("count", 5))
}

func toolArgs(request mcp.CallToolRequest) (map[string]interface{}, bool) {
	argsMap, ok := request.Params.Arguments.(map[string]interface{})
	return argsMap, ok
}

func (s *Server) handleRunSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := toolArgs(request)
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	ideaText, _ := args["idea_text"].(string)
	keywords, _ := args["keywords"].(string)
	if ideaText == "" || keywords == "" {
		return mcp.NewToolResultError("idea_text and keywords are required"), nil
	}

	maxResults := 20
	if v, ok := args["max_results"].(float64); ok && v > 0 {
		maxResults = int(v)
	}

	var dateRange models.DateRange
	if from, ok := args["date_from"].(string); ok && from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			dateRange.From = &t
		}
	}
	if to, ok := args["date_to"].(string); ok && to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			dateRange.To = &t
		}
	}

	searchID, err := s.coordinator.RunSearch(ctx, ideaText, keywords, maxResults, dateRange)
	if err != nil {
		s.logger.Error("MCP run_search failed", slog.String("error", err.Error()))
		return mcp.NewToolResultError(fmt.Sprintf("run_search failed: %v", err)), nil
	}

	s.logger.Info("MCP run_search completed", slog.Any("search_id", searchID))
	payload, _ := json.Marshal(map[string]interface{}{"search_id": searchID})
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleGetScore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := toolArgs(request)
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	searchID, err := parseSearchID(args["search_id"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	score, err := s.coordinator.GetScore(ctx, searchID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get_score failed: %v", err)), nil
	}

	payload, _ := json.Marshal(score)
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleListArticles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := toolArgs(request)
	paging := pagingFromArgs(args)

	articles, err := s.coordinator.ListArticles(ctx, paging)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list_articles failed: %v", err)), nil
	}

	payload, _ := json.Marshal(articles)
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleListSearches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := toolArgs(request)
	paging := pagingFromArgs(args)

	searches, err := s.coordinator.ListSearches(ctx, paging)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list_searches failed: %v", err)), nil
	}

	payload, _ := json.Marshal(searches)
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleGetArticle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := toolArgs(request)
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	pmid, _ := args["pmid"].(string)
	if pmid == "" {
		return mcp.NewToolResultError("pmid is required"), nil
	}

	article, err := s.coordinator.GetArticle(ctx, pmid)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get_article failed: %v", err)), nil
	}

	payload, _ := json.Marshal(article)
	return mcp.NewToolResultText(string(payload)), nil
}

func parseSearchID(raw interface{}) (uint, error) {
	switch v := raw.(type) {
	case string:
		var id uint
		if _, err := fmt.Sscanf(v, "%d", &id); err != nil {
			return 0, fmt.Errorf("invalid search_id: %v", v)
		}
		return id, nil
	case float64:
		return uint(v), nil
	default:
		return 0, fmt.Errorf("search_id is required")
	}
}

func pagingFromArgs(args map[string]interface{}) models.Paging {
	paging := models.Paging{Offset: 0, Limit: 50}
	if v, ok := args["offset"].(float64); ok && v >= 0 {
		paging.Offset = int(v)
	}
	if v, ok := args["limit"].(float64); ok && v > 0 {
		paging.Limit = int(v)
	}
	return paging
}

// ServeStdio starts the MCP server over stdio, blocking until the
// transport closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting MCP server via stdio")
	return server.ServeStdio(s.server)
}
