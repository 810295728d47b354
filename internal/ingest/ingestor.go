// Package ingest implements the Ingestor (C6): realizing a Search plus all
// derived article rows from a keyword list.
package ingest

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"litscope/internal/adapters/bibliographic"
	"litscope/internal/adapters/citation"
	"litscope/internal/adapters/embedder"
	"litscope/internal/adapters/vocabulary"
	"litscope/internal/errors"
	"litscope/internal/models"
	"litscope/internal/repository"
)

// Request is the raw input to Run, before keyword normalization.
type Request struct {
	IdeaText   string
	Keywords   string
	MaxResults int
	DateRange  models.DateRange
}

// Result is what Run returns to the Pipeline Coordinator.
type Result struct {
	SearchID         uint
	ArticlesIngested int
}

// Ingestor turns a keyword list into a Search and its derived article
// rows, per spec.md §4.6.
type Ingestor struct {
	store        repository.Store
	bibliography bibliographic.Adapter
	citations    citation.Adapter
	vocab        vocabulary.Adapter
	embedder     embedder.Embedder
	concurrency  int
	logger       *slog.Logger
}

// New creates an Ingestor. concurrency bounds the per-article enrichment
// worker pool (default 8 per spec.md §5).
func New(store repository.Store, bib bibliographic.Adapter, cit citation.Adapter, vocab vocabulary.Adapter, emb embedder.Embedder, concurrency int, logger *slog.Logger) *Ingestor {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Ingestor{
		store:        store,
		bibliography: bib,
		citations:    cit,
		vocab:        vocab,
		embedder:     emb,
		concurrency:  concurrency,
		logger:       logger,
	}
}

// Run executes the full ingest algorithm of spec.md §4.6: normalize,
// expand, compose, create the Search row, fetch articles, then enrich
// each one with bounded concurrency.
func (i *Ingestor) Run(ctx context.Context, req Request) (Result, error) {
	keywords, err := normalizeKeywords(req.Keywords)
	if err != nil {
		return Result{}, err
	}

	expanded, err := i.vocab.Expand(ctx, keywords)
	if err != nil {
		// The Vocabulary Adapter degrades to input-unchanged on failure;
		// a hard error here means it did not honor its own contract.
		i.logger.Warn("vocabulary expansion returned an error, using raw keywords", slog.String("error", err.Error()))
		expanded = keywords
	}

	queryExpression := composeQuery(keywords, expanded)

	searchID, err := i.store.Searches().CreateSearch(ctx, req.IdeaText, req.Keywords, req.MaxResults, req.DateRange)
	if err != nil {
		return Result{}, err
	}

	if err := i.store.Searches().UpdateSearchStatus(ctx, searchID, models.SearchStatusIngesting); err != nil {
		return Result{}, err
	}

	var dateRange *bibliographic.DateRange
	if req.DateRange.From != nil || req.DateRange.To != nil {
		dateRange = &bibliographic.DateRange{From: req.DateRange.From, To: req.DateRange.To}
	}

	records, err := i.bibliography.Search(ctx, queryExpression, req.MaxResults, dateRange)
	if err != nil {
		_ = i.store.Searches().UpdateSearchStatus(ctx, searchID, models.SearchStatusScoringFailed)
		return Result{}, err
	}
	if len(records) > req.MaxResults {
		records = records[:req.MaxResults]
	}

	ingested := i.enrichAll(ctx, searchID, records)

	if err := i.store.Searches().UpdateSearchStatus(ctx, searchID, models.SearchStatusIngested); err != nil {
		return Result{}, err
	}

	return Result{SearchID: searchID, ArticlesIngested: ingested}, nil
}

// enrichAll runs the per-article enrichment pipeline with bounded
// concurrency. Failures in authors/citations/vector enrichment are
// logged and isolated per spec.md §4.6 step 6; a failed article upsert
// skips the rest of that article's enrichment.
func (i *Ingestor) enrichAll(ctx context.Context, searchID uint, records []bibliographic.ArticleRecord) int {
	sem := make(chan struct{}, i.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	ingested := 0

	for _, record := range records {
		record := record
		wg.Add(1)
		sem <- struct{}{}

		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if i.enrichOne(ctx, searchID, record) {
				mu.Lock()
				ingested++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return ingested
}

// enrichOne performs Article -> Authors -> Citations -> Vector ->
// Search-link in order, per spec.md §5's ordering guarantee.
func (i *Ingestor) enrichOne(ctx context.Context, searchID uint, record bibliographic.ArticleRecord) bool {
	article := &models.Article{
		PMID:    record.PMID,
		Title:   record.Title,
		PubDate: record.PubDate,
	}
	if record.Abstract != "" {
		article.Abstract = &record.Abstract
	}
	if record.Journal != "" {
		article.Journal = &record.Journal
	}
	if record.DOI != "" {
		article.DOI = &record.DOI
	}

	articleID, _, err := i.store.Articles().UpsertArticle(ctx, article)
	if err != nil {
		i.logger.Error("article upsert failed, skipping enrichment", slog.String("pmid", record.PMID), slog.String("error", err.Error()))
		return false
	}

	if err := i.store.Articles().AttachAuthors(ctx, articleID, record.Authors); err != nil {
		i.logger.Warn("author attachment failed", slog.String("article_id", articleID), slog.String("error", err.Error()))
	}

	i.enrichCitations(ctx, articleID, record)

	if err := i.upsertVector(ctx, articleID, record); err != nil {
		i.logger.Warn("vector computation failed", slog.String("article_id", articleID), slog.String("error", err.Error()))
	}

	if err := i.store.Searches().LinkSearchArticles(ctx, searchID, []string{articleID}); err != nil {
		i.logger.Warn("search-article link failed", slog.String("article_id", articleID), slog.String("error", err.Error()))
	}

	return true
}

func (i *Ingestor) enrichCitations(ctx context.Context, articleID string, record bibliographic.ArticleRecord) {
	key := record.DOI
	if key == "" {
		key = record.PMID
	}

	source, count, observedOn, err := i.citations.CurrentCount(ctx, key)
	if err != nil {
		i.logger.Warn("citation snapshot lookup failed", slog.String("article_id", articleID), slog.String("error", err.Error()))
	} else if err := i.store.Articles().RecordCitationSnapshot(ctx, articleID, source, count, observedOn); err != nil {
		i.logger.Warn("citation snapshot persist failed", slog.String("article_id", articleID), slog.String("error", err.Error()))
	}

	yearly, err := i.citations.YearlyCounts(ctx, key)
	if err != nil {
		i.logger.Warn("yearly citation lookup failed", slog.String("article_id", articleID), slog.String("error", err.Error()))
		return
	}

	series := make([]models.YearCount, 0, len(yearly))
	for _, yc := range yearly {
		series = append(series, models.YearCount{Year: yc.Year, Count: yc.Count})
	}
	if err := i.store.Articles().RecordYearlyCitations(ctx, articleID, series); err != nil {
		i.logger.Warn("yearly citation persist failed", slog.String("article_id", articleID), slog.String("error", err.Error()))
	}
}

func (i *Ingestor) upsertVector(ctx context.Context, articleID string, record bibliographic.ArticleRecord) error {
	text := record.Title + "\n" + record.Abstract
	vector, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}
	return i.store.Articles().UpsertVector(ctx, articleID, vector, nil)
}

// normalizeKeywords splits on ';', trims, drops empties, deduplicates
// case-insensitively while preserving first-seen casing, per spec.md
// §4.6 step 1.
func normalizeKeywords(raw string) ([]string, error) {
	parts := strings.Split(raw, ";")
	seen := make(map[string]struct{}, len(parts))
	keywords := make([]string, 0, len(parts))

	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keywords = append(keywords, trimmed)
	}

	if len(keywords) == 0 {
		return nil, errors.NewEmptyQueryError()
	}

	return keywords, nil
}

// composeQuery builds a boolean AND-of-OR expression: each original term
// OR'd with every expanded term that is not itself an original term, all
// groups AND'd together. Expansions are not attributed to the term they came
// from, so every group carries the same expansions. The expression is
// opaque to the Store, per spec.md §4.6 step 3.
func composeQuery(original, expanded []string) string {
	originalSet := make(map[string]struct{}, len(original))
	for _, term := range original {
		originalSet[strings.ToLower(term)] = struct{}{}
	}

	groups := make([]string, 0, len(original))
	for _, term := range original {
		group := []string{term}
		for _, candidate := range expanded {
			if strings.EqualFold(candidate, term) {
				continue
			}
			if _, isOriginal := originalSet[strings.ToLower(candidate)]; isOriginal {
				continue
			}
			group = append(group, candidate)
		}
		groups = append(groups, "("+strings.Join(group, " OR ")+")")
	}

	return strings.Join(groups, " AND ")
}
