// Package pubmed implements the Bibliographic Adapter (C2) against the
// NCBI E-utilities ESearch/EFetch API.
package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"litscope/internal/adapters/bibliographic"
	"litscope/internal/errors"
)

const (
	defaultESearchPath = "/esearch.fcgi"
	defaultEFetchPath  = "/efetch.fcgi"
	providerName       = "bibliographic_pubmed"
)

// Adapter implements bibliographic.Adapter against E-utilities.
type Adapter struct {
	baseURL    string
	rateLimit  int
	httpClient *http.Client
	retry      *errors.RetryExecutor
	breaker    *errors.CircuitBreaker
	logger     *slog.Logger
}

// Config is the subset of config.AdaptersConfig.Bibliographic this adapter
// needs to construct.
type Config struct {
	BaseURL   string
	RateLimit int
	Timeout   time.Duration
}

// New creates a pubmed.Adapter. breakers supplies (or creates) the named
// circuit breaker this adapter trips on sustained E-utilities failures.
func New(cfg Config, logger *slog.Logger, breakers *errors.CircuitBreakerManager) *Adapter {
	classifier := errors.NewErrorClassifier()
	retryConfig := errors.WithExponentialBackoff(3, 100*time.Millisecond, 2*time.Second)

	return &Adapter{
		baseURL:    cfg.BaseURL,
		rateLimit:  cfg.RateLimit,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      errors.NewRetryExecutor(retryConfig, classifier, logger),
		breaker:    breakers.GetOrCreate(providerName, errors.DefaultAdapterCircuitBreakerConfig()),
		logger:     logger,
	}
}

// Search implements bibliographic.Adapter.
func (a *Adapter) Search(ctx context.Context, queryExpression string, maxResults int, dateRange *bibliographic.DateRange) ([]bibliographic.ArticleRecord, error) {
	pmids, err := a.eSearchWithRetry(ctx, queryExpression, maxResults, dateRange)
	if err != nil {
		return nil, err
	}
	if len(pmids) == 0 {
		return nil, nil
	}
	return a.eFetchWithRetry(ctx, pmids)
}

func (a *Adapter) eSearchWithRetry(ctx context.Context, queryExpression string, maxResults int, dateRange *bibliographic.DateRange) ([]string, error) {
	var pmids []string
	err := a.breaker.Execute(func() error {
		return a.retry.Execute(ctx, "pubmed_esearch", func() error {
			result, err := a.eSearch(ctx, queryExpression, maxResults, dateRange)
			if err != nil {
				return err
			}
			pmids = result
			return nil
		})
	})
	return pmids, err
}

func (a *Adapter) eFetchWithRetry(ctx context.Context, pmids []string) ([]bibliographic.ArticleRecord, error) {
	var records []bibliographic.ArticleRecord
	err := a.breaker.Execute(func() error {
		return a.retry.Execute(ctx, "pubmed_efetch", func() error {
			result, err := a.eFetch(ctx, pmids)
			if err != nil {
				return err
			}
			records = result
			return nil
		})
	})
	return records, err
}

// HealthCheck issues a minimal ESearch call to confirm reachability.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	_, err := a.eSearch(ctx, "cancer", 1, nil)
	if err != nil {
		return errors.NewHealthCheckError("pubmed health check failed: "+err.Error(), providerName)
	}
	return nil
}

func (a *Adapter) eSearch(ctx context.Context, queryExpression string, maxResults int, dateRange *bibliographic.DateRange) ([]string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", a.withDateFilter(queryExpression, dateRange))
	params.Set("retmax", strconv.Itoa(maxResults))
	params.Set("sort", "relevance")

	body, err := a.get(ctx, defaultESearchPath, params)
	if err != nil {
		return nil, err
	}

	var result eSearchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, errors.NewAdapterDecodeError(providerName, "malformed esearch response", err)
	}

	return result.IDList, nil
}

func (a *Adapter) eFetch(ctx context.Context, pmids []string) ([]bibliographic.ArticleRecord, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("rettype", "abstract")

	body, err := a.get(ctx, defaultEFetchPath, params)
	if err != nil {
		return nil, err
	}

	var result eFetchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, errors.NewAdapterDecodeError(providerName, "malformed efetch response", err)
	}

	records := make([]bibliographic.ArticleRecord, 0, len(result.Articles))
	for _, pa := range result.Articles {
		records = append(records, convertArticle(pa))
	}
	return records, nil
}

func (a *Adapter) withDateFilter(queryExpression string, dateRange *bibliographic.DateRange) string {
	if dateRange == nil || (dateRange.From == nil && dateRange.To == nil) {
		return queryExpression
	}

	from := "1800/01/01"
	to := time.Now().Format("2006/01/02")
	if dateRange.From != nil {
		from = dateRange.From.Format("2006/01/02")
	}
	if dateRange.To != nil {
		to = dateRange.To.Format("2006/01/02")
	}

	return fmt.Sprintf("%s AND (%s:%s[pdat])", queryExpression, from, to)
}

func (a *Adapter) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := a.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "litscope-pipeline/1.0")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewAdapterError(providerName, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, errors.NewAdapterError(providerName, fmt.Sprintf("upstream returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewValidationError("unexpected pubmed response status", "status", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return data, nil
}

func convertArticle(pa pubmedArticle) bibliographic.ArticleRecord {
	art := pa.MedlineCitation.Article

	abstract := strings.Join(art.Abstract.Text, " ")

	authors := make([]string, 0, len(art.AuthorList))
	for _, au := range art.AuthorList {
		name := strings.TrimSpace(au.ForeName + " " + au.LastName)
		if name != "" {
			authors = append(authors, name)
		}
	}

	var doi string
	for _, e := range art.ELocationIDs {
		if e.EIdType == "doi" {
			doi = e.Value
		}
	}

	return bibliographic.ArticleRecord{
		PMID:     pa.MedlineCitation.PMID,
		Title:    art.ArticleTitle,
		Abstract: abstract,
		Journal:  art.Journal.Title,
		DOI:      doi,
		PubDate:  parsePubDate(art.Journal.PubDate, art.ArticleDate),
		Authors:  authors,
	}
}

func parsePubDate(jd pubDate, ad *articleDate) *time.Time {
	year, month, day := jd.Year, jd.Month, jd.Day
	if year == "" && ad != nil {
		year, month, day = ad.Year, ad.Month, ad.Day
	}
	if year == "" {
		return nil
	}

	if month == "" {
		month = "Jan"
	}
	if day == "" {
		day = "01"
	}

	for _, layout := range []string{"2006-Jan-2", "2006-January-2", "2006-1-2"} {
		if t, err := time.Parse(layout, fmt.Sprintf("%s-%s-%s", year, month, day)); err == nil {
			return &t
		}
	}
	return nil
}
