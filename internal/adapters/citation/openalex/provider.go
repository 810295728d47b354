// Package openalex implements a citation.Source against the OpenAlex
// works API (api.openalex.org), used as the fallback citation source.
package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"litscope/internal/adapters/citation"
	"litscope/internal/errors"
	"litscope/internal/models"
)

const providerName = "citation_openalex"

type workResponse struct {
	CitedByCount    int                  `json:"cited_by_count"`
	CountsByYear    []countsByYearEntry  `json:"counts_by_year"`
}

type countsByYearEntry struct {
	Year  int `json:"year"`
	Count int `json:"cited_by_count"`
}

// Source implements citation.Source against OpenAlex.
type Source struct {
	baseURL    string
	httpClient *http.Client
	retry      *errors.RetryExecutor
	breaker    *errors.CircuitBreaker
}

// New creates an openalex.Source. breakers supplies (or creates) the named
// circuit breaker this adapter trips on sustained lookup failures.
func New(baseURL string, timeout time.Duration, logger *slog.Logger, breakers *errors.CircuitBreakerManager) *Source {
	classifier := errors.NewErrorClassifier()
	retryConfig := errors.WithExponentialBackoff(3, 100*time.Millisecond, 2*time.Second)

	return &Source{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retry:      errors.NewRetryExecutor(retryConfig, classifier, logger),
		breaker:    breakers.GetOrCreate(providerName, errors.DefaultAdapterCircuitBreakerConfig()),
	}
}

// Name implements citation.Source.
func (s *Source) Name() models.CitationSource { return models.CitationSourceOpenAlex }

// CurrentCount implements citation.Source.
func (s *Source) CurrentCount(ctx context.Context, doiOrPMID string) (int, error) {
	work, err := s.fetchWork(ctx, doiOrPMID)
	if err != nil {
		return 0, err
	}
	return work.CitedByCount, nil
}

// YearlyCounts implements citation.Source.
func (s *Source) YearlyCounts(ctx context.Context, doiOrPMID string) ([]citation.YearCount, error) {
	work, err := s.fetchWork(ctx, doiOrPMID)
	if err != nil {
		return nil, err
	}

	series := make([]citation.YearCount, 0, len(work.CountsByYear))
	for _, e := range work.CountsByYear {
		series = append(series, citation.YearCount{Year: e.Year, Count: e.Count})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Year < series[j].Year })
	return series, nil
}

func (s *Source) fetchWork(ctx context.Context, doiOrPMID string) (*workResponse, error) {
	var work workResponse
	err := s.breaker.Execute(func() error {
		return s.retry.Execute(ctx, "openalex_fetch_work", func() error {
			result, err := s.fetchWorkOnce(ctx, doiOrPMID)
			if err != nil {
				return err
			}
			work = *result
			return nil
		})
	})
	return &work, err
}

func (s *Source) fetchWorkOnce(ctx context.Context, doiOrPMID string) (*workResponse, error) {
	reqURL := fmt.Sprintf("%s/works/doi:%s", s.baseURL, url.PathEscape(doiOrPMID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewAdapterError(providerName, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &workResponse{}, nil
	}
	if resp.StatusCode >= 500 {
		return nil, errors.NewAdapterError(providerName, fmt.Sprintf("upstream returned %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var work workResponse
	if err := json.Unmarshal(body, &work); err != nil {
		return nil, errors.NewAdapterDecodeError(providerName, "malformed openalex response", err)
	}
	return &work, nil
}
