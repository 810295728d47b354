// Package crossref implements a citation.Source against the CrossRef
// works API (api.crossref.org).
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"litscope/internal/adapters/citation"
	"litscope/internal/errors"
	"litscope/internal/models"
)

const providerName = "citation_crossref"

// workResponse is the relevant subset of a CrossRef /works/{doi} body.
type workResponse struct {
	Message struct {
		IsReferencedByCount int `json:"is-referenced-by-count"`
	} `json:"message"`
}

// Source implements citation.Source against CrossRef.
type Source struct {
	baseURL    string
	httpClient *http.Client
	retry      *errors.RetryExecutor
	breaker    *errors.CircuitBreaker
}

// New creates a crossref.Source. breakers supplies (or creates) the named
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
func (s *Source) Name() models.CitationSource { return models.CitationSourceCrossRef }

// CurrentCount implements citation.Source.
func (s *Source) CurrentCount(ctx context.Context, doiOrPMID string) (int, error) {
	var count int
	err := s.breaker.Execute(func() error {
		return s.retry.Execute(ctx, "crossref_current_count", func() error {
			body, err := s.get(ctx, fmt.Sprintf("/works/%s", url.PathEscape(doiOrPMID)))
			if err != nil {
				return err
			}

			var work workResponse
			if err := json.Unmarshal(body, &work); err != nil {
				return errors.NewAdapterDecodeError(providerName, "malformed crossref response", err)
			}
			count = work.Message.IsReferencedByCount
			return nil
		})
	})
	return count, err
}

// YearlyCounts is unsupported by CrossRef's works endpoint; CrossRef has
// no per-year citation breakdown, so this always returns an empty
// series without error, letting the composite adapter fall back.
func (s *Source) YearlyCounts(ctx context.Context, doiOrPMID string) ([]citation.YearCount, error) {
	return nil, nil
}

func (s *Source) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewAdapterError(providerName, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []byte(`{"message":{"is-referenced-by-count":0}}`), nil
	}
	if resp.StatusCode >= 500 {
		return nil, errors.NewAdapterError(providerName, fmt.Sprintf("upstream returned %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return data, nil
}
