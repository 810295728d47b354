// Package mesh implements the Vocabulary Adapter (C4) against a
// MeSH-class controlled-vocabulary lookup service.
package mesh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"litscope/internal/errors"
)

const providerName = "vocabulary_mesh"

// lookupResponse carries the synonym set for one queried term.
type lookupResponse struct {
	Synonyms []string `json:"synonyms"`
}

// Adapter implements vocabulary.Adapter against a MeSH lookup endpoint,
// falling back to the input unchanged on any failure after the bounded
// retry is exhausted.
type Adapter struct {
	baseURL    string
	httpClient *http.Client
	retry      *errors.RetryExecutor
	breaker    *errors.CircuitBreaker
	logger     *slog.Logger
}

// New creates a mesh.Adapter. breakers supplies (or creates) the named
// circuit breaker this adapter trips on sustained lookup failures.
func New(baseURL string, timeout time.Duration, logger *slog.Logger, breakers *errors.CircuitBreakerManager) *Adapter {
	classifier := errors.NewErrorClassifier()
	retryConfig := errors.WithExponentialBackoff(3, 100*time.Millisecond, 2*time.Second)

	return &Adapter{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retry:      errors.NewRetryExecutor(retryConfig, classifier, logger),
		breaker:    breakers.GetOrCreate(providerName, errors.DefaultAdapterCircuitBreakerConfig()),
		logger:     logger,
	}
}

// Expand implements vocabulary.Adapter.
func (a *Adapter) Expand(ctx context.Context, keywords []string) ([]string, error) {
	expanded := make([]string, 0, len(keywords)*2)
	seen := make(map[string]struct{}, len(keywords)*2)

	addUnique := func(term string) {
		key := strings.ToLower(term)
		if _, ok := seen[key]; ok || term == "" {
			return
		}
		seen[key] = struct{}{}
		expanded = append(expanded, term)
	}

	for _, kw := range keywords {
		addUnique(kw)
	}

	for _, kw := range keywords {
		synonyms, err := a.lookupWithRetry(ctx, kw)
		if err != nil {
			a.logger.Warn("mesh expansion failed, keeping term unchanged",
				slog.String("keyword", kw), slog.String("error", err.Error()))
			continue
		}
		for _, syn := range synonyms {
			addUnique(syn)
		}
	}

	return expanded, nil
}

func (a *Adapter) lookupWithRetry(ctx context.Context, term string) ([]string, error) {
	var synonyms []string
	err := a.breaker.Execute(func() error {
		return a.retry.Execute(ctx, "mesh_lookup", func() error {
			result, err := a.lookup(ctx, term)
			if err != nil {
				return err
			}
			synonyms = result
			return nil
		})
	})
	return synonyms, err
}

func (a *Adapter) lookup(ctx context.Context, term string) ([]string, error) {
	reqURL := a.baseURL + "/lookup?term=" + url.QueryEscape(term)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewAdapterError(providerName, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, errors.NewAdapterError(providerName, fmt.Sprintf("upstream returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var result lookupResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.NewAdapterDecodeError(providerName, "malformed mesh response", err)
	}
	return result.Synonyms, nil
}
