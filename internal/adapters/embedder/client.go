package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"litscope/internal/errors"
)

const providerName = "embedder_http"

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Vector []float32 `json:"vector"`
}

// Client implements Embedder against an external HTTP embedding service.
type Client struct {
	baseURL    string
	dimension  int
	httpClient *http.Client
	breaker    *errors.CircuitBreaker
}

// New creates a Client. breakers supplies (or creates) the named circuit
// breaker this client trips on sustained embedding-service failures.
func New(baseURL string, dimension int, timeout time.Duration, breakers *errors.CircuitBreakerManager) *Client {
	return &Client{
		baseURL:    baseURL,
		dimension:  dimension,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breakers.GetOrCreate(providerName, errors.DefaultAdapterCircuitBreakerConfig()),
	}
}

// Dimension implements Embedder.
func (c *Client) Dimension() int { return c.dimension }

// Embed implements Embedder. Empty/whitespace input returns a zero vector
// without calling the upstream service.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, c.dimension), nil
	}

	var vector []float32
	err := c.breaker.Execute(func() error {
		result, err := c.embedOnce(ctx, text)
		if err != nil {
			return err
		}
		vector = result
		return nil
	})
	return vector, err
}

func (c *Client) embedOnce(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewAdapterError(providerName, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, errors.NewAdapterError(providerName, fmt.Sprintf("upstream returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewValidationError("unexpected embedder response status", "status", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var result embedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.NewAdapterDecodeError(providerName, "malformed embedder response", err)
	}

	if len(result.Vector) != c.dimension {
		return nil, errors.NewAdapterError(providerName, "embedder dimension mismatch", nil)
	}

	return result.Vector, nil
}
