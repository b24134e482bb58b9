package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/yourusername/race-odds/internal/models"
)

// APIKeyHeader carries the history service credential.
const APIKeyHeader = "X-API-Key"

// historyResponse is the body returned by GET /v1/history.
type historyResponse struct {
	Records []models.HistoricalRecord `json:"records"`
}

// HTTPHistoryClient is a read-only HistoryRepository backed by a remote history
// service. Lookups are sent as GET {base}/v1/history?name=...&match=exact|prefix.
type HTTPHistoryClient struct {
	baseURL string
	apiKey  string
	client  *RateLimitedHTTPClient
}

// NewHTTPHistoryClient creates a client for the service at baseURL
func NewHTTPHistoryClient(baseURL, apiKey string, client *RateLimitedHTTPClient) *HTTPHistoryClient {
	return &HTTPHistoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

// FindByName implements HistoryRepository
func (c *HTTPHistoryClient) FindByName(ctx context.Context, normalized string) ([]models.HistoricalRecord, error) {
	return c.fetch(ctx, normalized, "exact")
}

// FindByNamePrefix implements HistoryRepository
func (c *HTTPHistoryClient) FindByNamePrefix(ctx context.Context, prefix string) ([]models.HistoricalRecord, error) {
	return c.fetch(ctx, prefix, "prefix")
}

func (c *HTTPHistoryClient) fetch(ctx context.Context, name, match string) ([]models.HistoricalRecord, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("match", match)

	req, err := c.newRequest(ctx, "/v1/history?"+q.Encode())
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", models.ErrHistoryUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode history response: %w", err)
	}
	return out.Records, nil
}

// Ping checks GET {base}/healthz
func (c *HTTPHistoryClient) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, "/healthz")
	if err != nil {
		return err
	}
	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", models.ErrHistoryUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *HTTPHistoryClient) newRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}
	return req, nil
}
