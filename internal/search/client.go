package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/lumenchat/stream-platform/internal/model"
)

// ClientConfig configures the HTTP search provider.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	MaxResults int
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []model.SearchResult `json:"results"`
}

// NewHTTPFunc returns a Func backed by a Tavily-compatible search API.
func NewHTTPFunc(cfg ClientConfig) Func {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	client := &http.Client{Timeout: 15 * time.Second}

	return func(ctx context.Context, query string) ([]model.SearchResult, error) {
		body, err := json.Marshal(searchRequest{Query: query, MaxResults: cfg.MaxResults})
		if err != nil {
			return nil, fmt.Errorf("failed to encode search request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/search", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create search request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("search request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return nil, fmt.Errorf("search API returned %d: %s", resp.StatusCode, detail)
		}

		var parsed searchResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("failed to decode search response: %w", err)
		}
		return parsed.Results, nil
	}
}
