// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/analysis-engine/internal/httputil"
	"github.com/pdiddy/analysis-engine/pkg/types"
)

// tavilyAPIURL is the Tavily search endpoint. Package-level var for test
// substitution.
var tavilyAPIURL = "https://api.tavily.com/search"

// Tavily calls the Tavily search API.
type Tavily struct {
	APIKey string
	Depth  string
	cfg    types.SearchConfig
	client *http.Client
}

// NewTavily constructs a Tavily provider from search settings.
func NewTavily(cfg types.SearchConfig) *Tavily {
	depth := cfg.Depth
	if depth == "" {
		depth = "basic"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Tavily{
		APIKey: cfg.TavilyAPIKey,
		Depth:  depth,
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Name identifies this provider in logs and retrieval errors.
func (t *Tavily) Name() string { return "tavily" }

// tavilyRequest is the request body for the Tavily search API.
type tavilyRequest struct {
	Query      string `json:"query"`
	APIKey     string `json:"api_key"`
	Depth      string `json:"search_depth"`
	MaxResults int    `json:"max_results"`
}

// tavilyResponse is the response body from the Tavily search API.
type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search posts a query to Tavily and returns up to limit snippets in the
// provider's own ranking order. HTTP 429 responses are retried with
// exponential backoff.
func (t *Tavily) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	if strings.TrimSpace(t.APIKey) == "" {
		return nil, fmt.Errorf("tavily: API key is missing")
	}
	if limit <= 0 {
		limit = t.cfg.MaxResults
	}
	if limit <= 0 {
		limit = 3
	}

	body := tavilyRequest{
		Query:      query,
		APIKey:     t.APIKey,
		Depth:      t.Depth,
		MaxResults: limit,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, tavilyAPIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", t.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, t.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("calling Tavily API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tavily returned %d: %s", resp.StatusCode, string(respBody))
	}

	var tResp tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tResp); err != nil {
		return nil, fmt.Errorf("decoding Tavily response: %w", err)
	}

	results := make([]types.SearchResult, 0, len(tResp.Results))
	for i, r := range tResp.Results {
		if i >= limit {
			break
		}
		results = append(results, types.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Rank:    i + 1,
		})
	}
	return results, nil
}
