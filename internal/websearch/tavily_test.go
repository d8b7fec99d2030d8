// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pdiddy/analysis-engine/pkg/types"
)

func testSearchCfg(apiKey string) types.SearchConfig {
	return types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   5 * time.Second,
			UserAgent: "test/0.1",
		},
		MaxResults:   3,
		TavilyAPIKey: apiKey,
	}
}

func tavilyHandler(t *testing.T, results []map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tavilyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.APIKey == "" {
			t.Error("request is missing the API key")
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}
}

func TestTavilySearch(t *testing.T) {
	ts := httptest.NewServer(tavilyHandler(t, []map[string]string{
		{"title": "Tesla Q4 results", "url": "https://example.com/a", "content": "Revenue was $25.7B"},
		{"title": "Analyst view", "url": "https://example.com/b", "content": "Margins compressed"},
	}))
	defer ts.Close()

	old := tavilyAPIURL
	tavilyAPIURL = ts.URL
	defer func() { tavilyAPIURL = old }()

	p := NewTavily(testSearchCfg("tvly_test"))
	results, err := p.Search(context.Background(), "tesla q4 earnings", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Rank != 1 || results[1].Rank != 2 {
		t.Errorf("ranks = %d, %d; want 1, 2", results[0].Rank, results[1].Rank)
	}
	if results[0].Snippet != "Revenue was $25.7B" {
		t.Errorf("snippet = %q", results[0].Snippet)
	}
	if results[0].URL != "https://example.com/a" {
		t.Errorf("url = %q", results[0].URL)
	}
}

func TestTavilySearchLimitCapsResults(t *testing.T) {
	many := make([]map[string]string, 5)
	for i := range many {
		many[i] = map[string]string{"title": "t", "url": "u", "content": "c"}
	}
	ts := httptest.NewServer(tavilyHandler(t, many))
	defer ts.Close()

	old := tavilyAPIURL
	tavilyAPIURL = ts.URL
	defer func() { tavilyAPIURL = old }()

	p := NewTavily(testSearchCfg("tvly_test"))
	results, err := p.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("len(results) = %d, want 2", len(results))
	}
}

func TestTavilySearchMissingKey(t *testing.T) {
	p := NewTavily(testSearchCfg(""))
	if _, err := p.Search(context.Background(), "q", 3); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestTavilySearchHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer ts.Close()

	old := tavilyAPIURL
	tavilyAPIURL = ts.URL
	defer func() { tavilyAPIURL = old }()

	p := NewTavily(testSearchCfg("tvly_test"))
	if _, err := p.Search(context.Background(), "q", 3); err == nil {
		t.Fatal("expected error for HTTP 401")
	}
}

func TestTavilySearchZeroResults(t *testing.T) {
	ts := httptest.NewServer(tavilyHandler(t, nil))
	defer ts.Close()

	old := tavilyAPIURL
	tavilyAPIURL = ts.URL
	defer func() { tavilyAPIURL = old }()

	p := NewTavily(testSearchCfg("tvly_test"))
	results, err := p.Search(context.Background(), "obscure query", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}
