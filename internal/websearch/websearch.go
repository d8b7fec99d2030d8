// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package websearch provides the web-search capability and the concurrent
// retrieval fan-out used by the workflow's retrieval stage. Each provider
// (Tavily) implements the Provider interface per the Strategy pattern so
// the orchestration logic can be tested with stubs.
//
// See docs/ARCHITECTURE.md § Capabilities, § Retrieval.
package websearch

import (
	"context"
	"sync"

	"github.com/pdiddy/analysis-engine/pkg/types"
)

// Provider searches the web for one query and returns up to limit ranked
// snippets. Implementations preserve the provider's own relevance ordering
// and apply a per-call timeout.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error)
}

// RetrieveAll fans the queries out to the provider concurrently, one
// goroutine per sub-question, and joins all results before returning.
// The returned slice matches the input order regardless of completion
// order. A single query's failure is recorded in its Retrieval.Err and
// never blocks or aborts the sibling retrievals.
func RetrieveAll(ctx context.Context, p Provider, queries []string, limit int) []types.Retrieval {
	retrievals := make([]types.Retrieval, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			results, err := p.Search(ctx, q, limit)
			r := types.Retrieval{SubQuestion: q, Results: results}
			if err != nil {
				r.Results = nil
				r.Err = err.Error()
			}
			retrievals[i] = r
		}(i, q)
	}
	wg.Wait()

	return retrievals
}

// AllFailed reports whether every retrieval in the attempt produced a
// provider error. The workflow treats this as an attempt failure; partial
// failures degrade to no-data summaries instead.
func AllFailed(retrievals []types.Retrieval) bool {
	if len(retrievals) == 0 {
		return true
	}
	for _, r := range retrievals {
		if !r.Failed() {
			return false
		}
	}
	return true
}
