// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"

	"github.com/pdiddy/analysis-engine/internal/websearch"
	"github.com/pdiddy/analysis-engine/pkg/types"
)

// CachedProvider wraps a search provider with the snippet cache. Cache
// faults fall through to the underlying provider so a broken cache never
// degrades retrieval.
type CachedProvider struct {
	provider websearch.Provider
	store    *Store
}

// NewCachedProvider wraps p with the cache store.
func NewCachedProvider(p websearch.Provider, store *Store) *CachedProvider {
	return &CachedProvider{provider: p, store: store}
}

// Name identifies the underlying provider.
func (c *CachedProvider) Name() string { return c.provider.Name() }

// Search returns fresh cached snippets when available, otherwise queries
// the provider and caches what it returns.
func (c *CachedProvider) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	if cached, ok, err := c.store.Lookup(ctx, query); err == nil && ok {
		if limit > 0 && len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	results, err := c.provider.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	// Best effort: a write failure must not fail the retrieval.
	_ = c.store.Put(ctx, query, results)

	return results, nil
}
