// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides the text-generation capability behind a narrow
// interface so the pipeline stages can be tested with deterministic stubs.
//
// See docs/ARCHITECTURE.md § Capabilities.
package llm

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Generator produces text from a prompt. The role is a system-level
// instruction framing the model's persona for the call (e.g. "You are an
// expert financial analyst."). Implementations apply a per-call timeout.
type Generator interface {
	Generate(ctx context.Context, role, prompt string) (string, error)
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// GenerateWithRetry calls the generator with exponential backoff on
// failure. When maxRetries is 0 or negative the default (3) is used.
// A context cancellation during a backoff wait returns ctx.Err().
func GenerateWithRetry(ctx context.Context, g Generator, role, prompt string, maxRetries int) (string, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := g.Generate(ctx, role, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// Retrying decorates a Generator with GenerateWithRetry semantics so the
// pipeline stages get backoff-and-retry without knowing about it.
type Retrying struct {
	G          Generator
	MaxRetries int
}

// Generate calls the wrapped generator with retries.
func (r Retrying) Generate(ctx context.Context, role, prompt string) (string, error) {
	return GenerateWithRetry(ctx, r.G, role, prompt, r.MaxRetries)
}
