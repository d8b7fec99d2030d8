// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize reduces one sub-question's retrieved snippets into a
// concise, evidence-grounded answer. Empty or failed retrievals degrade to
// an explicit no-data summary instead of fabricating content.
//
// See docs/ARCHITECTURE.md § Summarization.
package summarize

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/analysis-engine/internal/llm"
	"github.com/pdiddy/analysis-engine/pkg/types"
)

// snippetLimit caps how much of each snippet reaches the prompt.
const snippetLimit = 500

// summarizerRole frames the model for summarization calls.
const summarizerRole = "You are a professional financial analyst who writes concise, data-driven summaries."

// summaryPromptTmpl instructs the model to answer the sub-question using
// only the supplied snippets and to state what is missing.
var summaryPromptTmpl = template.Must(template.New("summary").Parse(`You are a professional financial analyst. Analyze the following information to answer the specific question.
Focus on quantitative data, key metrics, and factual insights.

Question: {{.Question}}

Source Information:
{{.Evidence}}

Instructions:
- Extract specific numbers, percentages, dates, and metrics
- Identify key trends or changes
- Note any significant events or developments
- Base the analysis only on the source information above
- Keep the summary concise but comprehensive
- If information is insufficient, state what's missing

Analysis:
`))

// Summarizer produces sub-summaries through the text-generation capability.
type Summarizer struct {
	gen llm.Generator
}

// New constructs a Summarizer.
func New(g llm.Generator) *Summarizer {
	return &Summarizer{gen: g}
}

// Summarize turns one retrieval into a SubSummary. A failed or empty
// retrieval yields a degraded summary without calling the model; a
// generation failure is attempt-fatal and propagates to the caller.
func (s *Summarizer) Summarize(ctx context.Context, r types.Retrieval) (types.SubSummary, error) {
	if r.Failed() {
		return types.SubSummary{
			SubQuestion: r.SubQuestion,
			Text:        fmt.Sprintf("Unable to retrieve information for: %s (%s)", r.SubQuestion, r.Err),
			Degraded:    true,
		}, nil
	}

	evidence := formatEvidence(r.Results)
	if strings.TrimSpace(evidence) == "" {
		return types.SubSummary{
			SubQuestion: r.SubQuestion,
			Text:        "No relevant data found for: " + r.SubQuestion,
			Degraded:    true,
		}, nil
	}

	var buf bytes.Buffer
	err := summaryPromptTmpl.Execute(&buf, struct{ Question, Evidence string }{r.SubQuestion, evidence})
	if err != nil {
		return types.SubSummary{}, fmt.Errorf("rendering summary prompt: %w", err)
	}

	text, err := s.gen.Generate(ctx, summarizerRole, buf.String())
	if err != nil {
		return types.SubSummary{}, fmt.Errorf("summarizing %q: %w", r.SubQuestion, err)
	}

	return types.SubSummary{SubQuestion: r.SubQuestion, Text: text}, nil
}

// SummarizeAll summarizes every retrieval in order. Degraded summaries
// never abort the attempt; the first generation failure does.
func (s *Summarizer) SummarizeAll(ctx context.Context, retrievals []types.Retrieval) ([]types.SubSummary, error) {
	summaries := make([]types.SubSummary, 0, len(retrievals))
	for _, r := range retrievals {
		sum, err := s.Summarize(ctx, r)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// formatEvidence joins snippet texts with separators, truncating each to
// snippetLimit and attributing its source URL.
func formatEvidence(results []types.SearchResult) string {
	var parts []string
	for _, r := range results {
		snippet := strings.TrimSpace(r.Snippet)
		if snippet == "" {
			continue
		}
		if len(snippet) > snippetLimit {
			snippet = snippet[:snippetLimit]
		}
		if r.URL != "" {
			snippet = snippet + "\n(source: " + r.URL + ")"
		}
		parts = append(parts, snippet)
	}
	return strings.Join(parts, "\n---\n")
}
