// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesize combines all sub-question summaries into one draft
// answer, preserving the original sub-question order so every angle of the
// analysis is addressed in sequence.
//
// See docs/ARCHITECTURE.md § Synthesis.
package synthesize

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/analysis-engine/internal/llm"
	"github.com/pdiddy/analysis-engine/pkg/types"
)

// synthesizerRole frames the model for synthesis calls.
const synthesizerRole = "You are a senior financial analyst preparing a comprehensive report."

// synthesisPromptTmpl combines the research findings into one report that
// answers the original question.
var synthesisPromptTmpl = template.Must(template.New("synthesis").Parse(`You are a senior financial analyst preparing a comprehensive report. Based on the research summaries,
provide a detailed analysis that directly answers the original question.

Original Question: {{.Query}}

Research Findings:
{{.Findings}}

Instructions:
- Structure your response with clear sections
- Address each research finding in the order given
- Lead with key findings and conclusions
- Include specific metrics, percentages, and data points
- Where a finding reports no data, say so explicitly rather than speculating
- Provide context and implications
- End with a clear summary statement
- Use professional financial analysis language

Comprehensive Analysis:
`))

// Synthesizer produces draft answers through the text-generation capability.
type Synthesizer struct {
	gen llm.Generator
}

// New constructs a Synthesizer.
func New(g llm.Generator) *Synthesizer {
	return &Synthesizer{gen: g}
}

// Synthesize merges the summaries into one draft. Summaries are presented
// to the model in input order; a generation failure is attempt-fatal.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, summaries []types.SubSummary) (string, error) {
	if len(summaries) == 0 {
		return "", fmt.Errorf("no summaries to synthesize")
	}

	var buf bytes.Buffer
	err := synthesisPromptTmpl.Execute(&buf, struct{ Query, Findings string }{query, formatFindings(summaries)})
	if err != nil {
		return "", fmt.Errorf("rendering synthesis prompt: %w", err)
	}

	draft, err := s.gen.Generate(ctx, synthesizerRole, buf.String())
	if err != nil {
		return "", fmt.Errorf("synthesizing draft: %w", err)
	}
	return draft, nil
}

// formatFindings renders each summary as a question/answer pair in order.
func formatFindings(summaries []types.SubSummary) string {
	var parts []string
	for _, sum := range summaries {
		parts = append(parts, fmt.Sprintf("Q: %s\nA: %s", sum.SubQuestion, sum.Text))
	}
	return strings.Join(parts, "\n\n")
}
