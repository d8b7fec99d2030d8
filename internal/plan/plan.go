// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan decomposes the top-level query into exactly three focused
// sub-questions, each targeting a distinct angle of the analysis.
//
// See docs/ARCHITECTURE.md § Planning.
package plan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/pdiddy/analysis-engine/internal/llm"
)

// SubQuestionCount is the fixed number of sub-questions per attempt.
const SubQuestionCount = 3

// ErrPlanning reports that sub-question generation produced fewer usable
// items than required. The workflow treats the whole attempt as failed.
var ErrPlanning = errors.New("planning produced fewer than 3 usable sub-questions")

// plannerRole frames the model for planning calls.
const plannerRole = "You are an expert financial analyst who decomposes research questions into searchable sub-questions."

// planPromptTmpl asks the model for exactly three focused sub-questions
// covering distinct angles of the main question.
var planPromptTmpl = template.Must(template.New("plan").Parse(`You are an expert financial analyst specializing in {{.Purpose}}.
Break the following question into exactly 3 focused, specific sub-questions that can be answered via web search.
Each sub-question should target different aspects of the analysis.

Main Question: "{{.Query}}"

Requirements:
- Make each sub-question specific and searchable
- Focus on quantitative data where possible
- Ensure questions are complementary, not overlapping
- Format as a numbered list (1., 2., 3.)

Sub-questions:
`))

// refinePromptTmpl regenerates sub-questions with the critic's feedback
// embedded, steering the next pass toward the gaps the critic identified.
var refinePromptTmpl = template.Must(template.New("refine").Parse(`You are an expert financial analyst. The previous analysis attempt received this feedback:
{{.Feedback}}

Create 3 NEW, more specific and targeted sub-questions for this main question:
"{{.Query}}"

Make these questions:
- More specific with exact metrics and timeframes
- Focus on different data sources (earnings reports, market data, analyst reports)
- Include specific financial terms and ratios
- Target recent and reliable information sources

Format as numbered list:
`))

// Planner generates sub-questions through the text-generation capability.
type Planner struct {
	gen llm.Generator
}

// New constructs a Planner.
func New(g llm.Generator) *Planner {
	return &Planner{gen: g}
}

// Plan decomposes the query into exactly three sub-questions. It returns
// ErrPlanning when the model yields fewer than three usable items, and
// truncates to three when it yields more.
func (p *Planner) Plan(ctx context.Context, query, purpose string) ([]string, error) {
	if purpose == "" {
		purpose = "financial analysis"
	}

	var buf bytes.Buffer
	if err := planPromptTmpl.Execute(&buf, struct{ Query, Purpose string }{query, purpose}); err != nil {
		return nil, fmt.Errorf("rendering plan prompt: %w", err)
	}

	output, err := p.gen.Generate(ctx, plannerRole, buf.String())
	if err != nil {
		return nil, fmt.Errorf("generating sub-questions: %w", err)
	}

	return parseSubQuestions(output)
}

// Refine regenerates the sub-questions with the critic's feedback folded
// into the prompt. Used by the tier-1 retry strategy.
func (p *Planner) Refine(ctx context.Context, query, feedback string) ([]string, error) {
	var buf bytes.Buffer
	if err := refinePromptTmpl.Execute(&buf, struct{ Query, Feedback string }{query, feedback}); err != nil {
		return nil, fmt.Errorf("rendering refine prompt: %w", err)
	}

	output, err := p.gen.Generate(ctx, plannerRole, buf.String())
	if err != nil {
		return nil, fmt.Errorf("refining sub-questions: %w", err)
	}

	return parseSubQuestions(output)
}

// parseSubQuestions extracts numbered-list items from model output. Lines
// like "1. What was revenue?" or "2) ..." count; anything else is ignored.
func parseSubQuestions(output string) ([]string, error) {
	var questions []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		q, ok := stripListMarker(line)
		if !ok || q == "" {
			continue
		}
		questions = append(questions, q)
	}

	if len(questions) < SubQuestionCount {
		return nil, fmt.Errorf("%w: got %d", ErrPlanning, len(questions))
	}
	return questions[:SubQuestionCount], nil
}

// stripListMarker removes a leading "N." or "N)" marker and returns the
// remainder, reporting whether the line was a numbered item.
func stripListMarker(line string) (string, bool) {
	if len(line) == 0 || !unicode.IsDigit(rune(line[0])) {
		return "", false
	}
	i := 0
	for i < len(line) && unicode.IsDigit(rune(line[i])) {
		i++
	}
	if i >= len(line) || (line[i] != '.' && line[i] != ')') {
		return "", false
	}
	return strings.TrimSpace(line[i+1:]), true
}
