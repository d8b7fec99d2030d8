// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package critic scores a synthesized draft against quality dimensions
// (completeness, data quality, relevance, clarity) and produces structured
// feedback. A weak draft yields a low score, never an error; only a failed
// generation call is an error.
//
// See docs/ARCHITECTURE.md § Critique.
package critic

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/pdiddy/analysis-engine/internal/llm"
	"github.com/pdiddy/analysis-engine/pkg/types"
)

// Score bounds and the fallback used when the model's reply carries no
// parseable score line.
const (
	MinScore      = 0
	MaxScore      = 10
	fallbackScore = 6
)

// criticRole frames the model for review calls.
const criticRole = "You are a senior financial analyst reviewing research for quality and completeness."

// reviewPromptTmpl is the scoring rubric. The rubric lives in the prompt
// rather than in code so quality policy can evolve without touching the
// orchestration logic.
var reviewPromptTmpl = template.Must(template.New("review").Parse(`You are a senior financial analyst reviewing a research report. Evaluate the quality and completeness of the analysis.

Original Question: {{.Query}}

Analysis:
{{.Draft}}

Evaluation Criteria:
1. Completeness: Does the analysis address all aspects of the original question?
2. Data Quality: Are specific metrics, numbers, and dates provided?
3. Relevance: Is the information directly relevant to the question?
4. Clarity: Is the analysis clear and well-structured?

Provide a score from 0-10 where:
- 8-10: Excellent, comprehensive analysis
- 6-7: Good analysis with minor gaps
- 4-5: Adequate but missing key information
- 0-3: Poor, significant issues

Format:
Score: <number>
Strengths: <what works well>
Weaknesses: <what needs improvement>
`))

// Critic reviews drafts through the text-generation capability.
type Critic struct {
	gen llm.Generator
}

// New constructs a Critic.
func New(g llm.Generator) *Critic {
	return &Critic{gen: g}
}

// Review scores the draft against the original query. The model's full
// reply becomes the feedback; the score comes from its "Score:" line,
// clamped to [0,10]. A reply without a score line falls back to 6 so a
// formatting slip never aborts the attempt. A failed generation call
// returns an error and is attempt-fatal.
func (c *Critic) Review(ctx context.Context, query, draft string) (types.CriticVerdict, error) {
	var buf bytes.Buffer
	err := reviewPromptTmpl.Execute(&buf, struct{ Query, Draft string }{query, draft})
	if err != nil {
		return types.CriticVerdict{}, fmt.Errorf("rendering review prompt: %w", err)
	}

	reply, err := c.gen.Generate(ctx, criticRole, buf.String())
	if err != nil {
		return types.CriticVerdict{}, fmt.Errorf("reviewing draft: %w", err)
	}

	return types.CriticVerdict{
		Score:    parseScore(reply),
		Feedback: strings.TrimSpace(reply),
	}, nil
}

// parseScore extracts the first integer on the reply's "Score:" line.
func parseScore(reply string) int {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToLower(line), "score:") {
			continue
		}
		rest := line[len("score:"):]
		if n, ok := firstInt(rest); ok {
			return clamp(n)
		}
		break
	}
	return fallbackScore
}

// firstInt returns the first run of digits in s as an integer.
func firstInt(s string) (int, bool) {
	start := -1
	for i, r := range s {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return 0, false
	}
	n := 0
	for _, r := range s[start:] {
		if !unicode.IsDigit(r) {
			break
		}
		n = n*10 + int(r-'0')
		if n > MaxScore {
			return MaxScore, true
		}
	}
	return n, true
}

func clamp(n int) int {
	if n < MinScore {
		return MinScore
	}
	if n > MaxScore {
		return MaxScore
	}
	return n
}
