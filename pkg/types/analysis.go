// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the analysis-engine
// pipeline: the input query, per-attempt retrieval and summary artifacts,
// the critic verdict, and the terminal workflow result.
//
// See docs/ARCHITECTURE.md § Data Structures.
package types

import "time"

// Query is the immutable input to one analysis run.
type Query struct {
	// Text is the raw natural-language financial question.
	Text string `json:"text" yaml:"text"`

	// Purpose tags the analysis intent (e.g. "financial analysis",
	// "earnings review"). Used to steer planning prompts.
	Purpose string `json:"purpose,omitempty" yaml:"purpose,omitempty"`
}

// SearchResult is one ranked snippet of web evidence for a sub-question.
type SearchResult struct {
	// Title is the page title as returned by the search provider.
	Title string `json:"title" yaml:"title"`

	// URL identifies the source page.
	URL string `json:"url" yaml:"url"`

	// Snippet is the provider's text excerpt.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Rank is the 1-based position in the provider's ordering. The
	// retriever preserves provider order and does not re-rank.
	Rank int `json:"rank" yaml:"rank"`
}

// Retrieval holds one sub-question's retrieval outcome. A provider fault
// sets Err and leaves Results empty; the attempt continues with a degraded
// summary for this sub-question.
type Retrieval struct {
	SubQuestion string         `json:"sub_question" yaml:"sub_question"`
	Results     []SearchResult `json:"results,omitempty" yaml:"results,omitempty"`
	Err         string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether retrieval for this sub-question produced a
// provider error.
func (r Retrieval) Failed() bool { return r.Err != "" }

// Empty reports whether no usable evidence was retrieved, either through
// a provider error or a zero-result response.
func (r Retrieval) Empty() bool { return r.Err != "" || len(r.Results) == 0 }

// SubSummary is one sub-question's evidence-grounded answer.
type SubSummary struct {
	SubQuestion string `json:"sub_question" yaml:"sub_question"`

	// Text is the summary body, or an explicit no-data marker when Degraded.
	Text string `json:"text" yaml:"text"`

	// Degraded marks a summary produced from empty or failed retrieval.
	Degraded bool `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

// CriticVerdict is the critic's assessment of a synthesized draft.
type CriticVerdict struct {
	// Score is the holistic quality score on a 0-10 scale.
	Score int `json:"score" yaml:"score"`

	// Feedback is the critic's structured commentary (strengths,
	// weaknesses, missing aspects).
	Feedback string `json:"feedback" yaml:"feedback"`
}

// StageTimings records wall-clock durations per pipeline stage. Stage keys
// (planning, retrieval, summarization, synthesis, critic) hold the most
// recent attempt's duration; retry_N keys record each retry preparation.
type StageTimings map[string]time.Duration

// Stage key constants for StageTimings.
const (
	StagePlanning      = "planning"
	StageRetrieval     = "retrieval"
	StageSummarization = "summarization"
	StageSynthesis     = "synthesis"
	StageCritic        = "critic"
)

// Total returns the sum of all recorded durations.
func (t StageTimings) Total() time.Duration {
	var sum time.Duration
	for _, d := range t {
		sum += d
	}
	return sum
}

// WorkflowResult is the terminal artifact of one analysis run. Exactly one
// is produced per Query; it is never mutated afterwards. Failures surface
// through Err and ErrMsg, never as a raw error to the caller.
type WorkflowResult struct {
	// FinalAnswer is the accepted (or best-effort) draft text.
	FinalAnswer string `json:"final_answer" yaml:"final_answer"`

	// CriticScore is the last critic verdict's score, 0-10.
	CriticScore int `json:"critic_score" yaml:"critic_score"`

	// CriticFeedback is the last critic verdict's commentary.
	CriticFeedback string `json:"critic_feedback,omitempty" yaml:"critic_feedback,omitempty"`

	// Attempts is the number of full pipeline passes executed (first
	// pass included); Retries is Attempts-1, bounded by the configured
	// retry budget.
	Attempts int `json:"attempts" yaml:"attempts"`
	Retries  int `json:"retry_count" yaml:"retry_count"`

	// Timings is the per-stage wall-clock breakdown.
	Timings StageTimings `json:"timings" yaml:"timings"`

	// State names the terminal workflow state: accepted, exhausted, failed.
	State string `json:"state" yaml:"state"`

	// Exhausted is set when the retry budget ran out (or the global
	// timeout fired) before the quality threshold was met.
	Exhausted bool `json:"exhausted" yaml:"exhausted"`

	// Err is set when a stage failed unrecoverably; ErrMsg carries the
	// failure description.
	Err    bool   `json:"error" yaml:"error"`
	ErrMsg string `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}
