// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/analysis-engine/pkg/types"
)

// stubPlanner returns canned sub-questions and records refinement calls.
type stubPlanner struct {
	planQs    []string
	planErr   error
	refineQs  []string
	refineErr error

	mu           sync.Mutex
	planCalls    int
	refineCalls  int
	lastFeedback string
}

func (p *stubPlanner) Plan(_ context.Context, _, _ string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.planCalls++
	return p.planQs, p.planErr
}

func (p *stubPlanner) Refine(_ context.Context, _, feedback string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refineCalls++
	p.lastFeedback = feedback
	if p.refineErr != nil {
		return nil, p.refineErr
	}
	return p.refineQs, nil
}

// stubProvider answers searches through a settable function and records
// every query it sees, grouped by pass in arrival order.
type stubProvider struct {
	search func(ctx context.Context, query string, limit int) ([]types.SearchResult, error)

	mu      sync.Mutex
	queries []string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.search != nil {
		return s.search(ctx, query, limit)
	}
	return []types.SearchResult{{Title: "t", URL: "https://example.com", Snippet: "snippet for " + query, Rank: 1}}, nil
}

func (s *stubProvider) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.queries))
	copy(out, s.queries)
	return out
}

// stubSummarizer mirrors the real summarizer's shape: degraded marker
// summaries for failed or empty retrievals, grounded text otherwise.
type stubSummarizer struct {
	err error

	mu   sync.Mutex
	seen [][]types.Retrieval
}

func (s *stubSummarizer) SummarizeAll(_ context.Context, retrievals []types.Retrieval) ([]types.SubSummary, error) {
	s.mu.Lock()
	s.seen = append(s.seen, retrievals)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	summaries := make([]types.SubSummary, len(retrievals))
	for i, r := range retrievals {
		if r.Failed() || r.Empty() {
			summaries[i] = types.SubSummary{SubQuestion: r.SubQuestion, Text: "No relevant data found for: " + r.SubQuestion, Degraded: true}
			continue
		}
		summaries[i] = types.SubSummary{SubQuestion: r.SubQuestion, Text: "summary of " + r.SubQuestion}
	}
	return summaries, nil
}

type stubSynthesizer struct {
	err error
}

func (s *stubSynthesizer) Synthesize(_ context.Context, query string, summaries []types.SubSummary) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	parts := make([]string, len(summaries))
	for i, sm := range summaries {
		parts[i] = sm.Text
	}
	return "Analysis of " + query + ": " + strings.Join(parts, "; "), nil
}

// stubCritic returns scores from a script, one per Review call; the last
// entry repeats once the script runs out.
type stubCritic struct {
	scores []int
	err    error

	mu    sync.Mutex
	calls int
}

func (c *stubCritic) Review(_ context.Context, _, _ string) (types.CriticVerdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return types.CriticVerdict{}, c.err
	}
	i := c.calls
	c.calls++
	if i >= len(c.scores) {
		i = len(c.scores) - 1
	}
	score := c.scores[i]
	return types.CriticVerdict{Score: score, Feedback: fmt.Sprintf("Score: %d\nWeaknesses: needs more detail", score)}, nil
}

func questions() []string {
	return []string{"What were the revenues?", "How did margins move?", "What is the outlook?"}
}

func newTestEngine(p *stubPlanner, prov *stubProvider, sum *stubSummarizer, crit *stubCritic, cfg types.WorkflowConfig) *Engine {
	return New(p, prov, sum, &stubSynthesizer{}, crit, cfg, nil)
}

func TestRunAcceptsFirstAttempt(t *testing.T) {
	planner := &stubPlanner{planQs: questions()}
	provider := &stubProvider{}
	critic := &stubCritic{scores: []int{8}}
	engine := newTestEngine(planner, provider, &stubSummarizer{}, critic, types.WorkflowConfig{})

	res := engine.Run(context.Background(), types.Query{Text: "How did Apple perform last quarter?"})

	if res.State != string(StateAccepted) {
		t.Fatalf("state = %q, want %q (errmsg %q)", res.State, StateAccepted, res.ErrMsg)
	}
	if res.FinalAnswer == "" {
		t.Error("final answer is empty")
	}
	if res.CriticScore != 8 {
		t.Errorf("score = %d, want 8", res.CriticScore)
	}
	if res.Attempts != 1 || res.Retries != 0 {
		t.Errorf("attempts = %d, retries = %d, want 1 and 0", res.Attempts, res.Retries)
	}
	if res.Err || res.Exhausted {
		t.Errorf("unexpected err=%v exhausted=%v", res.Err, res.Exhausted)
	}
	for _, stage := range []string{types.StagePlanning, types.StageRetrieval, types.StageSummarization, types.StageSynthesis, types.StageCritic} {
		if _, ok := res.Timings[stage]; !ok {
			t.Errorf("missing timing for stage %q", stage)
		}
	}
	if planner.refineCalls != 0 {
		t.Errorf("refineCalls = %d, want 0", planner.refineCalls)
	}
}

func TestRunAcceptsAfterRefinement(t *testing.T) {
	planner := &stubPlanner{
		planQs:   questions(),
		refineQs: []string{"refined one", "refined two", "refined three"},
	}
	provider := &stubProvider{}
	critic := &stubCritic{scores: []int{3, 4, 7}}
	engine := newTestEngine(planner, provider, &stubSummarizer{}, critic, types.WorkflowConfig{})

	res := engine.Run(context.Background(), types.Query{Text: "q"})

	if res.State != string(StateAccepted) {
		t.Fatalf("state = %q, want accepted", res.State)
	}
	if res.Attempts != 3 || res.Retries != 2 {
		t.Errorf("attempts = %d, retries = %d, want 3 and 2", res.Attempts, res.Retries)
	}
	if res.CriticScore != 7 {
		t.Errorf("score = %d, want 7", res.CriticScore)
	}
	// Retries 1 and 2 use the refinement tier.
	if planner.refineCalls != 2 {
		t.Errorf("refineCalls = %d, want 2", planner.refineCalls)
	}
	if !strings.Contains(planner.lastFeedback, "needs more detail") {
		t.Errorf("refinement did not receive critic feedback: %q", planner.lastFeedback)
	}
	for _, key := range []string{"retry_1", "retry_2"} {
		if _, ok := res.Timings[key]; !ok {
			t.Errorf("missing timing %q", key)
		}
	}
	if _, ok := res.Timings["retry_3"]; ok {
		t.Error("unexpected timing retry_3")
	}
	// Passes 2 and 3 retrieve against the refined sub-questions.
	seen := provider.seen()
	if len(seen) != 9 {
		t.Fatalf("provider saw %d queries, want 9", len(seen))
	}
	for _, q := range seen[3:] {
		if !strings.HasPrefix(q, "refined") {
			t.Errorf("post-retry query %q is not a refined sub-question", q)
		}
	}
}

func TestRunExhaustsRetryBudget(t *testing.T) {
	planner := &stubPlanner{planQs: questions(), refineQs: questions()}
	provider := &stubProvider{}
	critic := &stubCritic{scores: []int{2}}
	engine := newTestEngine(planner, provider, &stubSummarizer{}, critic, types.WorkflowConfig{MaxRetries: 5})

	res := engine.Run(context.Background(), types.Query{Text: "q"})

	if res.State != string(StateExhausted) {
		t.Fatalf("state = %q, want exhausted", res.State)
	}
	if !res.Exhausted {
		t.Error("exhausted flag not set")
	}
	if res.Err {
		t.Error("exhaustion is not an error")
	}
	if res.Retries != 5 {
		t.Errorf("retries = %d, want 5", res.Retries)
	}
	if res.Attempts != 6 {
		t.Errorf("attempts = %d, want 6", res.Attempts)
	}
	if res.FinalAnswer == "" {
		t.Error("exhausted result must carry the best-effort draft")
	}
	if res.CriticScore != 2 {
		t.Errorf("score = %d, want 2", res.CriticScore)
	}
	for i := 1; i <= 5; i++ {
		if _, ok := res.Timings[fmt.Sprintf("retry_%d", i)]; !ok {
			t.Errorf("missing timing retry_%d", i)
		}
	}
}

func TestRunSynonymTierRewritesQueries(t *testing.T) {
	// Refinement echoes the originals so the tier-2 rewrite on retry 4 is
	// visible in the provider's query log.
	planner := &stubPlanner{planQs: questions(), refineQs: questions()}
	provider := &stubProvider{}
	critic := &stubCritic{scores: []int{2}}
	engine := newTestEngine(planner, provider, &stubSummarizer{}, critic, types.WorkflowConfig{MaxRetries: 5})

	engine.Run(context.Background(), types.Query{Text: "q"})

	seen := provider.seen()
	// 6 passes of 3 queries each; pass 5 follows retry 4, the first
	// synonyms-tier retry.
	if len(seen) != 18 {
		t.Fatalf("provider saw %d queries, want 18", len(seen))
	}
	for _, q := range seen[12:15] {
		extended := false
		for _, orig := range questions() {
			if q != orig && strings.HasPrefix(q, orig) {
				extended = true
				break
			}
		}
		if !extended {
			t.Errorf("pass-5 query %q was not rewritten from a sub-question", q)
		}
	}
}

func TestRunPartialRetrievalFailureDegrades(t *testing.T) {
	planner := &stubPlanner{planQs: questions()}
	provider := &stubProvider{
		search: func(_ context.Context, query string, _ int) ([]types.SearchResult, error) {
			if query != questions()[0] {
				return nil, errors.New("provider unavailable")
			}
			return []types.SearchResult{{Title: "t", URL: "u", Snippet: "s", Rank: 1}}, nil
		},
	}
	summarizer := &stubSummarizer{}
	critic := &stubCritic{scores: []int{8}}
	engine := newTestEngine(planner, provider, summarizer, critic, types.WorkflowConfig{})

	res := engine.Run(context.Background(), types.Query{Text: "q"})

	if res.State != string(StateAccepted) {
		t.Fatalf("state = %q, want accepted", res.State)
	}
	if res.Retries != 0 {
		t.Errorf("retries = %d; partial failure must not consume the budget", res.Retries)
	}
	if !strings.Contains(res.FinalAnswer, "No relevant data found") {
		t.Errorf("answer %q missing degraded markers", res.FinalAnswer)
	}
	if !strings.Contains(res.FinalAnswer, "summary of "+questions()[0]) {
		t.Errorf("answer %q missing the surviving summary", res.FinalAnswer)
	}
}

func TestRunAllRetrievalsFailedConsumesBudget(t *testing.T) {
	planner := &stubPlanner{planQs: questions(), refineQs: questions()}
	provider := &stubProvider{
		search: func(_ context.Context, _ string, _ int) ([]types.SearchResult, error) {
			return nil, errors.New("provider down")
		},
	}
	critic := &stubCritic{scores: []int{9}}
	engine := newTestEngine(planner, provider, &stubSummarizer{}, critic, types.WorkflowConfig{MaxRetries: 2})

	res := engine.Run(context.Background(), types.Query{Text: "q"})

	if res.State != string(StateFailed) {
		t.Fatalf("state = %q, want failed", res.State)
	}
	if !res.Err {
		t.Error("failed result must set the error flag")
	}
	if !strings.Contains(res.ErrMsg, "retrieval") {
		t.Errorf("errmsg = %q, want retrieval failure", res.ErrMsg)
	}
	if res.Retries != 2 {
		t.Errorf("retries = %d, want 2", res.Retries)
	}
	if res.FinalAnswer != "" {
		t.Errorf("no draft was ever produced, got answer %q", res.FinalAnswer)
	}
}

func TestRunPlanningFailureConsumesBudget(t *testing.T) {
	planner := &stubPlanner{planErr: errors.New("model refused")}
	provider := &stubProvider{}
	critic := &stubCritic{scores: []int{9}}
	engine := newTestEngine(planner, provider, &stubSummarizer{}, critic, types.WorkflowConfig{MaxRetries: 3})

	res := engine.Run(context.Background(), types.Query{Text: "q"})

	if res.State != string(StateFailed) {
		t.Fatalf("state = %q, want failed", res.State)
	}
	if !strings.Contains(res.ErrMsg, "planning") {
		t.Errorf("errmsg = %q, want planning failure", res.ErrMsg)
	}
	if res.Retries != 3 {
		t.Errorf("retries = %d, want 3", res.Retries)
	}
	if len(provider.seen()) != 0 {
		t.Error("retrieval must not run without sub-questions")
	}
}

func TestRunRefinementFailureKeepsSubQuestions(t *testing.T) {
	planner := &stubPlanner{planQs: questions(), refineErr: errors.New("model refused")}
	provider := &stubProvider{}
	critic := &stubCritic{scores: []int{2, 8}}
	engine := newTestEngine(planner, provider, &stubSummarizer{}, critic, types.WorkflowConfig{})

	res := engine.Run(context.Background(), types.Query{Text: "q"})

	if res.State != string(StateAccepted) {
		t.Fatalf("state = %q, want accepted", res.State)
	}
	if res.Retries != 1 {
		t.Errorf("retries = %d, want 1", res.Retries)
	}
	seen := provider.seen()
	if len(seen) != 6 {
		t.Fatalf("provider saw %d queries, want 6", len(seen))
	}
	want := make(map[string]bool)
	for _, q := range questions() {
		want[q] = true
	}
	for _, q := range seen[3:] {
		if !want[q] {
			t.Errorf("pass-2 query %q is not an original sub-question", q)
		}
	}
}

func TestRunTimeoutWithDraftIsExhausted(t *testing.T) {
	planner := &stubPlanner{planQs: questions(), refineQs: questions()}
	var calls int
	var mu sync.Mutex
	provider := &stubProvider{
		search: func(ctx context.Context, _ string, _ int) ([]types.SearchResult, error) {
			mu.Lock()
			blocking := calls >= 3 // queries of the second pass
			calls++
			mu.Unlock()
			if blocking {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return []types.SearchResult{{Title: "t", URL: "u", Snippet: "s", Rank: 1}}, nil
		},
	}
	critic := &stubCritic{scores: []int{2}}
	engine := newTestEngine(planner, provider, &stubSummarizer{}, critic, types.WorkflowConfig{Timeout: 200 * time.Millisecond})

	start := time.Now()
	res := engine.Run(context.Background(), types.Query{Text: "q"})
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Fatalf("run took %s, expected prompt return after timeout", elapsed)
	}
	if res.State != string(StateExhausted) {
		t.Fatalf("state = %q, want exhausted", res.State)
	}
	if !res.Exhausted {
		t.Error("exhausted flag not set")
	}
	if res.FinalAnswer == "" {
		t.Error("timeout with a draft must return the partial answer")
	}
	if !strings.Contains(res.ErrMsg, "timed out") {
		t.Errorf("errmsg = %q, want timeout message", res.ErrMsg)
	}
}

func TestRunTimeoutWithoutDraftIsFailed(t *testing.T) {
	planner := &stubPlanner{planQs: questions()}
	provider := &stubProvider{
		search: func(ctx context.Context, _ string, _ int) ([]types.SearchResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	critic := &stubCritic{scores: []int{9}}
	engine := newTestEngine(planner, provider, &stubSummarizer{}, critic, types.WorkflowConfig{Timeout: 100 * time.Millisecond})

	res := engine.Run(context.Background(), types.Query{Text: "q"})

	if res.State != string(StateFailed) {
		t.Fatalf("state = %q, want failed", res.State)
	}
	if !res.Err {
		t.Error("failed result must set the error flag")
	}
	if res.FinalAnswer != "" {
		t.Errorf("no draft existed, got answer %q", res.FinalAnswer)
	}
	if !strings.Contains(res.ErrMsg, "timed out") {
		t.Errorf("errmsg = %q, want timeout message", res.ErrMsg)
	}
}

func TestRunCriticErrorConsumesBudget(t *testing.T) {
	planner := &stubPlanner{planQs: questions(), refineQs: questions()}
	provider := &stubProvider{}
	critic := &stubCritic{err: errors.New("model unavailable")}
	engine := newTestEngine(planner, provider, &stubSummarizer{}, critic, types.WorkflowConfig{MaxRetries: 1})

	res := engine.Run(context.Background(), types.Query{Text: "q"})

	if res.State != string(StateFailed) {
		t.Fatalf("state = %q, want failed", res.State)
	}
	if !strings.Contains(res.ErrMsg, "critique") {
		t.Errorf("errmsg = %q, want critique failure", res.ErrMsg)
	}
	// The draft from the failed attempt is still reported.
	if res.FinalAnswer == "" {
		t.Error("draft produced before the critic failure should be reported")
	}
}

func TestRunDefaultsApplied(t *testing.T) {
	engine := newTestEngine(&stubPlanner{planQs: questions()}, &stubProvider{}, &stubSummarizer{}, &stubCritic{scores: []int{10}}, types.WorkflowConfig{})
	def := types.DefaultWorkflowConfig()
	if engine.cfg.Threshold != def.Threshold {
		t.Errorf("threshold = %d, want default %d", engine.cfg.Threshold, def.Threshold)
	}
	if engine.cfg.MaxRetries != def.MaxRetries {
		t.Errorf("maxRetries = %d, want default %d", engine.cfg.MaxRetries, def.MaxRetries)
	}
	if engine.cfg.Timeout != def.Timeout {
		t.Errorf("timeout = %s, want default %s", engine.cfg.Timeout, def.Timeout)
	}
}
