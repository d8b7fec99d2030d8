// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow implements the analysis orchestration engine: an
// explicit finite-state machine that sequences planning, concurrent
// retrieval, summarization, synthesis, and critique, and retries with
// escalating strategies until the quality threshold is met or the retry
// budget runs out.
//
// See docs/ARCHITECTURE.md § Workflow Engine.
package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/analysis-engine/internal/strategy"
	"github.com/pdiddy/analysis-engine/internal/websearch"
	"github.com/pdiddy/analysis-engine/pkg/types"
)

// State names a workflow state. The terminal states are StateAccepted,
// StateExhausted, and StateFailed.
type State string

const (
	StatePlanning     State = "planning"
	StateRetrieving   State = "retrieving"
	StateSummarizing  State = "summarizing"
	StateSynthesizing State = "synthesizing"
	StateCritiquing   State = "critiquing"
	StateRetrying     State = "retrying"
	StateAccepted     State = "accepted"
	StateExhausted    State = "exhausted"
	StateFailed       State = "failed"
)

// Planner generates and refines sub-questions.
type Planner interface {
	Plan(ctx context.Context, query, purpose string) ([]string, error)
	Refine(ctx context.Context, query, feedback string) ([]string, error)
}

// Summarizer reduces retrievals into sub-summaries, in retrieval order.
type Summarizer interface {
	SummarizeAll(ctx context.Context, retrievals []types.Retrieval) ([]types.SubSummary, error)
}

// Synthesizer combines sub-summaries into one draft answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, summaries []types.SubSummary) (string, error)
}

// Critic scores a draft against the original query.
type Critic interface {
	Review(ctx context.Context, query, draft string) (types.CriticVerdict, error)
}

// Engine runs the analysis workflow. All collaborators sit behind narrow
// interfaces so the orchestration logic is testable with stubs.
type Engine struct {
	planner     Planner
	provider    websearch.Provider
	summarizer  Summarizer
	synthesizer Synthesizer
	critic      Critic
	cfg         types.WorkflowConfig
	logger      *zap.Logger
}

// New constructs an Engine. Zero-valued config fields take the defaults
// from types.DefaultWorkflowConfig; a nil logger disables logging.
func New(p Planner, prov websearch.Provider, sum Summarizer, syn Synthesizer, c Critic, cfg types.WorkflowConfig, logger *zap.Logger) *Engine {
	def := types.DefaultWorkflowConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.SubQuestions <= 0 {
		cfg.SubQuestions = def.SubQuestions
	}
	if cfg.ResultsPerQuestion <= 0 {
		cfg.ResultsPerQuestion = def.ResultsPerQuestion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		planner:     p,
		provider:    prov,
		summarizer:  sum,
		synthesizer: syn,
		critic:      c,
		cfg:         cfg,
		logger:      logger,
	}
}

// attempt is the immutable record of one full pipeline pass. Each pass
// builds a fresh record; artifacts are superseded wholesale, never merged
// across passes.
type attempt struct {
	number       int
	subQuestions []string
	retrievals   []types.Retrieval
	summaries    []types.SubSummary
	draft        string
	verdict      types.CriticVerdict
}

// Run executes the workflow for one query and always returns a structured
// result; failures surface through the result's error fields, never as a
// panic or a bare error. The configured timeout spans all attempts and
// cancels in-flight retrieval and generation work when it fires.
func (e *Engine) Run(ctx context.Context, q types.Query) types.WorkflowResult {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	timings := types.StageTimings{}
	retryCount := 0
	passes := 0

	var subQuestions []string
	var last attempt

	for {
		passes++
		cur := attempt{number: passes}

		// Planning runs once up front; a planning failure leaves the
		// sub-questions empty so a retry pass re-plans here.
		if len(subQuestions) == 0 {
			e.transition(StatePlanning, passes)
			start := time.Now()
			qs, err := e.planner.Plan(ctx, q.Text, q.Purpose)
			timings[types.StagePlanning] = time.Since(start)
			if err != nil {
				if res, done := e.onAttemptFailure(ctx, q, fmt.Errorf("planning: %w", err), &retryCount, &subQuestions, last, timings, passes); done {
					return res
				}
				continue
			}
			subQuestions = qs
		}
		cur.subQuestions = subQuestions

		e.transition(StateRetrieving, passes)
		start := time.Now()
		cur.retrievals = websearch.RetrieveAll(ctx, e.provider, cur.subQuestions, e.cfg.ResultsPerQuestion)
		timings[types.StageRetrieval] = time.Since(start)
		if websearch.AllFailed(cur.retrievals) {
			err := fmt.Errorf("retrieval: all %d sub-question searches failed", len(cur.retrievals))
			if res, done := e.onAttemptFailure(ctx, q, err, &retryCount, &subQuestions, last, timings, passes); done {
				return res
			}
			continue
		}

		e.transition(StateSummarizing, passes)
		start = time.Now()
		summaries, err := e.summarizer.SummarizeAll(ctx, cur.retrievals)
		timings[types.StageSummarization] = time.Since(start)
		if err != nil {
			if res, done := e.onAttemptFailure(ctx, q, fmt.Errorf("summarization: %w", err), &retryCount, &subQuestions, last, timings, passes); done {
				return res
			}
			continue
		}
		cur.summaries = summaries

		e.transition(StateSynthesizing, passes)
		start = time.Now()
		draft, err := e.synthesizer.Synthesize(ctx, q.Text, cur.summaries)
		timings[types.StageSynthesis] = time.Since(start)
		if err != nil {
			if res, done := e.onAttemptFailure(ctx, q, fmt.Errorf("synthesis: %w", err), &retryCount, &subQuestions, last, timings, passes); done {
				return res
			}
			continue
		}
		cur.draft = draft

		e.transition(StateCritiquing, passes)
		start = time.Now()
		verdict, err := e.critic.Review(ctx, q.Text, cur.draft)
		timings[types.StageCritic] = time.Since(start)
		if err != nil {
			last = cur
			if res, done := e.onAttemptFailure(ctx, q, fmt.Errorf("critique: %w", err), &retryCount, &subQuestions, last, timings, passes); done {
				return res
			}
			continue
		}
		cur.verdict = verdict
		last = cur

		e.logger.Info("critic verdict",
			zap.Int("attempt", passes),
			zap.Int("score", verdict.Score),
			zap.Int("threshold", e.cfg.Threshold))

		if verdict.Score >= e.cfg.Threshold {
			e.transition(StateAccepted, passes)
			return e.result(StateAccepted, last, timings, passes, retryCount, false, "")
		}

		if retryCount >= e.cfg.MaxRetries {
			e.transition(StateExhausted, passes)
			return e.result(StateExhausted, last, timings, passes, retryCount, true, "")
		}

		retryCount++
		e.transition(StateRetrying, passes)
		prepStart := time.Now()
		subQuestions = e.mutate(ctx, q, retryCount, subQuestions, last.verdict.Feedback)
		timings[fmt.Sprintf("retry_%d", retryCount)] = time.Since(prepStart)

		if err := ctx.Err(); err != nil {
			return e.timeoutResult(last, timings, passes, retryCount)
		}
	}
}

// mutate applies the retry strategy for the given retry ordinal. Tier 1
// regenerates the sub-questions with the critic's feedback; a failed
// regeneration keeps the current sub-questions rather than aborting the
// retry. Tiers 2 and 3 are deterministic rewrites.
func (e *Engine) mutate(ctx context.Context, q types.Query, retryNumber int, subQuestions []string, feedback string) []string {
	tier := strategy.SelectTier(retryNumber)
	e.logger.Info("retry strategy",
		zap.Int("retry", retryNumber),
		zap.String("tier", tier.String()))

	switch tier {
	case strategy.TierRefine:
		refined, err := e.planner.Refine(ctx, q.Text, feedback)
		if err != nil {
			e.logger.Warn("refinement failed, keeping sub-questions", zap.Error(err))
			return subQuestions
		}
		return refined
	case strategy.TierSynonyms:
		return strategy.RewriteTerms(subQuestions)
	default:
		return strategy.Broaden(q.Text)
	}
}

// onAttemptFailure handles a stage-fatal error. A timeout or a spent retry
// budget terminates the workflow; otherwise the failure consumes one retry
// and the loop continues. The returned bool reports whether the caller
// must return the result.
func (e *Engine) onAttemptFailure(ctx context.Context, q types.Query, err error, retryCount *int, subQuestions *[]string, last attempt, timings types.StageTimings, passes int) (types.WorkflowResult, bool) {
	e.logger.Warn("attempt failed",
		zap.Int("attempt", passes),
		zap.Error(err))

	if ctx.Err() != nil {
		return e.timeoutResult(last, timings, passes, *retryCount), true
	}

	if *retryCount >= e.cfg.MaxRetries {
		e.transition(StateFailed, passes)
		return e.result(StateFailed, last, timings, passes, *retryCount, false, err.Error()), true
	}

	*retryCount++
	e.transition(StateRetrying, passes)
	prepStart := time.Now()
	*subQuestions = e.mutate(ctx, q, *retryCount, *subQuestions, last.verdict.Feedback)
	timings[fmt.Sprintf("retry_%d", *retryCount)] = time.Since(prepStart)
	return types.WorkflowResult{}, false
}

// timeoutResult builds the terminal result when the overall budget has
// elapsed: exhausted with partial data when a draft exists, failed when no
// draft was ever produced.
func (e *Engine) timeoutResult(last attempt, timings types.StageTimings, passes, retryCount int) types.WorkflowResult {
	msg := fmt.Sprintf("analysis timed out after %s", e.cfg.Timeout)
	if last.draft != "" {
		e.transition(StateExhausted, passes)
		return e.result(StateExhausted, last, timings, passes, retryCount, true, msg)
	}
	e.transition(StateFailed, passes)
	return e.result(StateFailed, last, timings, passes, retryCount, false, msg)
}

// result assembles the terminal WorkflowResult from the final attempt.
func (e *Engine) result(s State, last attempt, timings types.StageTimings, passes, retryCount int, exhausted bool, errMsg string) types.WorkflowResult {
	res := types.WorkflowResult{
		FinalAnswer:    last.draft,
		CriticScore:    last.verdict.Score,
		CriticFeedback: last.verdict.Feedback,
		Attempts:       passes,
		Retries:        retryCount,
		Timings:        timings,
		State:          string(s),
		Exhausted:      exhausted,
	}
	if s == StateFailed {
		res.Err = true
		res.ErrMsg = errMsg
		if res.ErrMsg == "" {
			res.ErrMsg = "analysis failed"
		}
	} else if errMsg != "" {
		res.ErrMsg = errMsg
	}
	return res
}

// transition logs a state change.
func (e *Engine) transition(s State, attemptNum int) {
	e.logger.Info("workflow state",
		zap.String("state", string(s)),
		zap.Int("attempt", attemptNum))
}
