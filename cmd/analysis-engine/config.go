// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/analysis-engine/internal/critic"
	"github.com/pdiddy/analysis-engine/internal/evidence"
	"github.com/pdiddy/analysis-engine/internal/llm"
	"github.com/pdiddy/analysis-engine/internal/plan"
	"github.com/pdiddy/analysis-engine/internal/summarize"
	"github.com/pdiddy/analysis-engine/internal/synthesize"
	"github.com/pdiddy/analysis-engine/internal/websearch"
	"github.com/pdiddy/analysis-engine/internal/workflow"
	"github.com/pdiddy/analysis-engine/pkg/types"
)

// setConfigDefaults registers viper defaults for every pipeline knob.
func setConfigDefaults() {
	viper.SetDefault("ai.model", "llama-3.3-70b-versatile")
	viper.SetDefault("ai.temperature", 0.1)
	viper.SetDefault("ai.max_retries", 3)
	viper.SetDefault("ai.timeout", 60*time.Second)

	viper.SetDefault("search.timeout", 10*time.Second)
	viper.SetDefault("search.user_agent", "analysis-engine/0.1")
	viper.SetDefault("search.max_results", 3)
	viper.SetDefault("search.depth", "basic")

	viper.SetDefault("workflow.threshold", 5)
	viper.SetDefault("workflow.max_retries", 5)
	viper.SetDefault("workflow.sub_questions", 3)
	viper.SetDefault("workflow.results_per_question", 3)
	viper.SetDefault("workflow.timeout", 300*time.Second)

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.dir", "cache")
	viper.SetDefault("cache.ttl", time.Hour)

	viper.SetDefault("server.addr", ":8000")
}

// pipelineConfig assembles the full configuration from viper and the
// secrets directory.
func pipelineConfig() types.PipelineConfig {
	cfg := types.PipelineConfig{
		AI: types.AIConfig{
			Model:       viper.GetString("ai.model"),
			APIKey:      secretDefault("groq-api-key", viper.GetString("ai.api_key")),
			Temperature: viper.GetFloat64("ai.temperature"),
			MaxRetries:  viper.GetInt("ai.max_retries"),
			Timeout:     viper.GetDuration("ai.timeout"),
		},
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("search.timeout"),
				UserAgent: viper.GetString("search.user_agent"),
			},
			MaxResults:   viper.GetInt("search.max_results"),
			TavilyAPIKey: secretDefault("tavily-api-key", viper.GetString("search.tavily_api_key")),
			Depth:        viper.GetString("search.depth"),
		},
		Workflow: types.WorkflowConfig{
			Threshold:          viper.GetInt("workflow.threshold"),
			MaxRetries:         viper.GetInt("workflow.max_retries"),
			SubQuestions:       viper.GetInt("workflow.sub_questions"),
			ResultsPerQuestion: viper.GetInt("workflow.results_per_question"),
			Timeout:            viper.GetDuration("workflow.timeout"),
		},
		Cache: types.CacheConfig{
			Enabled: viper.GetBool("cache.enabled"),
			Dir:     viper.GetString("cache.dir"),
			TTL:     viper.GetDuration("cache.ttl"),
		},
		Server: types.ServerConfig{
			Addr: viper.GetString("server.addr"),
		},
	}
	return cfg
}

// newEngine wires the pipeline stages into a workflow engine. The returned
// cleanup func closes the evidence cache when one was opened.
func newEngine(cfg types.PipelineConfig, logger *zap.Logger) (*workflow.Engine, func(), error) {
	gen := llm.Retrying{
		G:          llm.NewGroqBackend(cfg.AI),
		MaxRetries: cfg.AI.MaxRetries,
	}

	var provider websearch.Provider = websearch.NewTavily(cfg.Search)
	cleanup := func() {}

	if cfg.Cache.Enabled {
		store, err := evidence.NewStore(cfg.Cache)
		if err != nil {
			return nil, nil, err
		}
		provider = evidence.NewCachedProvider(provider, store)
		cleanup = func() { store.Close() }
	}

	engine := workflow.New(
		plan.New(gen),
		provider,
		summarize.New(gen),
		synthesize.New(gen),
		critic.New(gen),
		cfg.Workflow,
		logger,
	)
	return engine, cleanup, nil
}
