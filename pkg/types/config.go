package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-call HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "analysis-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the web-search capability.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults caps the snippets returned per sub-question (default 3).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// TavilyAPIKey authenticates against the Tavily search API.
	TavilyAPIKey string `json:"tavily_api_key,omitempty" yaml:"tavily_api_key,omitempty"`

	// Depth selects Tavily's search depth: basic or advanced.
	Depth string `json:"depth,omitempty" yaml:"depth,omitempty"`
}

// AIConfig holds settings for the text-generation capability.
type AIConfig struct {
	// Model is the model identifier (e.g. "llama-3.3-70b-versatile").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the generation API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Temperature controls sampling randomness (default 0.1).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Timeout is the per-call request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// WorkflowConfig holds the orchestration knobs for one analysis run.
type WorkflowConfig struct {
	// Threshold is the minimum critic score that accepts a draft (default 5).
	Threshold int `json:"threshold" yaml:"threshold"`

	// MaxRetries bounds the number of retry cycles after the first
	// attempt (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// SubQuestions is the number of sub-questions per attempt (fixed at 3).
	SubQuestions int `json:"sub_questions" yaml:"sub_questions"`

	// ResultsPerQuestion caps evidence snippets per sub-question (default 3).
	ResultsPerQuestion int `json:"results_per_question" yaml:"results_per_question"`

	// Timeout is the overall wall-clock budget spanning all attempts
	// (default 300s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// CacheConfig holds settings for the evidence snippet cache.
type CacheConfig struct {
	// Enabled turns the SQLite snippet cache on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir is the directory holding the cache database (default "cache/").
	Dir string `json:"dir" yaml:"dir"`

	// TTL is how long cached snippets stay fresh (default 1h). Financial
	// evidence goes stale quickly; keep this short.
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// ServerConfig holds settings for the HTTP API layer.
type ServerConfig struct {
	// Addr is the listen address (default ":8000").
	Addr string `json:"addr" yaml:"addr"`
}

// PipelineConfig groups all stage configurations for the engine.
type PipelineConfig struct {
	Search   SearchConfig   `json:"search" yaml:"search"`
	AI       AIConfig       `json:"ai" yaml:"ai"`
	Workflow WorkflowConfig `json:"workflow" yaml:"workflow"`
	Cache    CacheConfig    `json:"cache" yaml:"cache"`
	Server   ServerConfig   `json:"server" yaml:"server"`
}

// DefaultWorkflowConfig returns the standard orchestration knobs: critic
// threshold 5, five retries, three sub-questions with three snippets each,
// and a 300-second overall budget.
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		Threshold:          5,
		MaxRetries:         5,
		SubQuestions:       3,
		ResultsPerQuestion: 3,
		Timeout:            300 * time.Second,
	}
}
