// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/analysis-engine/pkg/types"
)

// groqAPIURL is the Groq chat completions endpoint (OpenAI-compatible).
// Package-level var for test substitution.
var groqAPIURL = "https://api.groq.com/openai/v1/chat/completions"

// GroqBackend calls the Groq chat completions API.
type GroqBackend struct {
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	Client      *http.Client
}

// NewGroqBackend constructs a Groq generator from AI settings.
func NewGroqBackend(cfg types.AIConfig) *GroqBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GroqBackend{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     timeout,
	}
}

// chatRequest is the request body for the chat completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

// chatMessage is a single message in the conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response body from the chat completions API.
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// chatChoice is one completion candidate.
type chatChoice struct {
	Message chatMessage `json:"message"`
}

// Generate sends one chat completion request. The role becomes the system
// message; the prompt becomes the user message. Each call carries its own
// timeout so a stalled upstream cannot hold the workflow open.
func (g *GroqBackend) Generate(ctx context.Context, role, prompt string) (string, error) {
	if g.APIKey == "" {
		return "", fmt.Errorf("groq API key is missing")
	}

	var messages []chatMessage
	if role != "" {
		messages = append(messages, chatMessage{Role: "system", Content: role})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	reqBody := chatRequest{
		Model:       g.Model,
		Temperature: g.Temperature,
		Messages:    messages,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, groqAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.APIKey)

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Groq API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Groq API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Groq response: %w", err)
	}

	if len(cResp.Choices) == 0 {
		return "", fmt.Errorf("Groq API returned no choices")
	}

	return cResp.Choices[0].Message.Content, nil
}
