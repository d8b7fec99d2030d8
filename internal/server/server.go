// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the workflow engine over a thin HTTP boundary:
// request decoding, response encoding, and nothing else. All control flow
// lives in the workflow package.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/analysis-engine/pkg/types"
)

// Runner runs one analysis. Satisfied by *workflow.Engine.
type Runner interface {
	Run(ctx context.Context, q types.Query) types.WorkflowResult
}

// Handler serves the analysis API.
type Handler struct {
	engine Runner
	logger *zap.Logger
}

// New constructs a Handler. A nil logger disables logging.
func New(engine Runner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, logger: logger}
}

// Routes returns the API mux: POST /analyze and GET /health.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", h.handleAnalyze)
	mux.HandleFunc("/health", h.handleHealth)
	return mux
}

// analyzeRequest is the POST /analyze request body.
type analyzeRequest struct {
	Query   string `json:"query"`
	Purpose string `json:"purpose"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("analyze decode error", zap.Error(err))
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "query cannot be empty", http.StatusBadRequest)
		return
	}

	h.logger.Info("analysis request", zap.String("query", req.Query))

	result := h.engine.Run(r.Context(), types.Query{Text: req.Query, Purpose: req.Purpose})

	h.logger.Info("analysis complete",
		zap.Int("score", result.CriticScore),
		zap.Int("attempts", result.Attempts),
		zap.String("state", result.State))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("analyze encode error", zap.Error(err))
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "analysis-engine",
	})
}
