// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/analysis-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the analysis workflow over HTTP",
	Long: `Serve starts a thin HTTP API around the workflow engine:

  POST /analyze  {"query": "...", "purpose": "..."}  → workflow result
  GET  /health                                       → liveness check`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	engine, cleanup, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	handler := server.New(engine, logger)

	logger.Info("listening", zap.String("addr", cfg.Server.Addr))
	return http.ListenAndServe(cfg.Server.Addr, handler.Routes())
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, \":8000\")")

	rootCmd.AddCommand(serveCmd)
}
