// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one financial question through the analysis workflow",
	Long: `Analyze plans sub-questions for the query, retrieves web evidence for
each concurrently, summarizes and synthesizes the findings, and critiques
the result. Rejected drafts are retried with escalating strategies until
the critic score meets the threshold or the retry budget runs out.`,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query is required: pass --query with a financial question")
	}
	purpose, _ := cmd.Flags().GetString("purpose")
	asJSON, _ := cmd.Flags().GetBool("json")
	asYAML, _ := cmd.Flags().GetBool("yaml")
	verbose, _ := cmd.Flags().GetBool("verbose")

	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		logger = l
		defer logger.Sync()
	}

	engine, cleanup, err := newEngine(pipelineConfig(), logger)
	if err != nil {
		return err
	}
	defer cleanup()

	result := engine.Run(context.Background(), queryFromFlags(query, purpose))

	switch {
	case asJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
	case asYAML:
		data, err := yaml.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshaling result: %w", err)
		}
		os.Stdout.Write(data)
	default:
		printResult(result)
	}

	if result.Err {
		return fmt.Errorf("analysis failed: %s", result.ErrMsg)
	}
	return nil
}

func init() {
	analyzeCmd.Flags().String("query", "", "natural-language financial question")
	analyzeCmd.Flags().String("purpose", "financial analysis", "analysis intent used to steer planning")
	analyzeCmd.Flags().Bool("json", false, "output the full result as JSON")
	analyzeCmd.Flags().Bool("yaml", false, "output the full result as YAML")
	analyzeCmd.Flags().Bool("verbose", false, "log workflow state transitions")

	rootCmd.AddCommand(analyzeCmd)
}
