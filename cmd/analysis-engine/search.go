// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/analysis-engine/internal/websearch"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Query the web-search provider directly",
	Long: `Search runs one raw query against the configured search provider and
prints the ranked snippets. Useful for checking provider credentials and
inspecting the evidence the retrieval stage would see.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query is required: pass --query")
	}
	limit, _ := cmd.Flags().GetInt("max-results")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg := pipelineConfig()
	provider := websearch.NewTavily(cfg.Search)

	results, err := provider.Search(context.Background(), query, limit)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%d. %s\n   %s\n   %s\n", r.Rank, r.Title, r.URL, truncate(r.Snippet, 200))
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	searchCmd.Flags().String("query", "", "search query text")
	searchCmd.Flags().Int("max-results", 3, "maximum number of results to return")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}
