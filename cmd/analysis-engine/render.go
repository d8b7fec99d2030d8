// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/analysis-engine/pkg/types"
)

// printResult writes a human-readable rendering of the workflow result.
func printResult(r types.WorkflowResult) {
	fmt.Println(r.FinalAnswer)
	fmt.Println()
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("state: %s  score: %d/10  attempts: %d  retries: %d\n",
		r.State, r.CriticScore, r.Attempts, r.Retries)

	if len(r.Timings) > 0 {
		keys := make([]string, 0, len(r.Timings))
		for k := range r.Timings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s %.2fs", k, r.Timings[k].Seconds()))
		}
		fmt.Println("timings:", strings.Join(parts, ", "))
	}

	if r.Exhausted {
		fmt.Println("note: retry budget exhausted before the quality threshold was met")
	}
	if r.Err {
		fmt.Println("error:", r.ErrMsg)
	}
}

// queryFromFlags builds the workflow input.
func queryFromFlags(text, purpose string) types.Query {
	return types.Query{Text: text, Purpose: purpose}
}
