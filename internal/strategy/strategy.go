// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package strategy decides how retry attempts mutate the next retrieval
// cycle. Tier selection is a pure function of the attempt number; the
// mutations themselves are deterministic transformations of the current
// sub-questions or the original query.
//
// See docs/ARCHITECTURE.md § Retry Strategy.
package strategy

// Tier identifies a retry-mutation policy bucket.
type Tier int

const (
	// TierRefine regenerates the sub-questions with more specificity,
	// folding in the critic's feedback. Attempts 1-3.
	TierRefine Tier = iota + 1

	// TierSynonyms keeps the sub-questions but rewrites search terms
	// with financial-domain synonyms. Attempts 4-6.
	TierSynonyms

	// TierBroaden drops specificity and searches for general company or
	// topic information. Attempts 7 and up.
	TierBroaden
)

// String names the tier for logs.
func (t Tier) String() string {
	switch t {
	case TierRefine:
		return "refine"
	case TierSynonyms:
		return "synonyms"
	case TierBroaden:
		return "broaden"
	default:
		return "unknown"
	}
}

// SelectTier maps a retry attempt number to its mutation tier. Pure and
// deterministic: the same attempt always yields the same tier. With the
// default budget of 5 retries only TierRefine and TierSynonyms are
// reachable, but the full tiering stands so a raised budget escalates
// correctly.
func SelectTier(attempt int) Tier {
	switch {
	case attempt <= 3:
		return TierRefine
	case attempt <= 6:
		return TierSynonyms
	default:
		return TierBroaden
	}
}

// termEnhancements are the financial-domain synonym suffixes appended per
// sub-question index by the synonyms tier.
var termEnhancements = []string{
	" financial results earnings revenue",
	" stock performance market cap valuation",
	" quarterly report Q1 Q2 Q3 Q4 annual",
}

// RewriteTerms returns the sub-questions with domain synonym terms
// appended, one enhancement per position. Questions beyond the
// enhancement list get a generic recency suffix.
func RewriteTerms(questions []string) []string {
	rewritten := make([]string, len(questions))
	for i, q := range questions {
		if i < len(termEnhancements) {
			rewritten[i] = q + termEnhancements[i]
		} else {
			rewritten[i] = q + " latest news update"
		}
	}
	return rewritten
}

// Broaden replaces the sub-questions with three general queries derived
// from the original question, dropping all specificity constraints.
func Broaden(query string) []string {
	return []string{
		query + " news recent developments",
		query + " financial performance overview",
		query + " market analysis investor sentiment",
	}
}
