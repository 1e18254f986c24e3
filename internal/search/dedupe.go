package search

import (
	"strings"

	"github.com/manualkit/manualkit/internal/model"
)

// Dedupe drops chunks whose content is a near-duplicate of a higher-ranked
// kept chunk. Overlapping chunk windows from the same procedure otherwise
// surface the same passage twice. The input must already be rank-ordered;
// running Dedupe on an already deduplicated slice is a no-op.
func Dedupe(chunks []model.ScoredChunk, overlapThreshold float64) []model.ScoredChunk {
	if len(chunks) <= 1 {
		return chunks
	}
	kept := make([]model.ScoredChunk, 0, len(chunks))
	keptTokens := make([]map[string]struct{}, 0, len(chunks))
	for _, sc := range chunks {
		tokens := tokenSet(sc.Chunk.Content)
		dup := false
		for _, prev := range keptTokens {
			if tokenOverlap(tokens, prev) >= overlapThreshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, sc)
		keptTokens = append(keptTokens, tokens)
	}
	return kept
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?()[]\"'")
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}

// tokenOverlap is the shared-token fraction relative to the smaller set, so a
// short chunk fully contained in a longer one still counts as a duplicate.
func tokenOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	shared := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}
