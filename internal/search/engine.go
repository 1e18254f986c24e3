// Package search implements cosine similarity ranking over an embedded chunk
// snapshot. The scan is pure: no side effects, deterministic ordering.
package search

import (
	"fmt"
	"math"
	"sort"

	"github.com/manualkit/manualkit/internal/model"
	appErr "github.com/manualkit/manualkit/internal/pkg/errors"
)

// ValidateParams rejects malformed search parameters before any work is done.
func ValidateParams(topK int, threshold float64) error {
	if topK < 1 {
		return fmt.Errorf("%w: top_k must be >= 1, got %d", appErr.ErrInvalidParams, topK)
	}
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("%w: similarity_threshold must be in [0,1], got %v", appErr.ErrInvalidParams, threshold)
	}
	return nil
}

// Search scores every chunk that carries an embedding against queryVec and
// returns up to topK chunks with score >= threshold, ordered by score
// descending, ties broken by chunk id ascending. Chunks without an embedding
// are skipped: partial coverage is policy, not an error. An empty result is a
// valid outcome and distinct from an embedding failure, which callers must
// surface before ever reaching this function.
func Search(chunks []model.Chunk, queryVec []float32, topK int, threshold float64) ([]model.ScoredChunk, error) {
	if err := ValidateParams(topK, threshold); err != nil {
		return nil, err
	}
	matches := make([]model.ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if !chunk.HasEmbedding() {
			continue
		}
		score := CosineSimilarity(queryVec, chunk.Embedding)
		if score >= threshold {
			matches = append(matches, model.ScoredChunk{Chunk: chunk, Score: score})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Chunk.ID < matches[j].Chunk.ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
