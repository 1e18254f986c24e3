package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manualkit/manualkit/internal/model"
	appErr "github.com/manualkit/manualkit/internal/pkg/errors"
)

func embeddedChunk(id string, vec ...float32) model.Chunk {
	return model.Chunk{ID: id, Embedding: vec}
}

func TestValidateParams(t *testing.T) {
	require.NoError(t, ValidateParams(1, 0))
	require.NoError(t, ValidateParams(3, 0.6))
	require.NoError(t, ValidateParams(10, 1))

	require.ErrorIs(t, ValidateParams(0, 0.5), appErr.ErrInvalidParams)
	require.ErrorIs(t, ValidateParams(-1, 0.5), appErr.ErrInvalidParams)
	require.ErrorIs(t, ValidateParams(3, -0.1), appErr.ErrInvalidParams)
	require.ErrorIs(t, ValidateParams(3, 1.1), appErr.ErrInvalidParams)
}

func TestSearch_OrdersByScoreDescending(t *testing.T) {
	chunks := []model.Chunk{
		embeddedChunk("far", 0, 1),
		embeddedChunk("near", 1, 0.1),
		embeddedChunk("exact", 1, 0),
	}
	got, err := Search(chunks, []float32{1, 0}, 3, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "exact", got[0].Chunk.ID)
	require.Equal(t, "near", got[1].Chunk.ID)
	require.Equal(t, "far", got[2].Chunk.ID)
	require.InDelta(t, 1.0, got[0].Score, 1e-9)
}

func TestSearch_TieBrokenByChunkIDAscending(t *testing.T) {
	chunks := []model.Chunk{
		embeddedChunk("b", 1, 0),
		embeddedChunk("a", 1, 0),
		embeddedChunk("c", 1, 0),
	}
	got, err := Search(chunks, []float32{1, 0}, 3, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, ids(got))
}

func TestSearch_SkipsChunksWithoutEmbedding(t *testing.T) {
	chunks := []model.Chunk{
		{ID: "pending", Content: "not yet embedded"},
		embeddedChunk("ready", 1, 0),
	}
	got, err := Search(chunks, []float32{1, 0}, 5, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"ready"}, ids(got))
}

func TestSearch_ThresholdFilters(t *testing.T) {
	chunks := []model.Chunk{
		embeddedChunk("aligned", 1, 0),
		embeddedChunk("orthogonal", 0, 1),
	}
	got, err := Search(chunks, []float32{1, 0}, 5, 0.5)
	require.NoError(t, err)
	require.Equal(t, []string{"aligned"}, ids(got))
}

// raising the threshold can only shrink the result set
func TestSearch_ThresholdMonotonicity(t *testing.T) {
	chunks := []model.Chunk{
		embeddedChunk("a", 1, 0),
		embeddedChunk("b", 0.9, 0.4),
		embeddedChunk("c", 0.5, 0.8),
		embeddedChunk("d", 0, 1),
	}
	query := []float32{1, 0}
	prev := len(chunks) + 1
	for _, threshold := range []float64{0, 0.3, 0.6, 0.9, 1} {
		got, err := Search(chunks, query, 10, threshold)
		require.NoError(t, err)
		require.LessOrEqual(t, len(got), prev, "threshold %v grew the result set", threshold)
		prev = len(got)
	}
}

func TestSearch_TruncatesToTopK(t *testing.T) {
	chunks := []model.Chunk{
		embeddedChunk("a", 1, 0),
		embeddedChunk("b", 0.99, 0.01),
		embeddedChunk("c", 0.98, 0.02),
	}
	got, err := Search(chunks, []float32{1, 0}, 2, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestSearch_EmptyResultIsValid(t *testing.T) {
	got, err := Search(nil, []float32{1, 0}, 3, 0.6)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSearch_Deterministic(t *testing.T) {
	chunks := []model.Chunk{
		embeddedChunk("b", 0.7, 0.7),
		embeddedChunk("a", 0.7, 0.7),
		embeddedChunk("z", 1, 0),
	}
	query := []float32{1, 0}
	first, err := Search(chunks, query, 3, 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Search(chunks, query, 3, 0)
		require.NoError(t, err)
		require.Equal(t, ids(first), ids(again))
	}
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	require.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	// mismatched dimensions and zero vectors score zero
	require.Zero(t, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	require.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func ids(chunks []model.ScoredChunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Chunk.ID)
	}
	return out
}
