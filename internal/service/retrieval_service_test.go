package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/manualkit/manualkit/internal/model"
	appErr "github.com/manualkit/manualkit/internal/pkg/errors"
)

type fakeChunkSource struct {
	chunks []model.Chunk
	err    error
}

func (f *fakeChunkSource) ListEmbedded(ctx context.Context) ([]model.Chunk, error) {
	return f.chunks, f.err
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return f.vec, f.err
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embedder"
}

type fakeImageSearcher struct {
	images []model.ScoredImage
	err    error
}

func (f *fakeImageSearcher) Search(ctx context.Context, query string, limit int) ([]model.ScoredImage, error) {
	return f.images, f.err
}

func testChunk(id string, safety int, vec ...float32) model.Chunk {
	return model.Chunk{
		ID:          id,
		Content:     "content of " + id,
		Source:      "manual.pdf",
		PageNumber:  1,
		SafetyLevel: safety,
		Embedding:   vec,
	}
}

func newTestRetriever(chunks ChunkSource, embedder *fakeEmbedder, images ImageSearcher) *RetrievalService {
	return NewRetrievalService(chunks, embedder, images,
		RetrievalOptions{TopK: 3, Threshold: 0.6, MaxImages: 3}, 0.9, time.Second)
}

func TestRetrieve_ReturnsRankedChunks(t *testing.T) {
	source := &fakeChunkSource{chunks: []model.Chunk{
		testChunk("close", 1, 1, 0),
		testChunk("far", 1, 0, 1),
	}}
	svc := newTestRetriever(source, &fakeEmbedder{vec: []float32{1, 0}}, nil)

	result, err := svc.Retrieve(context.Background(), "oil level", RetrievalOptions{})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	require.Equal(t, "close", result.Chunks[0].Chunk.ID)
	require.False(t, result.FallbackEligible)
}

func TestRetrieve_InvalidParamsBeforeAnyIO(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("must not be called")}
	svc := newTestRetriever(&fakeChunkSource{err: errors.New("must not be called")}, embedder, nil)

	_, err := svc.Retrieve(context.Background(), "oil", RetrievalOptions{TopK: -1})
	require.ErrorIs(t, err, appErr.ErrInvalidParams)

	_, err = svc.Retrieve(context.Background(), "oil", RetrievalOptions{Threshold: 1.5})
	require.ErrorIs(t, err, appErr.ErrInvalidParams)

	_, err = svc.Retrieve(context.Background(), "", RetrievalOptions{})
	require.ErrorIs(t, err, appErr.ErrInvalidParams)
}

func TestRetrieve_EmbedFailureSurfaced(t *testing.T) {
	svc := newTestRetriever(&fakeChunkSource{}, &fakeEmbedder{err: errors.New("quota exceeded")}, nil)
	_, err := svc.Retrieve(context.Background(), "oil level", RetrievalOptions{})
	require.ErrorIs(t, err, appErr.ErrEmbeddingUnavailable)
}

func TestRetrieve_StoreFailureSurfaced(t *testing.T) {
	source := &fakeChunkSource{err: errors.New("connection refused")}
	svc := newTestRetriever(source, &fakeEmbedder{vec: []float32{1, 0}}, nil)
	_, err := svc.Retrieve(context.Background(), "oil level", RetrievalOptions{})
	require.ErrorIs(t, err, appErr.ErrStoreUnavailable)
}

func TestRetrieve_NoMatchesIsValidResult(t *testing.T) {
	source := &fakeChunkSource{chunks: []model.Chunk{testChunk("far", 1, 0, 1)}}
	svc := newTestRetriever(source, &fakeEmbedder{vec: []float32{1, 0}}, nil)

	result, err := svc.Retrieve(context.Background(), "oil level", RetrievalOptions{})
	require.NoError(t, err)
	require.Empty(t, result.Chunks)
	require.True(t, result.FallbackEligible)
}

func TestRetrieve_ExplicitZeroThresholdHonored(t *testing.T) {
	source := &fakeChunkSource{chunks: []model.Chunk{testChunk("far", 1, 0, 1)}}
	svc := newTestRetriever(source, &fakeEmbedder{vec: []float32{1, 0}}, nil)

	// omitted threshold falls back to the configured default
	result, err := svc.Retrieve(context.Background(), "oil level", RetrievalOptions{})
	require.NoError(t, err)
	require.Empty(t, result.Chunks)

	// an explicit zero keeps every scored chunk
	result, err = svc.Retrieve(context.Background(), "oil level",
		RetrievalOptions{Threshold: 0, ThresholdSet: true})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	require.Equal(t, "far", result.Chunks[0].Chunk.ID)
}

func TestRetrieve_ImageFailureDegradesToTextOnly(t *testing.T) {
	source := &fakeChunkSource{chunks: []model.Chunk{testChunk("close", 1, 1, 0)}}
	images := &fakeImageSearcher{err: errors.New("index corrupt")}
	svc := newTestRetriever(source, &fakeEmbedder{vec: []float32{1, 0}}, images)

	result, err := svc.Retrieve(context.Background(), "oil level", RetrievalOptions{})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	require.Empty(t, result.Images)
}

func TestRetrieve_IncludesImages(t *testing.T) {
	source := &fakeChunkSource{chunks: []model.Chunk{testChunk("close", 1, 1, 0)}}
	images := &fakeImageSearcher{images: []model.ScoredImage{
		{Image: model.ImageRecord{ID: "img-1"}, Relevance: 2},
	}}
	svc := newTestRetriever(source, &fakeEmbedder{vec: []float32{1, 0}}, images)

	result, err := svc.Retrieve(context.Background(), "oil level", RetrievalOptions{})
	require.NoError(t, err)
	require.Len(t, result.Images, 1)
	require.Equal(t, "img-1", result.Images[0].Image.ID)
}

func TestRetrieve_SafetyLevelIsMaxOfChunks(t *testing.T) {
	source := &fakeChunkSource{chunks: []model.Chunk{
		testChunk("info", 1, 1, 0),
		testChunk("high", 3, 0.99, 0.05),
	}}
	svc := newTestRetriever(source, &fakeEmbedder{vec: []float32{1, 0}}, nil)

	result, err := svc.Retrieve(context.Background(), "brake bleeding", RetrievalOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, result.SafetyLevel)
}

func TestRetrieve_DedupesOverlappingChunks(t *testing.T) {
	a := testChunk("a", 1, 1, 0)
	a.Content = "check the oil level with the engine warm"
	b := testChunk("b", 1, 0.99, 0.05)
	b.Content = "check the oil level with the engine warm"
	svc := newTestRetriever(&fakeChunkSource{chunks: []model.Chunk{a, b}},
		&fakeEmbedder{vec: []float32{1, 0}}, nil)

	result, err := svc.Retrieve(context.Background(), "oil level", RetrievalOptions{})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	require.Equal(t, "a", result.Chunks[0].Chunk.ID)
}
