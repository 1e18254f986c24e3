package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{1, 2, 3}, nil
}

func (c *countingEmbedder) ModelName() string {
	return "counting"
}

func TestWrapLRU_CachesByTextAndTaskType(t *testing.T) {
	inner := &countingEmbedder{}
	e := WrapLRU(inner, 16, time.Minute)
	ctx := context.Background()

	first, err := e.Embed(ctx, "oil level", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "oil level", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls)

	// task type is part of the key
	_, err = e.Embed(ctx, "oil level", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)

	_, err = e.Embed(ctx, "chain tension", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, 3, inner.calls)
}

func TestWrapLRU_CachedVectorIsIsolated(t *testing.T) {
	e := WrapLRU(&countingEmbedder{}, 16, time.Minute)
	ctx := context.Background()

	first, err := e.Embed(ctx, "oil level", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	first[0] = 99

	second, err := e.Embed(ctx, "oil level", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, float32(1), second[0], "caller mutation must not poison the cache")
}

func TestWrapLRU_ErrorsNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("quota")}
	e := WrapLRU(inner, 16, time.Minute)
	ctx := context.Background()

	_, err := e.Embed(ctx, "oil level", "RETRIEVAL_QUERY")
	require.Error(t, err)

	inner.err = nil
	_, err = e.Embed(ctx, "oil level", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestWrapLRU_DisabledPassesThrough(t *testing.T) {
	inner := &countingEmbedder{}
	require.Equal(t, inner, WrapLRU(inner, 0, time.Minute))
	require.Equal(t, inner, WrapLRU(inner, 16, 0))
	require.Nil(t, WrapLRU(nil, 16, time.Minute))
}
