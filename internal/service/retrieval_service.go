package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/manualkit/manualkit/internal/ai"
	"github.com/manualkit/manualkit/internal/model"
	appErr "github.com/manualkit/manualkit/internal/pkg/errors"
	"github.com/manualkit/manualkit/internal/safety"
	"github.com/manualkit/manualkit/internal/search"
)

// ChunkSource yields every chunk eligible for similarity scoring.
type ChunkSource interface {
	ListEmbedded(ctx context.Context) ([]model.Chunk, error)
}

// ImageSearcher ranks stored images against a text query.
type ImageSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]model.ScoredImage, error)
}

type RetrievalOptions struct {
	TopK      int
	Threshold float64
	// ThresholdSet marks Threshold as explicit, so a caller can request a
	// threshold of exactly 0 instead of the configured default.
	ThresholdSet bool
	MaxImages    int
}

type RetrievalService struct {
	chunks       ChunkSource
	embedder     ai.IEmbedder
	images       ImageSearcher
	defaults     RetrievalOptions
	dedupOverlap float64
	embedTimeout time.Duration
}

func NewRetrievalService(chunks ChunkSource, embedder ai.IEmbedder, images ImageSearcher,
	defaults RetrievalOptions, dedupOverlap float64, embedTimeout time.Duration) *RetrievalService {
	return &RetrievalService{
		chunks:       chunks,
		embedder:     embedder,
		images:       images,
		defaults:     defaults,
		dedupOverlap: dedupOverlap,
		embedTimeout: embedTimeout,
	}
}

func (s *RetrievalService) fill(opts RetrievalOptions) RetrievalOptions {
	if opts.TopK == 0 {
		opts.TopK = s.defaults.TopK
	}
	if opts.Threshold == 0 && !opts.ThresholdSet {
		opts.Threshold = s.defaults.Threshold
	}
	opts.ThresholdSet = true
	if opts.MaxImages == 0 {
		opts.MaxImages = s.defaults.MaxImages
	}
	return opts
}

// Retrieve embeds the query, scores it against every embedded chunk and
// collects related images. Image lookup failures degrade to a text-only
// result instead of failing the query.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, opts RetrievalOptions) (*model.QueryResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("query", query))
	opts = s.fill(opts)
	if err := search.ValidateParams(opts.TopK, opts.Threshold); err != nil {
		return nil, err
	}
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", appErr.ErrInvalidParams)
	}

	// image search runs alongside the embed+score path
	imageCh := make(chan []model.ScoredImage, 1)
	if s.images != nil && opts.MaxImages > 0 {
		go func() {
			images, err := s.images.Search(ctx, query, opts.MaxImages)
			if err != nil {
				logger.Warn("image search failed, continuing without images", zap.Error(err))
				imageCh <- nil
				return
			}
			imageCh <- images
		}()
	} else {
		imageCh <- nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()
	queryVec, err := s.embedder.Embed(embedCtx, query, "RETRIEVAL_QUERY")
	if err != nil {
		logger.Error("failed to embed query", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", appErr.ErrEmbeddingUnavailable, err)
	}

	chunks, err := s.chunks.ListEmbedded(ctx)
	if err != nil {
		logger.Error("failed to load chunks", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", appErr.ErrStoreUnavailable, err)
	}

	scored, err := search.Search(chunks, queryVec, opts.TopK, opts.Threshold)
	if err != nil {
		return nil, err
	}
	scored = search.Dedupe(scored, s.dedupOverlap)

	result := &model.QueryResult{
		QueryText:        query,
		Chunks:           scored,
		Images:           <-imageCh,
		SafetyLevel:      safety.LevelInfo,
		FallbackEligible: len(scored) == 0,
	}
	for _, chunk := range scored {
		if chunk.Chunk.SafetyLevel > result.SafetyLevel {
			result.SafetyLevel = chunk.Chunk.SafetyLevel
		}
	}
	logger.Debug("retrieval complete",
		zap.Int("chunks", len(result.Chunks)),
		zap.Int("images", len(result.Images)),
		zap.Int("safety_level", result.SafetyLevel))
	return result, nil
}
