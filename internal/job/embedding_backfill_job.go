package job

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/manualkit/manualkit/internal/ai"
	"github.com/manualkit/manualkit/internal/model"
)

type PendingChunkStore interface {
	ListPending(ctx context.Context, limit int) ([]model.Chunk, error)
	AttachEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingBackfillJob embeds chunks ingested without a vector. Each chunk is
// committed individually, so a crash mid-batch loses at most the in-flight
// batch and the next run picks up where it stopped.
type EmbeddingBackfillJob struct {
	store     PendingChunkStore
	embedder  ai.IEmbedder
	batchSize int
	workers   int
}

func NewEmbeddingBackfillJob(store PendingChunkStore, embedder ai.IEmbedder, batchSize, workers int) *EmbeddingBackfillJob {
	if batchSize <= 0 {
		batchSize = 5
	}
	if workers <= 0 {
		workers = 1
	}
	return &EmbeddingBackfillJob{
		store:     store,
		embedder:  embedder,
		batchSize: batchSize,
		workers:   workers,
	}
}

func (j *EmbeddingBackfillJob) Name() string {
	return "embedding_backfill"
}

func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	processed := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		chunks, err := j.store.ListPending(ctx, j.batchSize)
		if err != nil {
			return err
		}
		if len(chunks) == 0 {
			break
		}
		done, err := j.processBatch(ctx, chunks)
		processed += done
		if err != nil {
			logger.Warn("backfill batch incomplete", zap.Int("processed", processed), zap.Error(err))
			return err
		}
		if len(chunks) < j.batchSize {
			break
		}
	}
	if processed > 0 {
		logger.Info("embedding backfill complete", zap.Int("processed", processed))
	}
	return nil
}

func (j *EmbeddingBackfillJob) processBatch(ctx context.Context, chunks []model.Chunk) (int, error) {
	type outcome struct {
		id  string
		err error
	}
	taskCh := make(chan model.Chunk)
	resultCh := make(chan outcome, len(chunks))

	var wg sync.WaitGroup
	for i := 0; i < j.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range taskCh {
				resultCh <- outcome{id: chunk.ID, err: j.embedOne(ctx, chunk)}
			}
		}()
	}
	for _, chunk := range chunks {
		taskCh <- chunk
	}
	close(taskCh)
	wg.Wait()
	close(resultCh)

	done := 0
	var firstErr error
	for res := range resultCh {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			logutil.GetLogger(ctx).Warn("embed chunk failed", zap.String("chunk_id", res.id), zap.Error(res.err))
			continue
		}
		done++
	}
	return done, firstErr
}

func (j *EmbeddingBackfillJob) embedOne(ctx context.Context, chunk model.Chunk) error {
	vec, err := j.embedder.Embed(ctx, chunk.Content, "RETRIEVAL_DOCUMENT")
	if err != nil {
		return err
	}
	return j.store.AttachEmbedding(ctx, chunk.ID, vec)
}
