package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/manualkit/manualkit/internal/filestore"
	"github.com/manualkit/manualkit/internal/imageindex"
	"github.com/manualkit/manualkit/internal/model"
	appErr "github.com/manualkit/manualkit/internal/pkg/errors"
	"github.com/manualkit/manualkit/internal/safety"
)

// ChunkStore is the write side of the chunk repository.
type ChunkStore interface {
	Upsert(ctx context.Context, chunk *model.Chunk) error
	AttachEmbedding(ctx context.Context, id string, embedding []float32) error
	DeleteBySource(ctx context.Context, source string) (int64, error)
	Stats(ctx context.Context) (total int64, embedded int64, err error)
}

// ImageStore is the write side of the image repository.
type ImageStore interface {
	Insert(ctx context.Context, img *model.ImageRecord) error
	Count(ctx context.Context) (int64, error)
}

type IngestService struct {
	chunks     ChunkStore
	images     ImageStore
	classifier *safety.Classifier
	files      filestore.Store
	chunkSize  int
	overlap    int
}

func NewIngestService(chunks ChunkStore, images ImageStore, classifier *safety.Classifier, files filestore.Store, chunkSize, overlap int) *IngestService {
	return &IngestService{
		chunks:     chunks,
		images:     images,
		classifier: classifier,
		files:      files,
		chunkSize:  chunkSize,
		overlap:    overlap,
	}
}

// chunkID derives a stable id from the chunk identity so re-ingesting the
// same document upserts rather than duplicates.
func chunkID(source string, page int, content string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", source, page, content)))
	return hex.EncodeToString(sum[:])[:32]
}

func (s *IngestService) IngestChunk(ctx context.Context, source string, page int, content string) (*model.Chunk, error) {
	content = strings.TrimSpace(content)
	if source == "" || content == "" {
		return nil, fmt.Errorf("%w: source and content are required", appErr.ErrInvalidParams)
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page_number must be >= 1, got %d", appErr.ErrInvalidParams, page)
	}
	chunk := &model.Chunk{
		ID:          chunkID(source, page, content),
		Content:     content,
		Source:      source,
		PageNumber:  page,
		SafetyLevel: s.classifier.Classify(content),
		CreatedAt:   time.Now().Unix(),
	}
	if err := s.chunks.Upsert(ctx, chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

// IngestDocument splits a document body into chunks and stores each one
// without an embedding. The backfill job fills vectors in afterwards.
func (s *IngestService) IngestDocument(ctx context.Context, source string, page int, body string) (int, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("source", source))
	pieces := SplitText(body, s.chunkSize, s.overlap)
	stored := 0
	for _, piece := range pieces {
		if _, err := s.IngestChunk(ctx, source, page, piece); err != nil {
			return stored, err
		}
		stored++
	}
	logger.Info("document ingested", zap.Int("page", page), zap.Int("chunks", stored))
	return stored, nil
}

// IngestMarkdown keeps heading context attached to each section before
// chunking, which reads better in generated answers. Markdown sources carry
// no page layout, so every chunk lands on page 1.
func (s *IngestService) IngestMarkdown(ctx context.Context, source string, data []byte) (int, error) {
	stored := 0
	for _, section := range SplitMarkdown(data) {
		body := section.Body
		if section.Heading != "" {
			body = section.Heading + "\n\n" + body
		}
		n, err := s.IngestDocument(ctx, source, 1, body)
		stored += n
		if err != nil {
			return stored, err
		}
	}
	return stored, nil
}

func (s *IngestService) AttachEmbedding(ctx context.Context, id string, embedding []float32) error {
	return s.chunks.AttachEmbedding(ctx, id, embedding)
}

type ImageIngestRequest struct {
	Source      string
	PageNumber  int
	ImageType   model.ImageType
	OCRText     string
	Description string
	Payload     io.Reader
	PayloadSize int64
}

func (s *IngestService) IngestImage(ctx context.Context, req *ImageIngestRequest) (*model.ImageRecord, error) {
	if req.Source == "" {
		return nil, fmt.Errorf("%w: source is required", appErr.ErrInvalidParams)
	}
	if req.PageNumber < 1 {
		return nil, fmt.Errorf("%w: page_number must be >= 1, got %d", appErr.ErrInvalidParams, req.PageNumber)
	}
	imageType := req.ImageType
	if imageType == "" {
		imageType = imageindex.ClassifyType(req.Description, req.OCRText)
	}
	if !imageType.IsValid() {
		return nil, fmt.Errorf("%w: unknown image type: %s", appErr.ErrInvalidParams, imageType)
	}
	record := &model.ImageRecord{
		ID:              uuid.NewString(),
		Source:          req.Source,
		PageNumber:      req.PageNumber,
		ImageType:       imageType,
		ComplexityLevel: imageindex.AssessComplexity(req.Description, req.OCRText),
		OCRText:         req.OCRText,
		Description:     req.Description,
		CreatedAt:       time.Now().Unix(),
	}
	if req.Payload != nil {
		key := record.ID + ".bin"
		if err := s.files.Save(ctx, key, req.Payload, req.PayloadSize); err != nil {
			return nil, fmt.Errorf("save image payload: %w", err)
		}
		record.StorageRef = key
	}
	if err := s.images.Insert(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *IngestService) DeleteSource(ctx context.Context, source string) (int64, error) {
	return s.chunks.DeleteBySource(ctx, source)
}

// Stats reports embedding coverage so operators can watch the backfill
// catch up after a large ingest.
func (s *IngestService) Stats(ctx context.Context) (*model.StoreStats, error) {
	total, embedded, err := s.chunks.Stats(ctx)
	if err != nil {
		return nil, err
	}
	images, err := s.images.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats := &model.StoreStats{
		TotalChunks:    total,
		EmbeddedChunks: embedded,
		TotalImages:    images,
	}
	if total > 0 {
		stats.Coverage = float64(embedded) / float64(total)
	}
	return stats, nil
}
