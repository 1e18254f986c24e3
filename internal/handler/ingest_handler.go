package handler

import (
	"context"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/manualkit/manualkit/internal/model"
	"github.com/manualkit/manualkit/internal/pkg/errcode"
	"github.com/manualkit/manualkit/internal/pkg/response"
	"github.com/manualkit/manualkit/internal/service"
)

// Ingester is what the ingestion endpoints need from the ingest service.
type Ingester interface {
	IngestChunk(ctx context.Context, source string, page int, content string) (*model.Chunk, error)
	IngestDocument(ctx context.Context, source string, page int, body string) (int, error)
	IngestImage(ctx context.Context, req *service.ImageIngestRequest) (*model.ImageRecord, error)
	DeleteSource(ctx context.Context, source string) (int64, error)
}

type IngestHandler struct {
	ingest Ingester
}

func NewIngestHandler(ingest Ingester) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

type ingestChunkRequest struct {
	Source     string `json:"source"`
	PageNumber int    `json:"page_number"`
	Content    string `json:"content"`
}

func (h *IngestHandler) Chunk(c *gin.Context) {
	var req ingestChunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	chunk, err := h.ingest.IngestChunk(c.Request.Context(), req.Source, req.PageNumber, req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": chunk.ID, "safety_level": chunk.SafetyLevel})
}

type ingestDocumentRequest struct {
	Source     string `json:"source"`
	PageNumber int    `json:"page_number"`
	Body       string `json:"body"`
}

func (h *IngestHandler) Document(c *gin.Context) {
	var req ingestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	stored, err := h.ingest.IngestDocument(c.Request.Context(), req.Source, req.PageNumber, req.Body)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"chunks": stored})
}

// Image takes multipart form data so the binary payload and its metadata
// arrive in one request. The payload part is optional.
func (h *IngestHandler) Image(c *gin.Context) {
	source := c.PostForm("source")
	page, _ := strconv.Atoi(c.PostForm("page_number"))
	req := &service.ImageIngestRequest{
		Source:      source,
		PageNumber:  page,
		ImageType:   model.ImageType(c.PostForm("image_type")),
		OCRText:     c.PostForm("ocr_text"),
		Description: c.PostForm("description"),
	}
	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			response.Error(c, errcode.ErrUploadFailed, "open upload")
			return
		}
		defer src.Close()
		req.Payload = io.Reader(src)
		req.PayloadSize = file.Size
	}
	record, err := h.ingest.IngestImage(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"id":               record.ID,
		"image_type":       record.ImageType,
		"complexity_level": record.ComplexityLevel,
	})
}

func (h *IngestHandler) DeleteSource(c *gin.Context) {
	source := c.Param("source")
	deleted, err := h.ingest.DeleteSource(c.Request.Context(), source)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": deleted})
}
