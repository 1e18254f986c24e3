package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/manualkit/manualkit/internal/model"
	"github.com/manualkit/manualkit/internal/pkg/errcode"
	"github.com/manualkit/manualkit/internal/pkg/response"
	"github.com/manualkit/manualkit/internal/service"
)

// Answerer is what the query endpoint needs from the answer service.
type Answerer interface {
	Answer(ctx context.Context, query string, opts service.AnswerOptions) (*model.StructuredResponse, error)
}

type QueryHandler struct {
	answers Answerer
}

func NewQueryHandler(answers Answerer) *QueryHandler {
	return &QueryHandler{answers: answers}
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
	// pointer so an explicit 0 is distinguishable from an omitted field
	SimilarityThreshold *float64 `json:"similarity_threshold"`
	IncludeImages       bool     `json:"include_images"`
	MaxImages           int      `json:"max_images"`
	SkillLevel          string   `json:"skill_level"`
}

func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	opts := service.AnswerOptions{
		Retrieval: service.RetrievalOptions{
			TopK: req.TopK,
		},
		SkillLevel: req.SkillLevel,
	}
	if req.SimilarityThreshold != nil {
		opts.Retrieval.Threshold = *req.SimilarityThreshold
		opts.Retrieval.ThresholdSet = true
	}
	if req.IncludeImages {
		opts.Retrieval.MaxImages = req.MaxImages
		if opts.Retrieval.MaxImages == 0 {
			opts.Retrieval.MaxImages = 3
		}
	} else {
		opts.Retrieval.MaxImages = -1
	}
	result, err := h.answers.Answer(c.Request.Context(), req.Query, opts)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
