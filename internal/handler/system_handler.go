package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/manualkit/manualkit/internal/model"
	"github.com/manualkit/manualkit/internal/pkg/response"
)

type StatsProvider interface {
	Stats(ctx context.Context) (*model.StoreStats, error)
}

type SystemHandler struct {
	stats StatsProvider
}

func NewSystemHandler(stats StatsProvider) *SystemHandler {
	return &SystemHandler{stats: stats}
}

func (h *SystemHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}

func (h *SystemHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
