package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Query  *QueryHandler
	Ingest *IngestHandler
	System *SystemHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/query", deps.Query.Query)

	api.POST("/ingest/chunk", deps.Ingest.Chunk)
	api.POST("/ingest/document", deps.Ingest.Document)
	api.POST("/ingest/image", deps.Ingest.Image)
	api.DELETE("/ingest/source/:source", deps.Ingest.DeleteSource)

	api.GET("/stats", deps.System.Stats)
	api.GET("/health", deps.System.Health)
}
