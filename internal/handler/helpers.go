package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/manualkit/manualkit/internal/pkg/errcode"
	appErr "github.com/manualkit/manualkit/internal/pkg/errors"
	"github.com/manualkit/manualkit/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	switch {
	case appErr.IsInvalidParams(err):
		response.ErrorWithStatus(c, http.StatusBadRequest, errcode.ErrInvalid, err.Error())
	case appErr.IsEmbeddingUnavailable(err):
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, errcode.ErrEmbeddingUnavailable,
			"embedding provider unavailable, try again later")
	case appErr.IsStoreUnavailable(err):
		response.ErrorWithStatus(c, http.StatusBadGateway, errcode.ErrStoreUnavailable, "chunk store unavailable")
	case err == appErr.ErrNotFound:
		response.ErrorWithStatus(c, http.StatusNotFound, errcode.ErrNotFound, "not found")
	default:
		response.ErrorWithStatus(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	}
}
