package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dineops-backend/internal/http/response"
	"github.com/yungbote/dineops-backend/internal/services"
)

type PlatformMetricsHandler struct {
	metrics services.PlatformMetricsService
}

func NewPlatformMetricsHandler(metrics services.PlatformMetricsService) *PlatformMetricsHandler {
	return &PlatformMetricsHandler{metrics: metrics}
}

// GET|POST /functions/platform-metrics
func (h *PlatformMetricsHandler) Snapshot(c *gin.Context) {
	snap, err := h.metrics.Snapshot(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.RespondError(c, http.StatusBadRequest, "", err)
		return
	}
	response.RespondOK(c, snap)
}
