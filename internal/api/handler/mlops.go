package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/dialogbot/internal/api/middleware"
	"github.com/timmy/dialogbot/internal/reduce"
	"github.com/timmy/dialogbot/internal/service"
)

// MLOpsHandler handles visualization retrain endpoints.
type MLOpsHandler struct {
	visualizations *service.VisualizationService
}

// NewMLOpsHandler creates a new MLOps handler.
func NewMLOpsHandler(visualizations *service.VisualizationService) *MLOpsHandler {
	return &MLOpsHandler{visualizations: visualizations}
}

// Retrain handles POST /api/v1/mlops/retrain.
// Responds 202 with the job snapshot, or 409 if a run is already in progress.
func (h *MLOpsHandler) Retrain(c *gin.Context) {
	job, err := h.visualizations.Retrain(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// Status handles GET /api/v1/mlops/retrain/status.
func (h *MLOpsHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.visualizations.Status())
}

// Visualization handles GET /api/v1/visualizations/:method.
func (h *MLOpsHandler) Visualization(c *gin.Context) {
	method, err := reduce.ParseMethod(c.Param("method"))
	if err != nil {
		respondError(c, err)
		return
	}

	rc, err := h.visualizations.Open(c.Request.Context(), method)
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "image/png")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		middleware.GetLogger(c).WithError(err).Warn("Failed to stream visualization")
	}
}
