package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/dialogbot/internal/service"
)

const defaultCheckHistory = 20

// DriftHandler handles drift monitoring endpoints.
type DriftHandler struct {
	monitor *service.MonitorService
}

// NewDriftHandler creates a new drift handler.
func NewDriftHandler(monitor *service.MonitorService) *DriftHandler {
	return &DriftHandler{monitor: monitor}
}

type driftCheckRequest struct {
	Threshold *float64 `json:"threshold"`
}

// Check handles POST /api/v1/drift/check.
// The threshold may be given in the JSON body or as a query parameter;
// an empty body uses the configured default.
func (h *DriftHandler) Check(c *gin.Context) {
	var req driftCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}
	if raw, ok := c.GetQuery("threshold"); ok && req.Threshold == nil {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(c, fmt.Errorf("%w: invalid threshold", service.ErrInvalidInput))
			return
		}
		req.Threshold = &v
	}

	check, err := h.monitor.CheckDrift(c.Request.Context(), req.Threshold)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}

// Checks handles GET /api/v1/drift/checks.
func (h *DriftHandler) Checks(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultCheckHistory)))
	if err != nil || limit <= 0 {
		respondError(c, fmt.Errorf("%w: invalid limit", service.ErrInvalidInput))
		return
	}

	checks, err := h.monitor.ListChecks(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"checks":            checks,
		"default_threshold": h.monitor.DefaultThreshold(),
	})
}
