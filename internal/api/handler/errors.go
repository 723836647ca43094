package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/dialogbot/internal/drift"
	"github.com/timmy/dialogbot/internal/embedding"
	"github.com/timmy/dialogbot/internal/reduce"
	"github.com/timmy/dialogbot/internal/service"
	"github.com/timmy/dialogbot/internal/vecmath"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		embedding.IsInputError(err),
		errors.Is(err, drift.ErrInvalidThreshold),
		errors.Is(err, reduce.ErrInvalidMethod),
		errors.Is(err, reduce.ErrEmptyCorpus),
		errors.Is(err, vecmath.ErrDegenerateVector):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRetrainRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
