package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/dialogbot/internal/repository"
	"github.com/timmy/dialogbot/internal/service"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	conversations *service.ConversationService
	similar       *service.SimilarService
}

// NewConversationHandler creates a new conversation handler.
// Parameters:
//   - conversations: conversation service instance.
//   - similar: similarity search service instance.
//
// Returns:
//   - *ConversationHandler: initialized handler.
func NewConversationHandler(conversations *service.ConversationService, similar *service.SimilarService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, similar: similar}
}

// Create handles POST /api/v1/conversations.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req service.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}

	view, err := h.conversations.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// List handles GET /api/v1/conversations.
// Query params:
//   - skip: number of records to skip (default 0).
//   - limit: page size (default 100).
func (h *ConversationHandler) List(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		respondError(c, fmt.Errorf("%w: invalid skip", service.ErrInvalidInput))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(repository.DefaultListLimit)))
	if err != nil || limit < 0 {
		respondError(c, fmt.Errorf("%w: invalid limit", service.ErrInvalidInput))
		return
	}

	views, err := h.conversations.List(c.Request.Context(), skip, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversations": views,
		"skip":          skip,
		"limit":         limit,
	})
}

// Get handles GET /api/v1/conversations/:id.
func (h *ConversationHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, fmt.Errorf("%w: invalid conversation id", service.ErrInvalidInput))
		return
	}

	view, err := h.conversations.Get(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Similar handles POST /api/v1/conversations/similar.
func (h *ConversationHandler) Similar(c *gin.Context) {
	var req service.SimilarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}

	resp, err := h.similar.FindSimilar(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
