package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/timmy/dialogbot/internal/classify"
	"github.com/timmy/dialogbot/internal/domain"
	"github.com/timmy/dialogbot/internal/embedding"
	"github.com/timmy/dialogbot/internal/logger"
	"github.com/timmy/dialogbot/internal/repository"
	"github.com/timmy/dialogbot/internal/vecmath"
	"gorm.io/gorm"
)

// VectorMirror receives a copy of every stored embedding.
type VectorMirror interface {
	Upsert(ctx context.Context, vector []float32, payload *repository.ConversationPayload) error
}

// ConversationService logs conversations with their labels and embeddings.
type ConversationService struct {
	repo       *repository.ConversationRepository
	embedder   *embedding.Embedder
	classifier classify.Classifier
	mirror     VectorMirror
	logger     *logger.Logger
	now        func() time.Time
}

// NewConversationService creates a new conversation service.
// Parameters:
//   - repo: conversation repository.
//   - embedder: embedder for message text.
//   - classifier: label classifier; nil disables classification.
//   - mirror: optional vector mirror (may be nil).
//   - log: logger instance.
//
// Returns:
//   - *ConversationService: initialized service.
func NewConversationService(
	repo *repository.ConversationRepository,
	embedder *embedding.Embedder,
	classifier classify.Classifier,
	mirror VectorMirror,
	log *logger.Logger,
) *ConversationService {
	if classifier == nil {
		classifier = classify.Disabled{}
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &ConversationService{
		repo:       repo,
		embedder:   embedder,
		classifier: classifier,
		mirror:     mirror,
		logger:     log,
		now:        time.Now,
	}
}

// CreateConversationRequest is the input of Create.
type CreateConversationRequest struct {
	User    string `json:"user" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// ConversationView is a conversation as returned to API callers.
type ConversationView struct {
	ID           uint            `json:"id"`
	User         string          `json:"user"`
	Message      string          `json:"message"`
	Timestamp    time.Time       `json:"timestamp"`
	Labels       classify.Labels `json:"labels"`
	Classified   bool            `json:"classified"`
	HasEmbedding bool            `json:"has_embedding"`
}

// NewConversationView converts a stored record. Missing labels are reported
// with the unknown label.
func NewConversationView(c *domain.Conversation) ConversationView {
	unknown := classify.UnknownLabels()
	pick := func(v *string, fallback string) string {
		if v == nil {
			return fallback
		}
		return *v
	}
	return ConversationView{
		ID:        c.ID,
		User:      c.User,
		Message:   c.Message,
		Timestamp: c.Timestamp,
		Labels: classify.Labels{
			Style:              pick(c.Style, unknown.Style),
			Emotion:            pick(c.Emotion, unknown.Emotion),
			EmotionalIntensity: pick(c.EmotionalIntensity, unknown.EmotionalIntensity),
			Topic:              pick(c.Topic, unknown.Topic),
		},
		Classified:   c.Style != nil,
		HasEmbedding: c.HasEmbedding(),
	}
}

func (s *ConversationService) log(ctx context.Context) *logger.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// Create classifies, embeds and stores a message.
// Input the embedder rejects fails the call. An encoder failure stores the
// record without an embedding.
func (s *ConversationService) Create(ctx context.Context, req *CreateConversationRequest) (*ConversationView, error) {
	user := strings.TrimSpace(req.User)
	if user == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	vec, err := s.embedder.Embed(ctx, req.Message)
	if err != nil {
		if embedding.IsInputError(err) {
			return nil, err
		}
		s.log(ctx).WithError(err).Warn("Storing conversation without embedding")
		vec = nil
	}

	record := &domain.Conversation{
		User:      user,
		Message:   req.Message,
		Timestamp: s.now().UTC(),
		Embedding: vecmath.Encode(vec),
	}
	if vec != nil {
		record.EmbeddingModel = s.embedder.Model()
	}

	result := s.classifier.Classify(ctx, req.Message)
	if labels, ok := result.Labels(); ok {
		record.Style = &labels.Style
		record.Emotion = &labels.Emotion
		record.EmotionalIntensity = &labels.EmotionalIntensity
		record.Topic = &labels.Topic
	} else {
		s.log(ctx).WithField("reason", result.Reason()).Warn("Classification failed, storing without labels")
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store conversation: %w", err)
	}
	ctx = logger.SetConversationID(ctx, record.ID)

	if s.mirror != nil && vec != nil {
		payload := &repository.ConversationPayload{
			ConversationID: record.ID,
			User:           record.User,
			Message:        record.Message,
			Topic:          result.OrUnknown().Topic,
		}
		if err := s.mirror.Upsert(ctx, vec, payload); err != nil {
			logger.CtxWarn(ctx, "Failed to mirror embedding: %v", err)
		}
	}

	logger.CtxInfo(ctx, "Conversation stored")
	view := NewConversationView(record)
	return &view, nil
}

// Get returns a single conversation.
func (s *ConversationService) Get(ctx context.Context, id uint) (*ConversationView, error) {
	c, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: conversation %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	view := NewConversationView(c)
	return &view, nil
}

// List returns a page of conversations.
func (s *ConversationService) List(ctx context.Context, skip, limit int) ([]ConversationView, error) {
	if skip < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: skip and limit must not be negative", ErrInvalidInput)
	}
	rows, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	views := make([]ConversationView, len(rows))
	for i := range rows {
		views[i] = NewConversationView(&rows[i])
	}
	return views, nil
}
