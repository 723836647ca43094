package repository

import (
	"context"

	"github.com/timmy/dialogbot/internal/domain"
	"github.com/timmy/dialogbot/internal/logger"
	"gorm.io/gorm"
)

// DefaultListLimit is used when List is called without a positive limit.
const DefaultListLimit = 100

// ConversationRepository handles conversation records.
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts a new conversation record and fills in its ID.
func (r *ConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// GetByID retrieves a conversation by its ID.
// Returns gorm.ErrRecordNotFound when no such record exists.
func (r *ConversationRepository) GetByID(ctx context.Context, id uint) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns conversations in insertion order.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - skip: number of records to skip.
//   - limit: page size; non-positive values use DefaultListLimit.
//
// Returns:
//   - []domain.Conversation: the requested page.
//   - error: non-nil if the query fails.
func (r *ConversationRepository) List(ctx context.Context, skip, limit int) ([]domain.Conversation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if skip < 0 {
		skip = 0
	}
	var out []domain.Conversation
	err := r.db.WithContext(ctx).Order("id ASC").Offset(skip).Limit(limit).Find(&out).Error
	return out, err
}

// Count returns the total number of conversations.
func (r *ConversationRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Conversation{}).Count(&n).Error
	return n, err
}

// ListCorpus returns every conversation as a corpus entry, in id order.
// Entries whose stored blob cannot be decoded are returned without a vector.
func (r *ConversationRepository) ListCorpus(ctx context.Context) ([]domain.CorpusEntry, error) {
	var rows []domain.Conversation
	if err := r.db.WithContext(ctx).
		Select("id", "message", "embedding").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]domain.CorpusEntry, 0, len(rows))
	for i := range rows {
		vec, err := rows[i].Vector()
		if err != nil {
			logger.CtxWarn(ctx, "Skipping unreadable embedding: %v", err)
		}
		entries = append(entries, domain.CorpusEntry{ID: rows[i].ID, Text: rows[i].Message, Vector: vec})
	}
	return entries, nil
}
