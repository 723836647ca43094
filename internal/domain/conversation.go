package domain

import (
	"fmt"
	"time"

	"github.com/timmy/dialogbot/internal/vecmath"
)

// Conversation is a logged message with its classification labels and embedding.
// Labels are nil when classification failed; Embedding is nil when embedding
// failed. A record is never mutated after creation.
type Conversation struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	User               string    `gorm:"type:text;not null;index:idx_conversations_user" json:"user"`
	Message            string    `gorm:"type:text;not null" json:"message"`
	Timestamp          time.Time `gorm:"not null;index:idx_conversations_timestamp" json:"timestamp"`
	Style              *string   `gorm:"type:text" json:"style"`
	Emotion            *string   `gorm:"type:text" json:"emotion"`
	EmotionalIntensity *string   `gorm:"type:text" json:"emotional_intensity"`
	Topic              *string   `gorm:"type:text" json:"topic"`
	Embedding          []byte    `json:"-"`
	EmbeddingModel     string    `gorm:"type:text" json:"embedding_model,omitempty"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string {
	return "conversations"
}

// HasEmbedding reports whether an embedding blob is stored.
func (c *Conversation) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// Vector decodes the stored embedding; nil means the record has none.
func (c *Conversation) Vector() (vecmath.Vector, error) {
	v, err := vecmath.Decode(c.Embedding)
	if err != nil {
		return nil, fmt.Errorf("conversation %d: %w", c.ID, err)
	}
	return v, nil
}

// CorpusEntry is the (id, text, optional embedding) tuple consumed by the
// similarity engine and the drift detector.
type CorpusEntry struct {
	ID     uint
	Text   string
	Vector vecmath.Vector
}

// HasVector reports whether the entry carries an embedding.
func (e CorpusEntry) HasVector() bool {
	return e.Vector != nil
}

// Vectors returns the embeddings of entries that have one, in corpus order.
func Vectors(entries []CorpusEntry) []vecmath.Vector {
	out := make([]vecmath.Vector, 0, len(entries))
	for _, e := range entries {
		if e.HasVector() {
			out = append(out, e.Vector)
		}
	}
	return out
}
