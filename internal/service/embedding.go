package service

import (
	"fmt"

	"github.com/timmy/dialogbot/internal/config"
	"github.com/timmy/dialogbot/internal/embedding"
)

// NewEncoder builds the Encoder selected by cfg.
func NewEncoder(cfg *config.EmbeddingConfig) (embedding.Encoder, error) {
	switch cfg.Provider {
	case "hash", "":
		return embedding.NewHashEncoder(cfg.Dimensions), nil
	case "openai-compatible":
		return embedding.NewHTTPEncoder(&embedding.HTTPEncoderConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// NewEmbedder builds an Embedder from configuration.
func NewEmbedder(cfg *config.EmbeddingConfig) (*embedding.Embedder, error) {
	enc, err := NewEncoder(cfg)
	if err != nil {
		return nil, err
	}
	return embedding.NewEmbedder(enc, cfg.MaxTokens), nil
}
