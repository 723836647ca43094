package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/timmy/dialogbot/internal/reduce"
	"github.com/timmy/dialogbot/internal/storage"
)

// FileName returns the object name a method's visualization is stored under.
// Downstream consumers fetch images by this name.
func FileName(method reduce.Method) string {
	return fmt.Sprintf("embedding_%s.png", method)
}

// Sink receives reduced points for a method and persists a rendering.
type Sink interface {
	Publish(ctx context.Context, method reduce.Method, points []reduce.Point) (string, error)
}

// PNGSink renders scatterplots and stores them in object storage.
type PNGSink struct {
	storage storage.ObjectStorage
	prefix  string
	width   int
	height  int
}

// PNGSinkConfig holds PNGSink settings.
type PNGSinkConfig struct {
	Prefix string
	Width  int
	Height int
}

// NewPNGSink creates a sink that writes to store.
func NewPNGSink(store storage.ObjectStorage, cfg *PNGSinkConfig) *PNGSink {
	s := &PNGSink{storage: store, width: DefaultWidth, height: DefaultHeight}
	if cfg != nil {
		s.prefix = cfg.Prefix
		if cfg.Width > 0 {
			s.width = cfg.Width
		}
		if cfg.Height > 0 {
			s.height = cfg.Height
		}
	}
	return s
}

// Key returns the storage key for a method.
func (s *PNGSink) Key(method reduce.Method) string {
	return s.prefix + FileName(method)
}

// Publish renders points and uploads the PNG, returning its URL.
func (s *PNGSink) Publish(ctx context.Context, method reduce.Method, points []reduce.Point) (string, error) {
	data, err := EncodePNG(points, Options{
		Width:  s.width,
		Height: s.height,
		Title:  fmt.Sprintf("%s projection (n=%d)", method, len(points)),
	})
	if err != nil {
		return "", err
	}

	key := s.Key(method)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "image/png"); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", key, err)
	}
	return s.storage.GetURL(key), nil
}

var _ Sink = (*PNGSink)(nil)
