package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/dialogbot/internal/vecmath"
)

// HTTPEncoder calls an OpenAI-compatible /embeddings endpoint, typically a
// sentence-transformers server running next to the API.
type HTTPEncoder struct {
	client     *resty.Client
	endpoint   string
	model      string
	dimensions int
}

// HTTPEncoderConfig holds configuration for HTTPEncoder.
type HTTPEncoderConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// NewHTTPEncoder creates an encoder for the given endpoint.
func NewHTTPEncoder(cfg *HTTPEncoderConfig) *HTTPEncoder {
	client := resty.New()
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	client.SetHeader("Content-Type", "application/json")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:8080/v1"
	}

	return &HTTPEncoder{
		client:     client,
		endpoint:   baseURL + "/embeddings",
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

func (e *HTTPEncoder) Dimensions() int { return e.dimensions }

func (e *HTTPEncoder) Model() string { return e.model }

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Encode requests the embedding of a single text.
func (e *HTTPEncoder) Encode(ctx context.Context, text string) (vecmath.Vector, error) {
	var resp embeddingsResponse
	httpResp, err := e.client.R().
		SetContext(ctx).
		SetBody(embeddingsRequest{Model: e.model, Input: []string{text}}).
		SetResult(&resp).
		SetError(&resp).
		Post(e.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		if resp.Error != nil {
			return nil, fmt.Errorf("embedding API error: HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return nil, fmt.Errorf("embedding API error: status %d", httpResp.StatusCode())
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vecmath.Vector(resp.Data[0].Embedding), nil
}

var _ Encoder = (*HTTPEncoder)(nil)
