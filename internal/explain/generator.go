package explain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/dialogbot/internal/prompts"
)

// ErrExternalService marks failures of the explanation backend.
var ErrExternalService = errors.New("explanation service failure")

// Generator produces a natural-language rationale for the similarity of two texts.
type Generator interface {
	Explain(ctx context.Context, textA, textB string) (string, error)
}

// ChatGenerator is a Generator backed by an OpenAI-compatible chat API.
type ChatGenerator struct {
	client   *resty.Client
	model    string
	endpoint string
}

// ChatGeneratorConfig holds configuration for ChatGenerator.
type ChatGeneratorConfig struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewChatGenerator creates a chat-completion backed generator.
func NewChatGenerator(cfg *ChatGeneratorConfig) *ChatGenerator {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.SetTimeout(timeout)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &ChatGenerator{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Explain asks the model why textA and textB are similar.
func (g *ChatGenerator) Explain(ctx context.Context, textA, textB string) (string, error) {
	req := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.ExplanationSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(prompts.ExplanationUserPrompt, textA, textB)},
		},
		MaxTokens:   200,
		Temperature: 0.3,
	}

	var resp chatResponse
	httpResp, err := g.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(g.endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		if resp.Error != nil {
			return "", fmt.Errorf("%w: HTTP %d: %s", ErrExternalService, httpResp.StatusCode(), resp.Error.Message)
		}
		return "", fmt.Errorf("%w: HTTP %d", ErrExternalService, httpResp.StatusCode())
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrExternalService)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty explanation", ErrExternalService)
	}
	return text, nil
}

var _ Generator = (*ChatGenerator)(nil)
