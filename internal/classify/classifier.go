package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/timmy/dialogbot/internal/prompts"
)

// Labels is the style/emotion/intensity/topic label set of one message.
type Labels struct {
	Style              string `json:"style"`
	Emotion            string `json:"emotion"`
	EmotionalIntensity string `json:"emotional_intensity"`
	Topic              string `json:"topic"`
}

// UnknownLabels is the documented default used when classification failed.
func UnknownLabels() Labels {
	return Labels{
		Style:              prompts.UnknownLabel,
		Emotion:            prompts.UnknownLabel,
		EmotionalIntensity: prompts.UnknownLabel,
		Topic:              prompts.UnknownLabel,
	}
}

// Result is either Ok(labels) or Failed(reason).
type Result struct {
	labels Labels
	reason string
	ok     bool
}

// Ok wraps a successful classification.
func Ok(labels Labels) Result {
	return Result{labels: labels, ok: true}
}

// Failed wraps a failed classification.
func Failed(reason string) Result {
	return Result{reason: reason}
}

// OK reports whether classification succeeded.
func (r Result) OK() bool { return r.ok }

// Labels returns the labels and whether they are valid.
func (r Result) Labels() (Labels, bool) { return r.labels, r.ok }

// Reason returns the failure reason, empty on success.
func (r Result) Reason() string { return r.reason }

// OrUnknown returns the labels on success and UnknownLabels otherwise.
func (r Result) OrUnknown() Labels {
	if r.ok {
		return r.labels
	}
	return UnknownLabels()
}

// Classifier labels a message.
type Classifier interface {
	Classify(ctx context.Context, text string) Result
}

// chatClient is the subset of *openai.Client the classifier needs.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClassifier classifies messages with a chat model.
type OpenAIClassifier struct {
	client  chatClient
	model   string
	timeout time.Duration
}

// OpenAIConfig holds configuration for OpenAIClassifier.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewOpenAIClassifier creates a classifier for the configured endpoint.
func NewOpenAIClassifier(cfg *OpenAIConfig) *OpenAIClassifier {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return newOpenAIClassifier(openai.NewClientWithConfig(clientCfg), cfg.Model, cfg.Timeout)
}

func newOpenAIClassifier(client chatClient, model string, timeout time.Duration) *OpenAIClassifier {
	if model == "" {
		model = openai.GPT4
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenAIClassifier{client: client, model: model, timeout: timeout}
}

// Classify never returns an error: every failure becomes Failed(reason).
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompts.ClassificationSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(prompts.ClassificationUserPrompt, text)},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return Failed(fmt.Sprintf("classification request failed: %v", err))
	}
	if len(resp.Choices) == 0 {
		return Failed("no completion choices returned")
	}
	return Parse(resp.Choices[0].Message.Content)
}

// Parse decodes a model response into a Result. Labels outside the closed
// vocabulary are replaced with the unknown label.
func Parse(content string) Result {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var labels Labels
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &labels); err != nil {
		return Failed(fmt.Sprintf("invalid classification JSON: %v", err))
	}

	return Ok(Labels{
		Style:              normalize(labels.Style, prompts.StyleLabels),
		Emotion:            normalize(labels.Emotion, prompts.EmotionLabels),
		EmotionalIntensity: normalize(labels.EmotionalIntensity, prompts.IntensityLabels),
		Topic:              normalize(labels.Topic, prompts.TopicLabels),
	})
}

func normalize(label string, vocabulary []string) string {
	label = strings.TrimSpace(label)
	if slices.Contains(vocabulary, label) {
		return label
	}
	return prompts.UnknownLabel
}

// Disabled is used when no classification backend is configured.
type Disabled struct{}

func (Disabled) Classify(context.Context, string) Result {
	return Failed("classifier disabled")
}

var (
	_ Classifier = (*OpenAIClassifier)(nil)
	_ Classifier = Disabled{}
)
