package classify

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/dialogbot/internal/prompts"
)

type fakeChat struct {
	content string
	err     error
	req     openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func TestOpenAIClassifier_Ok(t *testing.T) {
	fake := &fakeChat{content: `{"style":"専門的","emotion":"ポジティブ","emotional_intensity":"普通","topic":"技術"}`}
	c := newOpenAIClassifier(fake, "", time.Second)

	res := c.Classify(context.Background(), "Goのジェネリクスは便利です")
	require.True(t, res.OK())

	labels, ok := res.Labels()
	require.True(t, ok)
	assert.Equal(t, Labels{Style: "専門的", Emotion: "ポジティブ", EmotionalIntensity: "普通", Topic: "技術"}, labels)
	assert.Equal(t, openai.GPT4, fake.req.Model)
	assert.Len(t, fake.req.Messages, 2)
	assert.Contains(t, fake.req.Messages[1].Content, "Goのジェネリクスは便利です")
}

func TestOpenAIClassifier_Failed(t *testing.T) {
	c := newOpenAIClassifier(&fakeChat{err: errors.New("timeout")}, "gpt-4", time.Second)

	res := c.Classify(context.Background(), "hello")
	assert.False(t, res.OK())
	assert.Contains(t, res.Reason(), "timeout")
	assert.Equal(t, UnknownLabels(), res.OrUnknown())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ok      bool
		want    Labels
	}{
		{
			name:    "fenced json",
			content: "```json\n{\"style\":\"丁寧\",\"emotion\":\"ニュートラル\",\"emotional_intensity\":\"小さい\",\"topic\":\"社会\"}\n```",
			ok:      true,
			want:    Labels{Style: "丁寧", Emotion: "ニュートラル", EmotionalIntensity: "小さい", Topic: "社会"},
		},
		{
			name:    "out of vocabulary",
			content: `{"style":"formal","emotion":"ポジティブ","emotional_intensity":"","topic":"雑談"}`,
			ok:      true,
			want:    Labels{Style: prompts.UnknownLabel, Emotion: "ポジティブ", EmotionalIntensity: prompts.UnknownLabel, Topic: "雑談"},
		},
		{
			name:    "not json",
			content: "I think it's casual",
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.content)
			assert.Equal(t, tt.ok, res.OK())
			if tt.ok {
				labels, _ := res.Labels()
				assert.Equal(t, tt.want, labels)
			} else {
				assert.NotEmpty(t, res.Reason())
			}
		})
	}
}

func TestDisabled(t *testing.T) {
	res := Disabled{}.Classify(context.Background(), "x")
	assert.False(t, res.OK())
	assert.Equal(t, UnknownLabels(), res.OrUnknown())
}
