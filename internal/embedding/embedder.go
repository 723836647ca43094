package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/timmy/dialogbot/internal/vecmath"
)

// DefaultMaxTokens matches the input window of the sentence encoders we run.
const DefaultMaxTokens = 256

// Encoder turns text into a fixed-length vector. Implementations must be
// deterministic for a fixed model.
type Encoder interface {
	Encode(ctx context.Context, text string) (vecmath.Vector, error)
	Dimensions() int
	Model() string
}

// EncodingError reports that a text could not be embedded.
// Input is set when the text itself was rejected, as opposed to an encoder
// failure.
type EncodingError struct {
	Reason string
	Input  bool
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encoding error: %s: %v", e.Reason, e.Err)
	}
	return "encoding error: " + e.Reason
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err is an EncodingError caused by the input text.
func IsInputError(err error) bool {
	var encErr *EncodingError
	return errors.As(err, &encErr) && encErr.Input
}

// Embedder validates input and delegates to an Encoder.
type Embedder struct {
	encoder   Encoder
	maxTokens int
}

// NewEmbedder creates an Embedder around encoder.
// Parameters:
//   - encoder: text encoder producing vectors.
//   - maxTokens: input limit; values <= 0 use DefaultMaxTokens.
//
// Returns:
//   - *Embedder: embedder bound to encoder.
func NewEmbedder(encoder Encoder, maxTokens int) *Embedder {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Embedder{
		encoder:   encoder,
		maxTokens: maxTokens,
	}
}

// Dimensions returns the dimensionality of produced vectors.
func (e *Embedder) Dimensions() int {
	return e.encoder.Dimensions()
}

// Model returns the encoder model identifier.
func (e *Embedder) Model() string {
	return e.encoder.Model()
}

// Embed produces the embedding of text. Empty or oversized input fails with
// *EncodingError and is never retried.
func (e *Embedder) Embed(ctx context.Context, text string) (vecmath.Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &EncodingError{Reason: "empty input", Input: true}
	}
	if n := CountTokens(text); n > e.maxTokens {
		return nil, &EncodingError{Reason: fmt.Sprintf("input too long: %d tokens exceeds limit %d", n, e.maxTokens), Input: true}
	}

	vec, err := e.encoder.Encode(ctx, text)
	if err != nil {
		return nil, &EncodingError{Reason: "encoder failed", Err: err}
	}
	if want := e.encoder.Dimensions(); len(vec) != want {
		return nil, &EncodingError{Reason: fmt.Sprintf("encoder returned %d dimensions, expected %d", len(vec), want)}
	}
	return vec, nil
}

// CountTokens approximates the model token count: one token per
// whitespace-delimited word, and one per rune for scripts written without
// spaces (Han, Hiragana, Katakana, Hangul).
func CountTokens(text string) int {
	return len(tokenize(text))
}

func tokenize(text string) []string {
	var tokens []string
	var word []rune
	flush := func() {
		if len(word) > 0 {
			tokens = append(tokens, string(word))
			word = word[:0]
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case isUnspacedScript(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			word = append(word, unicode.ToLower(r))
		}
	}
	flush()
	return tokens
}

func isUnspacedScript(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}
