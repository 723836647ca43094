package explain

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatGenerator_Explain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  どちらも技術の話題です。 "}}]}`))
	}))
	defer srv.Close()

	g := NewChatGenerator(&ChatGeneratorConfig{Model: "gpt-4o-mini", APIKey: "key", BaseURL: srv.URL + "/v1"})
	text, err := g.Explain(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "どちらも技術の話題です。", text)
}

func TestChatGenerator_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		substr string
	}{
		{"api error", http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`, "rate limited"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
		{"empty content", http.StatusOK, `{"choices":[{"message":{"content":"   "}}]}`, "empty explanation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewChatGenerator(&ChatGeneratorConfig{Model: "m", BaseURL: srv.URL})
			_, err := g.Explain(context.Background(), "a", "b")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrExternalService))
			assert.True(t, strings.Contains(err.Error(), tt.substr), err.Error())
		})
	}
}
