package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikey/llm-fraud-checker/internal/config"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens int `json:"max_tokens"`
}

func newTestServer(t *testing.T, captured *capturedRequest, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestComplete(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, &captured, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"label\":\"fraud\"}"}}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`)

	logger := zap.NewNop()
	client := NewOpenAIClient("test-key", srv.URL, "gpt-4o-mini", 300, 0.1, 0.9, 8, logger, utils.NewTextProcessor(logger))

	out, err := client.Complete(context.Background(), core.Prompt{System: "be careful", User: "0123456789abcdef"})
	require.NoError(t, err)
	assert.Equal(t, `{"label":"fraud"}`, out)

	assert.Equal(t, "gpt-4o-mini", captured.Model)
	assert.Equal(t, 300, captured.MaxTokens)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "be careful", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Contains(t, captured.Messages[1].Content, "01234567")
	assert.NotContains(t, captured.Messages[1].Content, "abcdef", "user prompt is capped at max_body_size")

	assert.Equal(t, "openai:gpt-4o-mini", client.Name())
}

func TestCompleteNoChoices(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, &captured, `{"id": "chatcmpl-2", "choices": []}`)

	logger := zap.NewNop()
	client := NewOpenAIClient("test-key", srv.URL, "gpt-4o-mini", 300, 0.1, 0.9, 0, logger, utils.NewTextProcessor(logger))

	_, err := client.Complete(context.Background(), core.Prompt{User: "hi"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	logger := zap.NewNop()
	client := NewOpenAIClient("test-key", srv.URL, "gpt-4o-mini", 300, 0.1, 0.9, 0, logger, utils.NewTextProcessor(logger))

	_, err := client.Complete(context.Background(), core.Prompt{User: "hi"})
	assert.Error(t, err)
}

func TestFactoryRequiresKey(t *testing.T) {
	logger := zap.NewNop()
	_, err := NewFactory(config.OpenAIConfig{ModelName: "gpt-4o-mini"}, logger, utils.NewTextProcessor(logger)).CreateLLMClient()
	assert.Error(t, err)

	client, err := NewFactory(config.OpenAIConfig{APIKey: "k", ModelName: "gpt-4o-mini"}, logger, utils.NewTextProcessor(logger)).CreateLLMClient()
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-4o-mini", client.Name())
}
