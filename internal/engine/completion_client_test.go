package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brandsim/server/internal/config"
	"brandsim/server/internal/interfaces"
	"brandsim/server/internal/metrics"
)

type chatRequest struct {
	Model          string `json:"model"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatReply(content string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "test-model",
		"choices": []map[string]interface{}{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, retries int) *CompletionClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewCompletionClient(config.CompletionConfig{
		BaseURL:    srv.URL + "/v1",
		APIKey:     "sk-test",
		Model:      "test-model",
		MaxTokens:  256,
		Timeout:    5 * time.Second,
		MaxRetries: retries,
	}, zap.NewNop(), metrics.New(prometheus.NewRegistry()))
}

func TestCompleteSendsPromptAndJSONMode(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatReply(`{"likes": 42}`))
	}, 0)

	out, err := client.Complete(context.Background(), "estimate", interfaces.CompletionOptions{Name: "like_estimation", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"likes": 42}`, out)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "estimate", got.Messages[0].Content)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)

	stats := client.Stats()
	assert.Equal(t, int64(1), stats.Requests)
	assert.Equal(t, int64(12), stats.PromptTokens)
	assert.Equal(t, int64(3), stats.CompletionTokens)
}

func TestCompleteWithoutJSONModeOmitsResponseFormat(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(chatReply("[]"))
	}, 0)

	_, err := client.Complete(context.Background(), "react", interfaces.CompletionOptions{Name: "character_posts"})
	require.NoError(t, err)
	assert.Nil(t, got.ResponseFormat)
}

func TestCompleteEmptyContentIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatReply("  "))
	}, 0)

	_, err := client.Complete(context.Background(), "p", interfaces.CompletionOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(chatReply("ok"))
	}, 1)

	out, err := client.Complete(context.Background(), "p", interfaces.CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad prompt","type":"invalid_request_error"}}`))
	}, 3)

	_, err := client.Complete(context.Background(), "p", interfaces.CompletionOptions{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
