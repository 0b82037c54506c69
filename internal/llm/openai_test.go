package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatResponse(content string) chatResponse {
	return chatResponse{
		ID:    "chatcmpl-test",
		Model: "gpt-4o-2024-08-06",
		Choices: []chatChoice{
			{
				Index:        0,
				Message:      ChatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{
			PromptTokens:     120,
			CompletionTokens: 45,
			TotalTokens:      165,
		},
	}
}

func newTestClient(baseURL string, maxRetries int) *OpenAIClient {
	client := NewOpenAIClient(OpenAIConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o",
		BaseURL: baseURL,
	}, 5*time.Second, maxRetries)
	client.retryDelay = time.Millisecond
	return client
}

func TestNewOpenAIClient(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		client := NewOpenAIClient(OpenAIConfig{APIKey: "key"}, 0, -1)

		assert.Equal(t, defaultOpenAIBaseURL, client.baseURL)
		assert.Equal(t, defaultOpenAIModel, client.model)
		assert.Equal(t, 0, client.maxRetries)
		assert.Equal(t, 60*time.Second, client.httpClient.Timeout)
	})

	t.Run("keeps custom values", func(t *testing.T) {
		client := NewOpenAIClient(OpenAIConfig{
			APIKey:  "key",
			Model:   "gpt-4o-mini",
			BaseURL: "https://proxy.example.com/v1",
		}, 10*time.Second, 2)

		assert.Equal(t, "https://proxy.example.com/v1", client.baseURL)
		assert.Equal(t, "gpt-4o-mini", client.Model())
		assert.Equal(t, "openai", client.Provider())
	})
}

func TestOpenAIClient_Complete(t *testing.T) {
	t.Run("successful completion", func(t *testing.T) {
		var gotReq chatRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(newChatResponse(`{"summary":"ok","keyIdeas":[]}`)))
		}))
		defer server.Close()

		client := newTestClient(server.URL, 0)
		result, err := client.Complete(context.Background(), []ChatMessage{
			{Role: RoleUser, Content: "summarize this"},
		}, ChatOptions{Temperature: 0.3, MaxTokens: 1000})

		require.NoError(t, err)
		assert.Equal(t, `{"summary":"ok","keyIdeas":[]}`, result.Content)
		assert.Equal(t, "gpt-4o-2024-08-06", result.Model)
		assert.Equal(t, 120, result.InputTokens)
		assert.Equal(t, 45, result.OutputTokens)

		assert.Equal(t, "gpt-4o", gotReq.Model)
		assert.InDelta(t, 0.3, gotReq.Temperature, 0.001)
		assert.Equal(t, 1000, gotReq.MaxTokens)
		require.Len(t, gotReq.Messages, 1)
		assert.Equal(t, RoleUser, gotReq.Messages[0].Role)
	})

	t.Run("retries transient errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error"}}`))
				return
			}
			require.NoError(t, json.NewEncoder(w).Encode(newChatResponse("done")))
		}))
		defer server.Close()

		client := newTestClient(server.URL, 2)
		result, err := client.Complete(context.Background(), []ChatMessage{
			{Role: RoleUser, Content: "hi"},
		}, ChatOptions{})

		require.NoError(t, err)
		assert.Equal(t, "done", result.Content)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("does not retry non-transient errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error","code":"invalid_api_key"}}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL, 3)
		_, err := client.Complete(context.Background(), []ChatMessage{
			{Role: RoleUser, Content: "hi"},
		}, ChatOptions{})

		require.Error(t, err)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "invalid api key", apiErr.Message)
		assert.Equal(t, "invalid_api_key", apiErr.Code)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("exhausts retries on persistent server errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"server error","type":"server_error"}}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL, 2)
		_, err := client.Complete(context.Background(), []ChatMessage{
			{Role: RoleUser, Content: "hi"},
		}, ChatOptions{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "exhausted 2 retries")
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("empty choices is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewEncoder(w).Encode(chatResponse{ID: "x"}))
		}))
		defer server.Close()

		client := newTestClient(server.URL, 0)
		_, err := client.Complete(context.Background(), []ChatMessage{
			{Role: RoleUser, Content: "hi"},
		}, ChatOptions{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty choices")
	})

	t.Run("context cancellation during retry wait", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := newTestClient(server.URL, 3)
		client.retryDelay = time.Second

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := client.Complete(ctx, []ChatMessage{
			{Role: RoleUser, Content: "hi"},
		}, ChatOptions{})

		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("omits max_tokens when zero", func(t *testing.T) {
		var rawBody map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&rawBody))
			require.NoError(t, json.NewEncoder(w).Encode(newChatResponse("ok")))
		}))
		defer server.Close()

		client := newTestClient(server.URL, 0)
		_, err := client.Complete(context.Background(), []ChatMessage{
			{Role: RoleUser, Content: "hi"},
		}, ChatOptions{Temperature: 0.3})

		require.NoError(t, err)
		_, present := rawBody["max_tokens"]
		assert.False(t, present)
	})
}
