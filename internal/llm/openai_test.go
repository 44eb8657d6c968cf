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

func newOpenAITestProvider(serverURL string, maxRetries int) *OpenAIProvider {
	p := NewOpenAIProvider(OpenAIConfig{
		APIKey:  "test-key",
		Model:   "gpt-test",
		BaseURL: serverURL,
	}, 0.2, 5*time.Second, maxRetries)
	p.retryDelay = time.Millisecond
	return p
}

func openAITextResponse(text string) chatResponse {
	return chatResponse{
		ID: "chatcmpl-1",
		Choices: []chatChoice{
			{Message: chatMessage{Role: "assistant", Content: text}, FinishReason: "stop"},
		},
		Usage: chatUsage{PromptTokens: 80, CompletionTokens: 40, TotalTokens: 120},
	}
}

func TestOpenAIProvider_GenerateConstraints(t *testing.T) {
	t.Run("requests JSON response format", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "gpt-test", req.Model)
			require.NotNil(t, req.ResponseFormat)
			assert.Equal(t, "json_object", req.ResponseFormat.Type)
			require.Len(t, req.Messages, 2)
			assert.Equal(t, "system", req.Messages[0].Role)

			json.NewEncoder(w).Encode(openAITextResponse(
				`{"primaryKeywords": ["immunotherapy"], "subfields": ["checkpoint inhibitors"]}`,
			))
		}))
		defer server.Close()

		provider := newOpenAITestProvider(server.URL, 0)

		constraints, err := provider.GenerateConstraints(context.Background(), "immunotherapy")
		require.NoError(t, err)
		assert.Equal(t, []string{"immunotherapy"}, constraints.PrimaryKeywords)
		assert.Equal(t, []string{"checkpoint inhibitors"}, constraints.Subfields)
	})

	t.Run("retries transient errors", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) <= 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			json.NewEncoder(w).Encode(openAITextResponse(`{"primaryKeywords": ["sepsis"]}`))
		}))
		defer server.Close()

		provider := newOpenAITestProvider(server.URL, 3)

		constraints, err := provider.GenerateConstraints(context.Background(), "sepsis")
		require.NoError(t, err)
		assert.Equal(t, []string{"sepsis"}, constraints.PrimaryKeywords)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(openAIErrorResponse{
				Error: openAIErrorDetail{Message: "invalid model", Type: "invalid_request_error", Code: "model_not_found"},
			})
		}))
		defer server.Close()

		provider := newOpenAITestProvider(server.URL, 3)

		_, err := provider.GenerateConstraints(context.Background(), "sepsis")
		require.Error(t, err)
		assert.Equal(t, int32(1), attempts.Load())

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "invalid model", apiErr.Message)
		assert.Equal(t, "model_not_found", apiErr.Code)
	})

	t.Run("rejects empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(chatResponse{ID: "chatcmpl-1"})
		}))
		defer server.Close()

		provider := newOpenAITestProvider(server.URL, 0)

		_, err := provider.GenerateConstraints(context.Background(), "sepsis")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty choices")
	})
}

func TestOpenAIProvider_WriteBiography(t *testing.T) {
	t.Run("omits JSON response format", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Nil(t, req.ResponseFormat)

			json.NewEncoder(w).Encode(openAITextResponse("Jane Doe studies sepsis outcomes."))
		}))
		defer server.Close()

		provider := newOpenAITestProvider(server.URL, 0)

		bio, err := provider.WriteBiography(context.Background(), BiographyRequest{
			Name:  "Jane Doe",
			Topic: "sepsis",
		})
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe studies sepsis outcomes.", bio)
	})
}

func TestOpenAIProvider_Defaults(t *testing.T) {
	provider := NewOpenAIProvider(OpenAIConfig{APIKey: "k"}, 0.2, 0, -1)

	assert.Equal(t, defaultOpenAIBaseURL, provider.baseURL)
	assert.Equal(t, defaultOpenAIModel, provider.model)
	assert.Equal(t, 0, provider.maxRetries)
	assert.Equal(t, "openai", provider.Provider())
}
