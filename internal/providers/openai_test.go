package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskpilot/deskpilot/pkg/errors"
	"github.com/deskpilot/deskpilot/pkg/types"
	"github.com/deskpilot/deskpilot/pkg/utils"
)

func newTestOpenAIProvider(baseURL string) *OpenAIProvider {
	cfg := &types.ProviderConfig{
		Key:         "openai-test",
		Name:        "OpenAI Test",
		Dialect:     types.DialectOpenAI,
		BaseURL:     baseURL,
		Model:       "test-model",
		MaxTokens:   256,
		Temperature: 0.5,
		Timeout:     2 * time.Second,
	}
	return newOpenAIProvider(cfg, "sk-test", &http.Client{Timeout: cfg.Timeout}, utils.NewTestLogger())
}

func TestOpenAICall(t *testing.T) {
	var captured openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(openaiResponse{
			ID: "cmpl-1",
			Choices: []openaiChoice{
				{Message: openaiMessage{Role: "assistant", Content: "categorized"}, FinishReason: "stop"},
			},
			Usage: openaiUsage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
		})
	}))
	defer server.Close()

	p := newTestOpenAIProvider(server.URL)
	result, err := p.Call(context.Background(), "You are a classifier.", "some file text", nil)

	require.NoError(t, err)
	assert.Equal(t, "categorized", result.Text)
	assert.Equal(t, 12, result.Usage.TotalTokens)
	assert.Equal(t, "openai-test", result.Provider)
	assert.GreaterOrEqual(t, result.ResponseTimeMs, int64(0))

	// system role carries the prompt, user role carries the content
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "You are a classifier.", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "test-model", captured.Model)
	assert.Equal(t, 256, captured.MaxTokens)
}

func TestOpenAICallOptionOverrides(t *testing.T) {
	var captured openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	p := newTestOpenAIProvider(server.URL)
	maxTokens := 32
	temperature := 0.9
	_, err := p.Call(context.Background(), "p", "c", &types.CallOptions{
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})

	require.NoError(t, err)
	assert.Equal(t, 32, captured.MaxTokens)
	assert.InDelta(t, 0.9, captured.Temperature, 0.001)
}

func TestOpenAICallErrors(t *testing.T) {
	t.Run("UpstreamError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "overloaded", "type": "server_error"},
			})
		}))
		defer server.Close()

		p := newTestOpenAIProvider(server.URL)
		result, err := p.Call(context.Background(), "p", "c", nil)

		assert.Nil(t, result)
		var provErr *errors.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, "openai-test", provErr.Provider)
		assert.Equal(t, http.StatusServiceUnavailable, provErr.StatusCode)
		assert.Equal(t, "overloaded", provErr.Message)
		assert.True(t, provErr.Retryable)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		}))
		defer server.Close()

		p := newTestOpenAIProvider(server.URL)
		_, err := p.Call(context.Background(), "p", "c", nil)

		var provErr *errors.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Contains(t, provErr.Message, "malformed response")
	})

	t.Run("EmptyChoices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(openaiResponse{})
		}))
		defer server.Close()

		p := newTestOpenAIProvider(server.URL)
		_, err := p.Call(context.Background(), "p", "c", nil)

		var provErr *errors.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.False(t, provErr.Retryable)
	})

	t.Run("ConnectionRefused", func(t *testing.T) {
		p := newTestOpenAIProvider("http://127.0.0.1:1")
		_, err := p.Call(context.Background(), "p", "c", nil)

		var provErr *errors.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.True(t, provErr.Retryable)
	})
}

func TestOpenAIHealthCheck(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		var captured openaiRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&captured)
			json.NewEncoder(w).Encode(openaiResponse{
				Choices: []openaiChoice{{Message: openaiMessage{Content: "OK"}}},
			})
		}))
		defer server.Close()

		p := newTestOpenAIProvider(server.URL)
		assert.NoError(t, p.HealthCheck(context.Background()))
		assert.Equal(t, healthCheckMaxTokens, captured.MaxTokens)
	})

	t.Run("Unhealthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		p := newTestOpenAIProvider(server.URL)
		assert.Error(t, p.HealthCheck(context.Background()))
	})
}
