// Package providers — OpenAI-dialect adapter. Covers OpenAI itself and every
// compatible endpoint (OpenRouter, Groq, local servers) via base_url.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deskpilot/deskpilot/pkg/errors"
	"github.com/deskpilot/deskpilot/pkg/types"
	"github.com/deskpilot/deskpilot/pkg/utils"
)

// OpenAIProvider implements types.Provider for OpenAI-compatible backends
type OpenAIProvider struct {
	config     *types.ProviderConfig
	apiKey     string
	httpClient *http.Client
	logger     *utils.Logger
}

// OpenAI API structures
type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Index        int           `json:"index"`
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func newOpenAIProvider(cfg *types.ProviderConfig, apiKey string, client *http.Client, logger *utils.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		config:     cfg,
		apiKey:     apiKey,
		httpClient: client,
		logger:     logger,
	}
}

// Key returns the unique provider key
func (p *OpenAIProvider) Key() string {
	return p.config.Key
}

// Name returns the display name
func (p *OpenAIProvider) Name() string {
	return p.config.Name
}

// Descriptor returns the immutable provider configuration
func (p *OpenAIProvider) Descriptor() *types.ProviderConfig {
	return p.config
}

// Call performs one chat completion against the backend
func (p *OpenAIProvider) Call(ctx context.Context, prompt, content string, opts *types.CallOptions) (*types.CallResult, error) {
	maxTokens, temperature := resolveLimits(p.config, opts)

	req := &openaiRequest{
		Model:       p.config.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []openaiMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: content},
		},
	}

	start := time.Now()
	p.logger.WithProvider(p.config.Key).WithField("model", p.config.Model).Debug("Provider call started")

	resp, err := p.send(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		p.logger.WithProvider(p.config.Key).WithField("duration_ms", elapsed.Milliseconds()).WithError(err).Warn("Provider call failed")
		return nil, err
	}

	p.logger.WithProvider(p.config.Key).
		WithField("duration_ms", elapsed.Milliseconds()).
		WithField("tokens", resp.Usage.TotalTokens).
		Info("Provider call completed")

	return &types.CallResult{
		Text: resp.Choices[0].Message.Content,
		Usage: types.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Provider:       p.config.Key,
		ResponseTimeMs: elapsed.Milliseconds(),
	}, nil
}

// HealthCheck issues a minimal self-test completion
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	req := &openaiRequest{
		Model:     p.config.Model,
		MaxTokens: healthCheckMaxTokens,
		Messages: []openaiMessage{
			{Role: "user", Content: healthCheckPrompt},
		},
	}
	_, err := p.send(ctx, req)
	return err
}

// send issues the HTTP request and normalizes every failure into a
// ProviderError carrying the provider key and upstream detail
func (p *OpenAIProvider) send(ctx context.Context, req *openaiRequest) (*openaiResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.config.BaseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("User-Agent", "deskpilot/1.0")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &errors.ProviderError{
			Provider:  p.config.Key,
			Operation: "ChatCompletion",
			Message:   fmt.Sprintf("HTTP request failed: %v", err),
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.ProviderError{
			Provider:  p.config.Key,
			Operation: "ChatCompletion",
			Message:   fmt.Sprintf("failed to read response: %v", err),
			Retryable: true,
		}
	}

	if resp.StatusCode != http.StatusOK {
		message := string(respBody)
		var errorResp openaiErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Error.Message != "" {
			message = errorResp.Error.Message
		}
		return nil, &errors.ProviderError{
			Provider:   p.config.Key,
			Operation:  "ChatCompletion",
			StatusCode: resp.StatusCode,
			Message:    message,
			Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	var openaiResp openaiResponse
	if err := json.Unmarshal(respBody, &openaiResp); err != nil {
		// Garbled upstream output is never trusted as a usable result
		return nil, &errors.ProviderError{
			Provider:  p.config.Key,
			Operation: "ChatCompletion",
			Message:   fmt.Sprintf("malformed response: %v", err),
			Retryable: false,
		}
	}
	if len(openaiResp.Choices) == 0 {
		return nil, &errors.ProviderError{
			Provider:  p.config.Key,
			Operation: "ChatCompletion",
			Message:   "response contained no choices",
			Retryable: false,
		}
	}

	return &openaiResp, nil
}
