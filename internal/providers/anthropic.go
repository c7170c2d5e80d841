// Package providers — Anthropic-dialect adapter (x-api-key auth, messages API)
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

const anthropicVersion = "2023-06-01"

// AnthropicProvider implements types.Provider for the Anthropic messages API
type AnthropicProvider struct {
	config     *types.ProviderConfig
	apiKey     string
	httpClient *http.Client
	logger     *utils.Logger
}

// Anthropic API structures
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string           `json:"id"`
	Content []anthropicBlock `json:"content"`
	Model   string           `json:"model"`
	Usage   anthropicUsage   `json:"usage"`
}

type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAnthropicProvider(cfg *types.ProviderConfig, apiKey string, client *http.Client, logger *utils.Logger) *AnthropicProvider {
	return &AnthropicProvider{
		config:     cfg,
		apiKey:     apiKey,
		httpClient: client,
		logger:     logger,
	}
}

// Key returns the unique provider key
func (p *AnthropicProvider) Key() string {
	return p.config.Key
}

// Name returns the display name
func (p *AnthropicProvider) Name() string {
	return p.config.Name
}

// Descriptor returns the immutable provider configuration
func (p *AnthropicProvider) Descriptor() *types.ProviderConfig {
	return p.config
}

// Call performs one completion against the messages endpoint. The system
// role rides in the dedicated top-level field rather than the message list.
func (p *AnthropicProvider) Call(ctx context.Context, prompt, content string, opts *types.CallOptions) (*types.CallResult, error) {
	maxTokens, temperature := resolveLimits(p.config, opts)

	req := &anthropicRequest{
		Model:       p.config.Model,
		MaxTokens:   maxTokens,
		System:      prompt,
		Temperature: &temperature,
		Messages: []anthropicMessage{
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

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	p.logger.WithProvider(p.config.Key).
		WithField("duration_ms", elapsed.Milliseconds()).
		WithField("tokens", resp.Usage.InputTokens+resp.Usage.OutputTokens).
		Info("Provider call completed")

	return &types.CallResult{
		Text: text,
		Usage: types.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		Provider:       p.config.Key,
		ResponseTimeMs: elapsed.Milliseconds(),
	}, nil
}

// HealthCheck issues a minimal self-test completion
func (p *AnthropicProvider) HealthCheck(ctx context.Context) error {
	req := &anthropicRequest{
		Model:     p.config.Model,
		MaxTokens: healthCheckMaxTokens,
		Messages: []anthropicMessage{
			{Role: "user", Content: healthCheckPrompt},
		},
	}
	_, err := p.send(ctx, req)
	return err
}

// send issues the HTTP request and normalizes every failure into a
// ProviderError carrying the provider key and upstream detail
func (p *AnthropicProvider) send(ctx context.Context, req *anthropicRequest) (*anthropicResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.config.BaseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("User-Agent", "deskpilot/1.0")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &errors.ProviderError{
			Provider:  p.config.Key,
			Operation: "Messages",
			Message:   fmt.Sprintf("HTTP request failed: %v", err),
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.ProviderError{
			Provider:  p.config.Key,
			Operation: "Messages",
			Message:   fmt.Sprintf("failed to read response: %v", err),
			Retryable: true,
		}
	}

	if resp.StatusCode != http.StatusOK {
		message := string(respBody)
		var errorResp anthropicErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Error.Message != "" {
			message = errorResp.Error.Message
		}
		return nil, &errors.ProviderError{
			Provider:   p.config.Key,
			Operation:  "Messages",
			StatusCode: resp.StatusCode,
			Message:    message,
			Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	var anthropicResp anthropicResponse
	if err := json.Unmarshal(respBody, &anthropicResp); err != nil {
		return nil, &errors.ProviderError{
			Provider:  p.config.Key,
			Operation: "Messages",
			Message:   fmt.Sprintf("malformed response: %v", err),
			Retryable: false,
		}
	}
	if len(anthropicResp.Content) == 0 {
		return nil, &errors.ProviderError{
			Provider:  p.config.Key,
			Operation: "Messages",
			Message:   "response contained no content blocks",
			Retryable: false,
		}
	}

	return &anthropicResp, nil
}
