// Package types defines core types and interfaces for the deskpilot AI core
package types

import (
	"context"
	"time"
)

// Dialect identifies the API family a provider speaks. It determines the
// request shape and auth header layout used by the adapter.
type Dialect string

const (
	DialectOpenAI    Dialect = "openai"
	DialectAnthropic Dialect = "anthropic"
)

// HealthState represents the tracked health of a provider
type HealthState string

const (
	HealthUnknown HealthState = "unknown"
	HealthHealthy HealthState = "healthy"
	HealthError   HealthState = "error"
)

// CallOptions carries optional per-call overrides
type CallOptions struct {
	PreferredModel string   `json:"preferred_model,omitempty"`
	MaxTokens      *int     `json:"max_tokens,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
}

// CallRequest is the uniform input every feature module submits
type CallRequest struct {
	Prompt  string       `json:"prompt"`
	Content string       `json:"content"`
	Options *CallOptions `json:"options,omitempty"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CallResult is the uniform output contract. Its shape never varies by
// provider; failures are carried in-band via the Error flag.
type CallResult struct {
	Text           string `json:"text"`
	Usage          Usage  `json:"usage"`
	Provider       string `json:"provider"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Error          bool   `json:"error,omitempty"`
}

// ProviderConfig describes one configured AI backend. Immutable after
// construction; loaded once from configuration at startup.
type ProviderConfig struct {
	Key          string        `json:"key" mapstructure:"key"`
	Name         string        `json:"name" mapstructure:"name"`
	Dialect      Dialect       `json:"dialect" mapstructure:"dialect"`
	BaseURL      string        `json:"base_url" mapstructure:"base_url"`
	APIKeyEnv    string        `json:"api_key_env" mapstructure:"api_key_env"`
	Model        string        `json:"model" mapstructure:"model"`
	MaxTokens    int           `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature  float64       `json:"temperature" mapstructure:"temperature"`
	CostPerToken float64       `json:"cost_per_token" mapstructure:"cost_per_token"`
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	Timeout      time.Duration `json:"timeout" mapstructure:"timeout"`
}

// Provider is the contract every backend adapter implements
type Provider interface {
	// Key returns the unique provider key from configuration
	Key() string

	// Name returns the human-readable display name
	Name() string

	// Descriptor returns the immutable provider configuration
	Descriptor() *ProviderConfig

	// Call performs one completion against the backend
	Call(ctx context.Context, prompt, content string, opts *CallOptions) (*CallResult, error)

	// HealthCheck issues a minimal self-test call; nil means healthy
	HealthCheck(ctx context.Context) error
}

// ProviderStatus is one entry of the read-only health snapshot
type ProviderStatus struct {
	Name           string      `json:"name"`
	Status         HealthState `json:"status"`
	ResponseTimeMs *int64      `json:"response_time_ms"`
	ErrorCount     int         `json:"error_count"`
	LastCheck      *time.Time  `json:"last_check"`
	CostPerToken   float64     `json:"cost_per_token"`
}

// ConnectionTest is the result of a facade-level connectivity probe
type ConnectionTest struct {
	OK             bool   `json:"ok"`
	Provider       string `json:"provider"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Message        string `json:"message,omitempty"`
}
