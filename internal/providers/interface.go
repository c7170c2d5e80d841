// Package providers implements the backend adapters and the provider registry
package providers

import (
	"fmt"
	"net/http"
	"os"

	"github.com/deskpilot/deskpilot/pkg/errors"
	"github.com/deskpilot/deskpilot/pkg/types"
	"github.com/deskpilot/deskpilot/pkg/utils"
)

// healthCheckPrompt is the minimal self-test payload. The reply is discarded;
// only the call outcome matters.
const healthCheckPrompt = "Reply with OK"

// healthCheckMaxTokens caps the self-test completion
const healthCheckMaxTokens = 5

// New builds the adapter matching the descriptor's API dialect. The API key
// is resolved from the environment at construction; a missing credential is a
// fatal configuration error.
func New(cfg *types.ProviderConfig, logger *utils.Logger) (types.Provider, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, errors.NewConfigError("providers."+cfg.Key,
			fmt.Sprintf("environment variable %s is not set", cfg.APIKeyEnv))
	}

	client := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Dialect {
	case types.DialectOpenAI:
		return newOpenAIProvider(cfg, apiKey, client, logger), nil
	case types.DialectAnthropic:
		return newAnthropicProvider(cfg, apiKey, client, logger), nil
	default:
		return nil, errors.NewConfigError("providers."+cfg.Key,
			fmt.Sprintf("unknown dialect %q", cfg.Dialect))
	}
}

// resolveLimits picks max tokens and temperature from options or falls back
// to the descriptor defaults
func resolveLimits(cfg *types.ProviderConfig, opts *types.CallOptions) (int, float64) {
	maxTokens := cfg.MaxTokens
	temperature := cfg.Temperature
	if opts != nil {
		if opts.MaxTokens != nil {
			maxTokens = *opts.MaxTokens
		}
		if opts.Temperature != nil {
			temperature = *opts.Temperature
		}
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return maxTokens, temperature
}
