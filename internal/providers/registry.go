// Package providers — the provider registry and ordering policy
package providers

import (
	"fmt"

	"github.com/deskpilot/deskpilot/internal/health"
	"github.com/deskpilot/deskpilot/pkg/errors"
	"github.com/deskpilot/deskpilot/pkg/types"
	"github.com/deskpilot/deskpilot/pkg/utils"
)

// Registry owns the configured provider set and the priority order in which
// candidates are attempted. It is built once at startup and immutable
// afterwards; all mutable state lives in the health tracker.
type Registry struct {
	providers map[string]types.Provider
	// ordered is [primary, fallbacks...] by key
	ordered []string
	tracker *health.Tracker
	logger  *utils.Logger
}

// NewRegistry builds providers from configuration and registers each key
// with the tracker. A primary or fallback key that does not resolve to an
// enabled provider is a fatal configuration error.
func NewRegistry(cfg *types.Config, tracker *health.Tracker, logger *utils.Logger) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]types.Provider),
		tracker:   tracker,
		logger:    logger,
	}

	for i := range cfg.Providers {
		pc := &cfg.Providers[i]
		if !pc.Enabled {
			continue
		}
		provider, err := New(pc, logger)
		if err != nil {
			return nil, err
		}
		if _, exists := r.providers[pc.Key]; exists {
			return nil, errors.NewConfigError("providers", fmt.Sprintf("duplicate provider key %q", pc.Key))
		}
		r.providers[pc.Key] = provider
		tracker.Register(pc.Key)
		logger.WithProvider(pc.Key).WithField("dialect", pc.Dialect).Info("Provider registered")
	}

	chain := append([]string{cfg.Routing.Primary}, cfg.Routing.Fallbacks...)
	seen := make(map[string]bool)
	for _, key := range chain {
		if _, exists := r.providers[key]; !exists {
			return nil, errors.NewConfigError("routing",
				fmt.Sprintf("provider %q is not an enabled provider", key))
		}
		if seen[key] {
			return nil, errors.NewConfigError("routing",
				fmt.Sprintf("provider %q appears more than once in the chain", key))
		}
		seen[key] = true
		r.ordered = append(r.ordered, key)
	}

	return r, nil
}

// Get returns a provider by key
func (r *Registry) Get(key string) (types.Provider, error) {
	provider, exists := r.providers[key]
	if !exists {
		return nil, fmt.Errorf("provider %s not found", key)
	}
	return provider, nil
}

// Providers returns every registered provider
func (r *Registry) Providers() []types.Provider {
	providers := make([]types.Provider, 0, len(r.providers))
	for _, provider := range r.providers {
		providers = append(providers, provider)
	}
	return providers
}

// Descriptor returns the descriptor for a key, nil when unknown
func (r *Registry) Descriptor(key string) *types.ProviderConfig {
	provider, exists := r.providers[key]
	if !exists {
		return nil
	}
	return provider.Descriptor()
}

// OrderedCandidates returns the priority chain filtered to currently
// eligible providers. When the filter leaves nothing, the full chain is
// returned anyway: attempting a possibly-dead provider beats failing without
// trying at all.
func (r *Registry) OrderedCandidates() []types.Provider {
	candidates := make([]types.Provider, 0, len(r.ordered))
	for _, key := range r.ordered {
		if r.tracker.Eligible(key) {
			candidates = append(candidates, r.providers[key])
		}
	}

	if len(candidates) == 0 {
		r.logger.Warn("No provider is currently eligible, attempting full chain in priority order")
		for _, key := range r.ordered {
			candidates = append(candidates, r.providers[key])
		}
	}

	return candidates
}
