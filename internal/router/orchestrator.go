// Package router implements the fallback orchestration over the provider set
package router

import (
	"context"
	"time"

	"github.com/deskpilot/deskpilot/internal/health"
	"github.com/deskpilot/deskpilot/pkg/errors"
	"github.com/deskpilot/deskpilot/pkg/types"
	"github.com/deskpilot/deskpilot/pkg/utils"
)

// CandidateSource yields the providers to attempt, best first
type CandidateSource interface {
	OrderedCandidates() []types.Provider
}

// Config tunes the orchestrator
type Config struct {
	// Budget bounds one Execute call across all candidate attempts
	Budget time.Duration
}

// DefaultConfig returns the default orchestrator configuration
func DefaultConfig() Config {
	return Config{Budget: 90 * time.Second}
}

// Orchestrator runs the failover algorithm: try candidates strictly in
// priority order, record each outcome into the tracker, return the first
// success. It holds no mutable state of its own.
type Orchestrator struct {
	config     Config
	candidates CandidateSource
	tracker    *health.Tracker
	logger     *utils.Logger
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(config Config, candidates CandidateSource, tracker *health.Tracker, logger *utils.Logger) *Orchestrator {
	return &Orchestrator{
		config:     config,
		candidates: candidates,
		tracker:    tracker,
		logger:     logger,
	}
}

// Execute attempts the request against each candidate until one succeeds.
// Candidates are tried sequentially; a provider is never retried within one
// Execute call — re-trying failed providers is the prober's job, keeping
// worst-case latency on the hot path bounded.
//
// Exhaustion returns an AggregateError naming the last provider tried. An
// empty candidate list returns ErrNoProviders, so callers can tell a
// configuration bug from a transient outage.
func (o *Orchestrator) Execute(ctx context.Context, req *types.CallRequest) (*types.CallResult, error) {
	if o.config.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.Budget)
		defer cancel()
	}

	candidates := o.candidates.OrderedCandidates()
	if len(candidates) == 0 {
		return nil, errors.ErrNoProviders
	}

	var lastErr error
	var lastKey string
	attempts := 0

	for _, provider := range candidates {
		if err := ctx.Err(); err != nil {
			break
		}

		attempts++
		lastKey = provider.Key()

		start := time.Now()
		result, err := provider.Call(ctx, req.Prompt, req.Content, req.Options)
		elapsed := time.Since(start)

		if err != nil {
			o.tracker.RecordFailure(provider.Key())
			o.logger.WithProvider(provider.Key()).
				WithField("duration_ms", elapsed.Milliseconds()).
				WithError(err).
				Warn("Candidate failed, trying next")
			lastErr = err
			continue
		}

		o.tracker.RecordSuccess(provider.Key(), elapsed)
		result.Provider = provider.Key()
		result.ResponseTimeMs = elapsed.Milliseconds()
		return result, nil
	}

	if attempts == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errors.ErrNoProviders
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return nil, &errors.AggregateError{
		Attempts:     attempts,
		LastProvider: lastKey,
		Err:          lastErr,
	}
}
