package health

import (
	"context"
	"sync"
	"time"

	"github.com/deskpilot/deskpilot/pkg/types"
	"github.com/deskpilot/deskpilot/pkg/utils"
)

// ProberConfig tunes the background probing cadence
type ProberConfig struct {
	Interval time.Duration
	// Timeout bounds each individual probe so one hanging provider cannot
	// block the round.
	Timeout time.Duration
}

// DefaultProberConfig returns the default probing cadence
func DefaultProberConfig() ProberConfig {
	return ProberConfig{
		Interval: 2 * time.Minute,
		Timeout:  10 * time.Second,
	}
}

// Prober exercises every registered provider with a minimal self-test call
// on a fixed interval and feeds the outcomes into the Tracker. Probe
// failures are ordinary health failures, never system-level errors.
type Prober struct {
	config    ProberConfig
	tracker   *Tracker
	providers []types.Provider
	logger    *utils.Logger
	stopCh    chan struct{}
	stopped   bool
	stoppedMu sync.Mutex
}

// NewProber creates a prober over the given providers
func NewProber(config ProberConfig, tracker *Tracker, providers []types.Provider, logger *utils.Logger) *Prober {
	return &Prober{
		config:    config,
		tracker:   tracker,
		providers: providers,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start begins periodic probing. The first round runs immediately.
func (p *Prober) Start() {
	p.stoppedMu.Lock()
	if p.stopped {
		p.stoppedMu.Unlock()
		return
	}
	p.stoppedMu.Unlock()

	ticker := time.NewTicker(p.config.Interval)
	go func() {
		defer ticker.Stop()

		p.ProbeAll()

		for {
			select {
			case <-ticker.C:
				p.ProbeAll()
			case <-p.stopCh:
				return
			}
		}
	}()
}

// Stop stops probing. Safe to call more than once.
func (p *Prober) Stop() {
	p.stoppedMu.Lock()
	defer p.stoppedMu.Unlock()

	if !p.stopped {
		p.stopped = true
		close(p.stopCh)
	}
}

// ProbeAll probes every provider concurrently. Probes are independent; they
// share no state except the tracker, whose updates are per-key.
func (p *Prober) ProbeAll() {
	var wg sync.WaitGroup
	for _, provider := range p.providers {
		wg.Add(1)
		go func(prov types.Provider) {
			defer wg.Done()
			p.probe(prov)
		}(provider)
	}
	wg.Wait()
}

// probe runs one self-test call with its own timeout
func (p *Prober) probe(provider types.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
	defer cancel()

	start := time.Now()
	err := provider.HealthCheck(ctx)
	elapsed := time.Since(start)

	if err != nil {
		p.tracker.RecordFailure(provider.Key())
		p.logger.WithProvider(provider.Key()).
			WithField("duration_ms", elapsed.Milliseconds()).
			WithError(err).
			Warn("Provider health probe failed")
		return
	}

	p.tracker.RecordSuccess(provider.Key(), elapsed)
	p.logger.WithProvider(provider.Key()).
		WithField("duration_ms", elapsed.Milliseconds()).
		Debug("Provider health probe succeeded")
}
