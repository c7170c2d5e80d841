// Package health maintains per-provider health records and the background
// prober that keeps them fresh independent of user traffic.
package health

import (
	"sync"
	"time"

	"github.com/deskpilot/deskpilot/pkg/types"
)

// record is the mutable health state of one provider. Mutated only through
// the Tracker's Record* operations.
type record struct {
	state          types.HealthState
	lastCheck      *time.Time
	responseTimeMs *int64
	errorCount     int
}

// TrackerConfig tunes the eligibility classification rules
type TrackerConfig struct {
	// ErrorCeiling is the consecutive-error count above which an unknown
	// provider stops being eligible.
	ErrorCeiling int
	// Staleness is the cool-down after which a provider is re-tried even
	// without a successful probe.
	Staleness time.Duration
}

// DefaultTrackerConfig returns the default classification rules
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		ErrorCeiling: 5,
		Staleness:    5 * time.Minute,
	}
}

// Tracker maintains one health record per registered provider key. It is
// pure state plus classification rules; it never performs I/O. Safe for
// concurrent use by traffic and the background prober.
type Tracker struct {
	config  TrackerConfig
	mu      sync.RWMutex
	records map[string]*record
	now     func() time.Time
}

// NewTracker creates a tracker with the given classification rules
func NewTracker(config TrackerConfig) *Tracker {
	return &Tracker{
		config:  config,
		records: make(map[string]*record),
		now:     time.Now,
	}
}

// Register creates the record for a provider key with state unknown.
// Registering an already-known key is a no-op so health survives reloads.
func (t *Tracker) Register(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.records[key]; exists {
		return
	}
	t.records[key] = &record{state: types.HealthUnknown}
}

// RecordSuccess marks a successful call: state healthy, error count reset,
// response time and check timestamp stored.
func (t *Tracker) RecordSuccess(key string, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, exists := t.records[key]
	if !exists {
		return
	}
	now := t.now()
	ms := elapsed.Milliseconds()
	rec.state = types.HealthHealthy
	rec.errorCount = 0
	rec.lastCheck = &now
	rec.responseTimeMs = &ms
}

// RecordFailure marks a failed call: state error, error count incremented,
// check timestamp stored. The last known response time is kept as-is.
func (t *Tracker) RecordFailure(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, exists := t.records[key]
	if !exists {
		return
	}
	now := t.now()
	rec.state = types.HealthError
	rec.errorCount++
	rec.lastCheck = &now
}

// Eligible reports whether a provider may currently be attempted. A provider
// qualifies when it is healthy, when it is still unknown and below the error
// ceiling, or when its last check is older than the staleness window. The
// staleness clause ensures a provider that failed once is re-tried after the
// cool-down instead of staying excluded forever.
func (t *Tracker) Eligible(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, exists := t.records[key]
	if !exists {
		return false
	}
	if rec.state == types.HealthHealthy {
		return true
	}
	if rec.state == types.HealthUnknown && rec.errorCount < t.config.ErrorCeiling {
		return true
	}
	if rec.lastCheck != nil && t.now().Sub(*rec.lastCheck) > t.config.Staleness {
		return true
	}
	return false
}

// Snapshot returns a read-only copy of every record. Reading has no side
// effects and the returned values share no memory with tracker state.
func (t *Tracker) Snapshot() map[string]types.ProviderStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]types.ProviderStatus, len(t.records))
	for key, rec := range t.records {
		status := types.ProviderStatus{
			Status:     rec.state,
			ErrorCount: rec.errorCount,
		}
		if rec.lastCheck != nil {
			ts := *rec.lastCheck
			status.LastCheck = &ts
		}
		if rec.responseTimeMs != nil {
			ms := *rec.responseTimeMs
			status.ResponseTimeMs = &ms
		}
		result[key] = status
	}
	return result
}

// Keys returns the registered provider keys
func (t *Tracker) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := make([]string, 0, len(t.records))
	for key := range t.records {
		keys = append(keys, key)
	}
	return keys
}
