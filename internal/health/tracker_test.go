package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskpilot/deskpilot/pkg/types"
)

func newTestTracker() *Tracker {
	return NewTracker(DefaultTrackerConfig())
}

func TestTrackerRegister(t *testing.T) {
	tracker := newTestTracker()
	tracker.Register("alpha")

	snapshot := tracker.Snapshot()
	require.Contains(t, snapshot, "alpha")
	assert.Equal(t, types.HealthUnknown, snapshot["alpha"].Status)
	assert.Equal(t, 0, snapshot["alpha"].ErrorCount)
	assert.Nil(t, snapshot["alpha"].LastCheck)
	assert.Nil(t, snapshot["alpha"].ResponseTimeMs)

	t.Run("ReRegisterKeepsState", func(t *testing.T) {
		tracker.RecordFailure("alpha")
		tracker.Register("alpha")
		assert.Equal(t, 1, tracker.Snapshot()["alpha"].ErrorCount)
	})
}

func TestTrackerRecordSuccess(t *testing.T) {
	tracker := newTestTracker()
	tracker.Register("alpha")

	tracker.RecordSuccess("alpha", 120*time.Millisecond)

	status := tracker.Snapshot()["alpha"]
	assert.Equal(t, types.HealthHealthy, status.Status)
	assert.Equal(t, 0, status.ErrorCount)
	require.NotNil(t, status.ResponseTimeMs)
	assert.Equal(t, int64(120), *status.ResponseTimeMs)
	assert.NotNil(t, status.LastCheck)
}

func TestTrackerRecordFailure(t *testing.T) {
	tracker := newTestTracker()
	tracker.Register("alpha")
	tracker.RecordSuccess("alpha", 80*time.Millisecond)

	tracker.RecordFailure("alpha")
	tracker.RecordFailure("alpha")

	status := tracker.Snapshot()["alpha"]
	assert.Equal(t, types.HealthError, status.Status)
	assert.Equal(t, 2, status.ErrorCount)
	// Failures keep the last known response time
	require.NotNil(t, status.ResponseTimeMs)
	assert.Equal(t, int64(80), *status.ResponseTimeMs)
}

// Any success resets the consecutive-error count, regardless of prior count
func TestTrackerErrorCountReset(t *testing.T) {
	tracker := newTestTracker()
	tracker.Register("alpha")

	for i := 0; i < 17; i++ {
		tracker.RecordFailure("alpha")
	}
	assert.Equal(t, 17, tracker.Snapshot()["alpha"].ErrorCount)

	tracker.RecordSuccess("alpha", 50*time.Millisecond)
	status := tracker.Snapshot()["alpha"]
	assert.Equal(t, 0, status.ErrorCount)
	assert.Equal(t, types.HealthHealthy, status.Status)
}

func TestTrackerEligibility(t *testing.T) {
	t.Run("UnknownIsEligible", func(t *testing.T) {
		tracker := newTestTracker()
		tracker.Register("alpha")
		assert.True(t, tracker.Eligible("alpha"))
	})

	t.Run("HealthyIsEligible", func(t *testing.T) {
		tracker := newTestTracker()
		tracker.Register("alpha")
		tracker.RecordSuccess("alpha", time.Millisecond)
		assert.True(t, tracker.Eligible("alpha"))
	})

	t.Run("RecentErrorIsNotEligible", func(t *testing.T) {
		tracker := newTestTracker()
		tracker.Register("alpha")
		tracker.RecordFailure("alpha")
		assert.False(t, tracker.Eligible("alpha"))
	})

	t.Run("UnregisteredIsNotEligible", func(t *testing.T) {
		tracker := newTestTracker()
		assert.False(t, tracker.Eligible("ghost"))
	})
}

// A provider stuck in state error becomes eligible again once the staleness
// window has elapsed, without an explicit successful probe first
func TestTrackerStalenessRecovery(t *testing.T) {
	tracker := NewTracker(TrackerConfig{ErrorCeiling: 5, Staleness: 5 * time.Minute})
	tracker.Register("alpha")

	for i := 0; i < 6; i++ {
		tracker.RecordFailure("alpha")
	}
	assert.False(t, tracker.Eligible("alpha"))

	tracker.now = func() time.Time { return time.Now().Add(6 * time.Minute) }
	assert.True(t, tracker.Eligible("alpha"))
}

// Reading the snapshot twice with no intervening writes yields identical
// data, and mutating the returned copy never touches tracker state
func TestTrackerSnapshotIdempotent(t *testing.T) {
	tracker := newTestTracker()
	tracker.Register("alpha")
	tracker.Register("beta")
	tracker.RecordSuccess("alpha", 42*time.Millisecond)
	tracker.RecordFailure("beta")

	first := tracker.Snapshot()
	second := tracker.Snapshot()
	assert.Equal(t, first, second)

	*first["alpha"].ResponseTimeMs = 9999
	third := tracker.Snapshot()
	assert.Equal(t, int64(42), *third["alpha"].ResponseTimeMs)
}

// Recording an outcome for one provider never mutates another's record
func TestTrackerNoCrossKeyInterference(t *testing.T) {
	tracker := newTestTracker()
	tracker.Register("alpha")
	tracker.Register("beta")
	tracker.RecordSuccess("beta", 30*time.Millisecond)

	before := tracker.Snapshot()["beta"]
	for i := 0; i < 10; i++ {
		tracker.RecordFailure("alpha")
	}
	after := tracker.Snapshot()["beta"]

	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.ErrorCount, after.ErrorCount)
	assert.Equal(t, *before.ResponseTimeMs, *after.ResponseTimeMs)
}

func TestTrackerConcurrentWriters(t *testing.T) {
	tracker := newTestTracker()
	tracker.Register("alpha")
	tracker.Register("beta")

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				if i%2 == 0 {
					tracker.RecordSuccess("alpha", time.Millisecond)
				} else {
					tracker.RecordFailure("beta")
				}
				tracker.Eligible("alpha")
				tracker.Snapshot()
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	snapshot := tracker.Snapshot()
	assert.Equal(t, types.HealthHealthy, snapshot["alpha"].Status)
	assert.Equal(t, types.HealthError, snapshot["beta"].Status)
	assert.Equal(t, 200, snapshot["beta"].ErrorCount)
}
