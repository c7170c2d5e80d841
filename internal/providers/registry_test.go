package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskpilot/deskpilot/internal/health"
	"github.com/deskpilot/deskpilot/pkg/errors"
	"github.com/deskpilot/deskpilot/pkg/types"
	"github.com/deskpilot/deskpilot/pkg/utils"
)

func testProviderConfig(key string) types.ProviderConfig {
	return types.ProviderConfig{
		Key:       key,
		Name:      "Test " + key,
		Dialect:   types.DialectOpenAI,
		BaseURL:   "http://127.0.0.1:1",
		APIKeyEnv: "DESKPILOT_TEST_KEY",
		Model:     "test-model",
		MaxTokens: 64,
		Enabled:   true,
		Timeout:   time.Second,
	}
}

func testConfig(primary string, fallbacks []string, providers ...types.ProviderConfig) *types.Config {
	return &types.Config{
		Routing:   types.RoutingConfig{Primary: primary, Fallbacks: fallbacks},
		Providers: providers,
	}
}

func TestNewRegistry(t *testing.T) {
	t.Setenv("DESKPILOT_TEST_KEY", "sk-test")
	tracker := health.NewTracker(health.DefaultTrackerConfig())

	cfg := testConfig("alpha", []string{"beta"},
		testProviderConfig("alpha"), testProviderConfig("beta"))

	registry, err := NewRegistry(cfg, tracker, utils.NewTestLogger())
	require.NoError(t, err)
	assert.Len(t, registry.Providers(), 2)

	// registry provider set and tracker key set stay in 1:1 correspondence
	assert.ElementsMatch(t, []string{"alpha", "beta"}, tracker.Keys())

	provider, err := registry.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", provider.Key())

	_, err = registry.Get("ghost")
	assert.Error(t, err)
}

func TestNewRegistryConfigErrors(t *testing.T) {
	t.Setenv("DESKPILOT_TEST_KEY", "sk-test")
	logger := utils.NewTestLogger()

	t.Run("PrimaryNotEnabled", func(t *testing.T) {
		disabled := testProviderConfig("alpha")
		disabled.Enabled = false
		cfg := testConfig("alpha", nil, disabled)

		_, err := NewRegistry(cfg, health.NewTracker(health.DefaultTrackerConfig()), logger)
		var cfgErr *errors.ConfigError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("UnknownFallback", func(t *testing.T) {
		cfg := testConfig("alpha", []string{"ghost"}, testProviderConfig("alpha"))

		_, err := NewRegistry(cfg, health.NewTracker(health.DefaultTrackerConfig()), logger)
		var cfgErr *errors.ConfigError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("DuplicateChainEntry", func(t *testing.T) {
		cfg := testConfig("alpha", []string{"alpha"}, testProviderConfig("alpha"))

		_, err := NewRegistry(cfg, health.NewTracker(health.DefaultTrackerConfig()), logger)
		assert.Error(t, err)
	})

	t.Run("MissingCredential", func(t *testing.T) {
		pc := testProviderConfig("alpha")
		pc.APIKeyEnv = "DESKPILOT_UNSET_KEY"
		cfg := testConfig("alpha", nil, pc)

		_, err := NewRegistry(cfg, health.NewTracker(health.DefaultTrackerConfig()), logger)
		var cfgErr *errors.ConfigError
		require.ErrorAs(t, err, &cfgErr)
	})
}

func TestOrderedCandidates(t *testing.T) {
	t.Setenv("DESKPILOT_TEST_KEY", "sk-test")
	tracker := health.NewTracker(health.DefaultTrackerConfig())

	cfg := testConfig("alpha", []string{"beta", "gamma"},
		testProviderConfig("alpha"), testProviderConfig("beta"), testProviderConfig("gamma"))

	registry, err := NewRegistry(cfg, tracker, utils.NewTestLogger())
	require.NoError(t, err)

	keysOf := func(providers []types.Provider) []string {
		keys := make([]string, len(providers))
		for i, p := range providers {
			keys[i] = p.Key()
		}
		return keys
	}

	t.Run("AllUnknownInPriorityOrder", func(t *testing.T) {
		assert.Equal(t, []string{"alpha", "beta", "gamma"}, keysOf(registry.OrderedCandidates()))
	})

	t.Run("IneligibleFilteredOut", func(t *testing.T) {
		tracker.RecordFailure("beta")
		assert.Equal(t, []string{"alpha", "gamma"}, keysOf(registry.OrderedCandidates()))
		tracker.RecordSuccess("beta", time.Millisecond)
	})

	t.Run("EmptyFilterFallsBackToFullChain", func(t *testing.T) {
		for _, key := range []string{"alpha", "beta", "gamma"} {
			tracker.RecordFailure(key)
		}
		assert.Equal(t, []string{"alpha", "beta", "gamma"}, keysOf(registry.OrderedCandidates()))
	})
}

// A single provider that keeps failing past the error ceiling must still be
// attempted on the next call rather than yielding an empty candidate list
func TestOrderedCandidatesSingleFailingProvider(t *testing.T) {
	t.Setenv("DESKPILOT_TEST_KEY", "sk-test")
	tracker := health.NewTracker(health.DefaultTrackerConfig())

	cfg := testConfig("only", nil, testProviderConfig("only"))
	registry, err := NewRegistry(cfg, tracker, utils.NewTestLogger())
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		tracker.RecordFailure("only")
	}
	assert.False(t, tracker.Eligible("only"))

	candidates := registry.OrderedCandidates()
	require.Len(t, candidates, 1)
	assert.Equal(t, "only", candidates[0].Key())
}
