// Package config provides configuration management for the deskpilot agent
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/deskpilot/deskpilot/pkg/errors"
	"github.com/deskpilot/deskpilot/pkg/types"
)

// Manager handles configuration loading and management
type Manager struct {
	config *types.Config
	viper  *viper.Viper
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{
		viper: viper.New(),
	}
}

// Load loads configuration from .env, config file and environment variables
func (m *Manager) Load() error {
	// API keys live in .env or the real environment, never in config.yaml.
	// A missing .env is fine.
	_ = godotenv.Load()

	m.setDefaults()

	m.viper.SetConfigName("config")
	m.viper.SetConfigType("yaml")
	m.viper.AddConfigPath("./configs")
	m.viper.AddConfigPath(".")

	m.viper.AutomaticEnv()
	m.viper.SetEnvPrefix("DESKPILOT")
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	config := &types.Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults. The agent serves local UI panels only.
	m.viper.SetDefault("server.host", "127.0.0.1")
	m.viper.SetDefault("server.port", 8710)
	m.viper.SetDefault("server.read_timeout", "30s")
	m.viper.SetDefault("server.write_timeout", "120s")
	m.viper.SetDefault("server.idle_timeout", "120s")

	// Logging defaults
	m.viper.SetDefault("logging.level", "info")
	m.viper.SetDefault("logging.format", "text")
	m.viper.SetDefault("logging.output", "stdout")

	// Routing defaults
	m.viper.SetDefault("routing.budget", "90s")

	// Health defaults
	m.viper.SetDefault("health.error_ceiling", 5)
	m.viper.SetDefault("health.staleness", "5m")
	m.viper.SetDefault("health.probe_interval", "2m")
	m.viper.SetDefault("health.probe_timeout", "10s")

	// Storage defaults
	m.viper.SetDefault("storage.enabled", true)
	m.viper.SetDefault("storage.path", "deskpilot.db")

	// Cache defaults
	m.viper.SetDefault("cache.enabled", true)
	m.viper.SetDefault("cache.ttl", "10m")
}

// Get returns the current configuration
func (m *Manager) Get() *types.Config {
	return m.config
}

// Watch starts watching for configuration changes. Only the logging level is
// applied live; the provider set is fixed for the process lifetime so that
// health state stays meaningful.
func (m *Manager) Watch(callback func(*types.Config)) {
	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		config := &types.Config{}
		if err := m.viper.Unmarshal(config); err != nil {
			return
		}
		m.config = config
		if callback != nil {
			callback(config)
		}
	})
}

// Validate validates the configuration. Any error here is fatal: the agent
// must not start serving traffic with a broken provider set.
func Validate(cfg *types.Config) error {
	if cfg == nil {
		return errors.NewConfigError("root", "configuration not loaded")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.NewConfigError("server.port", fmt.Sprintf("invalid port: %d", cfg.Server.Port))
	}

	enabled := make(map[string]bool)
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.Key == "" {
			return errors.NewConfigError("providers", "provider key cannot be empty")
		}
		if _, dup := enabled[p.Key]; dup {
			return errors.NewConfigError("providers", fmt.Sprintf("duplicate provider key %q", p.Key))
		}
		if !p.Enabled {
			enabled[p.Key] = false
			continue
		}
		if err := validateProvider(p); err != nil {
			return err
		}
		enabled[p.Key] = true
	}

	if cfg.Routing.Primary == "" {
		return errors.NewConfigError("routing.primary", "primary provider key is required")
	}
	if !enabled[cfg.Routing.Primary] {
		return errors.NewConfigError("routing.primary",
			fmt.Sprintf("provider %q is not an enabled provider", cfg.Routing.Primary))
	}
	for _, key := range cfg.Routing.Fallbacks {
		if !enabled[key] {
			return errors.NewConfigError("routing.fallbacks",
				fmt.Sprintf("provider %q is not an enabled provider", key))
		}
	}

	if cfg.Health.ErrorCeiling <= 0 {
		return errors.NewConfigError("health.error_ceiling", "must be positive")
	}
	if cfg.Health.Staleness <= 0 {
		return errors.NewConfigError("health.staleness", "must be positive")
	}
	if cfg.Health.ProbeInterval <= 0 {
		return errors.NewConfigError("health.probe_interval", "must be positive")
	}
	if cfg.Health.ProbeTimeout <= 0 || cfg.Health.ProbeTimeout >= cfg.Health.ProbeInterval {
		return errors.NewConfigError("health.probe_timeout", "must be positive and shorter than probe_interval")
	}

	return nil
}

// validateProvider checks the connection settings of one enabled provider
func validateProvider(p *types.ProviderConfig) error {
	field := "providers." + p.Key
	switch p.Dialect {
	case types.DialectOpenAI, types.DialectAnthropic:
	default:
		return errors.NewConfigError(field, fmt.Sprintf("unknown dialect %q", p.Dialect))
	}
	if p.BaseURL == "" {
		return errors.NewConfigError(field, "base_url is required")
	}
	if p.Model == "" {
		return errors.NewConfigError(field, "model is required")
	}
	if p.APIKeyEnv == "" {
		return errors.NewConfigError(field, "api_key_env is required; credentials are sourced from the environment")
	}
	if p.Timeout < 0 {
		return errors.NewConfigError(field, "timeout cannot be negative")
	}
	if p.Timeout == 0 {
		p.Timeout = 30 * time.Second
	}
	return nil
}
