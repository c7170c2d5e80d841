// Package types — application configuration tree, unmarshalled by viper
package types

import "time"

// Config represents the full agent configuration
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Routing   RoutingConfig    `mapstructure:"routing"`
	Health    HealthConfig     `mapstructure:"health"`
	Storage   StorageConfig    `mapstructure:"storage"`
	Cache     CacheConfig      `mapstructure:"cache"`
	Providers []ProviderConfig `mapstructure:"providers"`
}

// ServerConfig represents the local HTTP surface configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// RoutingConfig names the primary provider and the ordered fallback chain
type RoutingConfig struct {
	Primary   string   `mapstructure:"primary"`
	Fallbacks []string `mapstructure:"fallbacks"`
	// Budget bounds one orchestrated call across all candidates
	Budget time.Duration `mapstructure:"budget"`
}

// HealthConfig tunes the tracker's eligibility rules and the prober cadence
type HealthConfig struct {
	ErrorCeiling  int           `mapstructure:"error_ceiling"`
	Staleness     time.Duration `mapstructure:"staleness"`
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
}

// StorageConfig points at the local call-history database
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// CacheConfig tunes the analysis result cache
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}
