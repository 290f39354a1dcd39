package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override file settings.
const (
	EnvBackendURL = "TICKETSCOPE_BACKEND_URL"
	EnvAnonKey    = "TICKETSCOPE_ANON_KEY"
	EnvServiceKey = "TICKETSCOPE_SERVICE_KEY"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Backend  BackendConfig  `toml:"backend"`
	Query    QueryConfig    `toml:"query"`
	Filters  FiltersConfig  `toml:"filters"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// BackendConfig points at the hosted ticketing backend.
//
// Mode "rest" talks to the REST gateway and edge functions; mode "postgres"
// calls the same RPC functions over a direct database connection.
type BackendConfig struct {
	URL            string  `toml:"url" validate:"required_if=Mode rest"`
	AnonKey        string  `toml:"anon_key"`
	ServiceKey     string  `toml:"service_key"`
	Mode           string  `toml:"mode" validate:"oneof=rest postgres"`
	PostgresDSN    string  `toml:"postgres_dsn" validate:"required_if=Mode postgres"`
	TimeoutSeconds int     `toml:"timeout_seconds" validate:"min=1,max=300"`
	RateLimit      float64 `toml:"rate_limit" validate:"gte=0"`
}

// Timeout returns the request timeout as a [time.Duration].
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// Key returns the key sent with requests, preferring the service key.
func (b BackendConfig) Key() string {
	if b.ServiceKey != "" {
		return b.ServiceKey
	}
	return b.AnonKey
}

// QueryConfig tunes the query cache.
type QueryConfig struct {
	StaleMinutes int  `toml:"stale_minutes" validate:"min=0"`
	MaxRetries   int  `toml:"max_retries" validate:"min=0,max=10"`
	Persist      bool `toml:"persist"`
}

// StaleTime returns how long cached results stay fresh.
func (q QueryConfig) StaleTime() time.Duration {
	return time.Duration(q.StaleMinutes) * time.Minute
}

// FiltersConfig tunes list pages.
type FiltersConfig struct {
	DebounceMS int `toml:"debounce_ms" validate:"min=0,max=5000"`
	PageSize   int `toml:"page_size" validate:"min=1,max=500"`
}

// Debounce returns the search debounce delay.
func (f FiltersConfig) Debounce() time.Duration {
	return time.Duration(f.DebounceMS) * time.Millisecond
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" validate:"required"`
	MaxOpenConns int    `toml:"max_open_conns" validate:"min=0"`
	MaxIdleConns int    `toml:"max_idle_conns" validate:"min=0"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"min=1,max=65535"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level" validate:"omitempty,oneof=debug info warn error fatal"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values, and environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}

	config.ApplyEnv(os.Getenv)
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overrides backend settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvBackendURL); v != "" {
		c.Backend.URL = v
	}
	if v := getenv(EnvAnonKey); v != "" {
		c.Backend.AnonKey = v
	}
	if v := getenv(EnvServiceKey); v != "" {
		c.Backend.ServiceKey = v
	}
}

// Validate checks field constraints. Failures wrap [ErrInvalidConfig].
func (c *Config) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
