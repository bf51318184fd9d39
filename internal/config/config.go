// Package config loads and validates application configuration from a YAML
// file and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Backend       BackendConfig       `yaml:"backend"`
	Session       SessionConfig       `yaml:"session"`
	Definitions   DefinitionsConfig   `yaml:"definitions"`
	Spec          SpecConfig          `yaml:"spec"`
	Lookup        LookupCacheConfig   `yaml:"lookup"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig describes Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// BackendConfig describes the training-center API. BaseURL is the single
// externally tunable deployment knob: local vs production host.
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	// Timeout is deliberately generous so slow image uploads complete;
	// exceeding it surfaces a BACKEND_TIMEOUT error kind.
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig describes the admin session store.
type SessionConfig struct {
	Driver    string        `yaml:"driver"` // "memory" or "redis"
	AddrEnv   string        `yaml:"addr_env"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
	SecretEnv string        `yaml:"secret_env"`
	// Secret is resolved from SecretEnv at load time; never set it in YAML.
	Secret string `yaml:"-"`
}

// DefinitionsConfig describes where to find resource definition YAML files.
type DefinitionsConfig struct {
	Directory string `yaml:"directory"`
}

// SpecConfig points at the training-center API's OpenAPI document, used to
// validate resource definitions at startup.
type SpecConfig struct {
	Path string `yaml:"path"`
}

// LookupCacheConfig describes the foreign-key option cache.
type LookupCacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     2 * time.Minute,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Correlation-Id"},
				MaxAge:         86400,
			},
		},
		Backend: BackendConfig{
			Timeout: 90 * time.Second,
		},
		Session: SessionConfig{
			Driver:    "memory",
			AddrEnv:   "BACKOFFICE_REDIS_ADDR",
			TTL:       12 * time.Hour,
			SecretEnv: "BACKOFFICE_SESSION_SECRET",
		},
		Definitions: DefinitionsConfig{
			Directory: "definitions",
		},
		Spec: SpecConfig{
			Path: "specs/training-api.yaml",
		},
		Lookup: LookupCacheConfig{
			TTL:        5 * time.Minute,
			MaxEntries: 1000,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// resolves secrets, and validates required fields.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	cfg.Session.Secret = os.Getenv(cfg.Session.SecretEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Backend.BaseURL == "" {
		errs = append(errs, "backend.base_url is required")
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, "backend.timeout must be positive")
	}
	if c.Session.Driver != "memory" && c.Session.Driver != "redis" {
		errs = append(errs, fmt.Sprintf("session.driver %q is not supported", c.Session.Driver))
	}
	if c.Session.Secret == "" {
		errs = append(errs, fmt.Sprintf("session secret missing: set %s", c.Session.SecretEnv))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads BACKOFFICE_* environment variables and overrides
// the most commonly tuned fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BACKOFFICE_SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BACKOFFICE_BACKEND_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("BACKOFFICE_SESSION_DRIVER"); v != "" {
		cfg.Session.Driver = v
	}
	if v := os.Getenv("BACKOFFICE_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
}
