// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package config

import (
	"strings"
	"time"

	pberr "github.com/patchbay-dev/patchbay/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level patchbay configuration.
type Config struct {
	Server   ServerConfig             `mapstructure:"server"`
	Backends map[string]BackendConfig `mapstructure:"backends"`
	Health   HealthConfig             `mapstructure:"health"`
	Routing  RoutingConfig            `mapstructure:"routing"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// BackendConfig holds one backend's endpoint and optional extra
// operations beyond the built-in catalogue.
type BackendConfig struct {
	Endpoint   string   `mapstructure:"endpoint"`
	Operations []string `mapstructure:"operations"`
}

// HealthConfig tunes the probe cache.
type HealthConfig struct {
	Freshness  time.Duration `mapstructure:"freshness"`
	BackoffCap time.Duration `mapstructure:"backoff_cap"`
	MaxAge     time.Duration `mapstructure:"max_age"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// RoutingConfig declares routing-table extensions.
type RoutingConfig struct {
	// DualBackendOps fan out to the knowledge store and orchestrator.
	// Each listed operation must appear in both backends' operation
	// lists or startup fails.
	DualBackendOps []string `mapstructure:"dual_backend_ops"`
}

// knownBackends are the tags Load accepts under backends:.
var knownBackends = map[string]struct{}{
	"graphstore": {},
	"agentmesh":  {},
	"videoflow":  {},
	"fileworks":  {},
	"gateway":    {},
}

// SetDefaults installs default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", "127.0.0.1:18590")
	v.SetDefault("health.freshness", 10*time.Second)
	v.SetDefault("health.backoff_cap", 60*time.Second)
	v.SetDefault("health.max_age", 5*time.Minute)
	v.SetDefault("health.max_entries", 100)

	v.SetDefault("backends.graphstore.endpoint", "http://127.0.0.1:8101")
	v.SetDefault("backends.agentmesh.endpoint", "http://127.0.0.1:8102")
	v.SetDefault("backends.videoflow.endpoint", "http://127.0.0.1:8103")
	v.SetDefault("backends.fileworks.endpoint", "http://127.0.0.1:8104")
	v.SetDefault("backends.gateway.endpoint", "http://127.0.0.1:8105")
}

// SetupEnv binds PATCHBAY_-prefixed environment variables.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("PATCHBAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from path (or defaults when path is empty)
// with environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, pberr.Errorf(pberr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates a Config from an initialized viper.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, pberr.Errorf(pberr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural invariants the router depends on.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return pberr.New(pberr.CodeConfigValidateInvalidValue, "server.listen is required")
	}
	if len(c.Backends) == 0 {
		return pberr.New(pberr.CodeConfigValidateInvalidValue, "at least one backend is required")
	}
	for name, b := range c.Backends {
		if _, ok := knownBackends[name]; !ok {
			return pberr.New(pberr.CodeConfigValidateInvalidValue,
				"unknown backend "+name, pberr.FieldBackend(name))
		}
		if b.Endpoint == "" {
			return pberr.New(pberr.CodeConfigValidateInvalidValue,
				"backend "+name+" has no endpoint", pberr.FieldBackend(name))
		}
	}
	if c.Health.MaxEntries < 0 {
		return pberr.Errorf(pberr.CodeConfigValidateInvalidValue,
			"health.max_entries must be non-negative, got %d", c.Health.MaxEntries)
	}
	return nil
}
