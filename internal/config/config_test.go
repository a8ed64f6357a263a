// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/patchbay-dev/patchbay/internal/config"
	pberr "github.com/patchbay-dev/patchbay/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:18590", cfg.Server.Listen)
	assert.Equal(t, 10*time.Second, cfg.Health.Freshness)
	assert.Equal(t, 60*time.Second, cfg.Health.BackoffCap)
	assert.Equal(t, 5*time.Minute, cfg.Health.MaxAge)
	assert.Equal(t, 100, cfg.Health.MaxEntries)

	require.Len(t, cfg.Backends, 5)
	assert.Equal(t, "http://127.0.0.1:8101", cfg.Backends["graphstore"].Endpoint)
	assert.Equal(t, "http://127.0.0.1:8105", cfg.Backends["gateway"].Endpoint)
	assert.Empty(t, cfg.Routing.DualBackendOps)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patchbay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen: "0.0.0.0:9000"
backends:
  graphstore:
    endpoint: "http://graphstore.internal:8101"
    operations:
      - merge-insights
  agentmesh:
    operations:
      - merge-insights
health:
  freshness: 30s
routing:
  dual_backend_ops:
    - merge-insights
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Listen)
	assert.Equal(t, "http://graphstore.internal:8101", cfg.Backends["graphstore"].Endpoint)
	// File values merge over defaults rather than replacing them.
	assert.Equal(t, "http://127.0.0.1:8102", cfg.Backends["agentmesh"].Endpoint)
	assert.Equal(t, []string{"merge-insights"}, cfg.Backends["agentmesh"].Operations)
	assert.Equal(t, 30*time.Second, cfg.Health.Freshness)
	assert.Equal(t, 60*time.Second, cfg.Health.BackoffCap)
	assert.Equal(t, []string{"merge-insights"}, cfg.Routing.DualBackendOps)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, pberr.HasCode(err, pberr.CodeConfigLoadReadFailure))
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PATCHBAY_SERVER_LISTEN", "127.0.0.1:7777")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7777", cfg.Server.Listen)
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			Server: config.ServerConfig{Listen: "127.0.0.1:18590"},
			Backends: map[string]config.BackendConfig{
				"graphstore": {Endpoint: "http://127.0.0.1:8101"},
			},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing listen", func(t *testing.T) {
		cfg := base()
		cfg.Server.Listen = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, pberr.HasCode(err, pberr.CodeConfigValidateInvalidValue))
	})

	t.Run("no backends", func(t *testing.T) {
		cfg := base()
		cfg.Backends = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := base()
		cfg.Backends["mystery"] = config.BackendConfig{Endpoint: "http://x"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mystery")
	})

	t.Run("backend without endpoint", func(t *testing.T) {
		cfg := base()
		cfg.Backends["videoflow"] = config.BackendConfig{}
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative cache bound", func(t *testing.T) {
		cfg := base()
		cfg.Health.MaxEntries = -1
		assert.Error(t, cfg.Validate())
	})
}

func TestBootstrapYAMLParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	require.NoError(t, os.WriteFile(path, config.DefaultConfigYAML, 0o600))

	v := viper.New()
	config.SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:18590", cfg.Server.Listen)
}
