// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package config

import (
	"log/slog"
	"os"
	"path/filepath"

	pberr "github.com/patchbay-dev/patchbay/pkg/errors"
)

// DefaultConfigPath returns ~/.config/patchbay/patchbay.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", pberr.Errorf(pberr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "patchbay", "patchbay.yaml"), nil
}

// DefaultConfigYAML mirrors SetDefaults for the bootstrapped file.
var DefaultConfigYAML = []byte(`# patchbay dispatch layer configuration
server:
  listen: 127.0.0.1:18590
  # cors_origins:
  #   - http://localhost:3000

backends:
  graphstore:
    endpoint: http://127.0.0.1:8101
  agentmesh:
    endpoint: http://127.0.0.1:8102
  videoflow:
    endpoint: http://127.0.0.1:8103
  fileworks:
    endpoint: http://127.0.0.1:8104
  gateway:
    endpoint: http://127.0.0.1:8105

health:
  freshness: 10s
  backoff_cap: 60s
  max_age: 5m
  max_entries: 100

routing:
  # Operations listed here fan out to graphstore and agentmesh. Each must
  # appear in both backends' operations lists or startup fails.
  dual_backend_ops: []
`)

// BootstrapConfig writes the default config to the standard path if it
// does not already exist. Returns the path written, or empty string if
// the file already existed or an error occurred (non-fatal, logged).
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}

	if _, err := os.Stat(cfgPath); err == nil {
		return "" // already exists
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		slog.Debug("skipping config bootstrap: cannot create directory", "path", dir, "error", err)
		return ""
	}

	if err := os.WriteFile(cfgPath, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("skipping config bootstrap: cannot write config", "path", cfgPath, "error", err)
		return ""
	}

	slog.Info("created default config", "path", cfgPath)
	return cfgPath
}
