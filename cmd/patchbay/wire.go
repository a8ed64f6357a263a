// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package main

import (
	"log/slog"

	"github.com/patchbay-dev/patchbay/internal/admin"
	"github.com/patchbay-dev/patchbay/internal/backend"
	"github.com/patchbay-dev/patchbay/internal/config"
	"github.com/patchbay-dev/patchbay/internal/router"
)

// buildDispatcher wires backend clients, the health monitor, and the
// admin tools from loaded configuration. Construction is fail-fast: a
// misdeclared dual-backend operation or an unroutable catalogue entry
// aborts startup here, never at first use.
func buildDispatcher(cfg *config.Config, log *slog.Logger) (*router.Dispatcher, error) {
	catalogue := router.DefaultOperations()

	clients := make(map[backend.Tag]backend.Client, len(cfg.Backends))
	for name, bc := range cfg.Backends {
		tag := backend.Tag(name)
		ops := append(catalogue[tag], bc.Operations...)
		client, err := backend.NewHTTPClient(tag, bc.Endpoint, ops)
		if err != nil {
			return nil, err
		}
		clients[tag] = client
	}

	monitor := router.NewMonitor(router.MonitorConfig{
		Freshness:  cfg.Health.Freshness,
		BackoffCap: cfg.Health.BackoffCap,
		MaxAge:     cfg.Health.MaxAge,
		MaxEntries: cfg.Health.MaxEntries,
	}, log)

	d, err := router.NewDispatcher(router.DispatcherConfig{
		Clients:        clients,
		DualBackendOps: cfg.Routing.DualBackendOps,
		Monitor:        monitor,
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}

	// The admin tools report over dispatcher state, so wire them after
	// construction.
	d.SetAdmin(admin.NewTools(d))

	return d, nil
}
