// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/patchbay-dev/patchbay/internal/config"
	"github.com/patchbay-dev/patchbay/internal/router"
	"github.com/patchbay-dev/patchbay/internal/server"
	pberr "github.com/patchbay-dev/patchbay/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the patchbay dispatch server",
		Long:  "Load configuration, validate the routing table, and serve dispatch, health, and metrics endpoints.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	d, err := buildDispatcher(cfg, log)
	if err != nil {
		return err
	}
	defer d.Close() //nolint:errcheck

	// Startup gate: an unroutable or unhandled catalogue entry must
	// abort the process, not surface on first request.
	if valid, failures := router.ValidateRoutes(d); !valid {
		for _, f := range failures {
			log.Error("routing table invalid", "failure", f)
		}
		return pberr.Errorf(pberr.CodeRouteConfigInvalid,
			"routing table validation failed with %d error(s)", len(failures))
	}

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, d)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("patchbay listening", "addr", cfg.Server.Listen, "backends", len(cfg.Backends))
	return srv.Start(ctx)
}
