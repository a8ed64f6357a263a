// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package main

import (
	"fmt"
	"log/slog"

	"github.com/patchbay-dev/patchbay/internal/config"
	"github.com/patchbay-dev/patchbay/internal/router"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// routeReport is the YAML shape printed by the routes command.
type routeReport struct {
	Valid    bool                `yaml:"valid"`
	Failures []string            `yaml:"failures,omitempty"`
	Backends map[string][]string `yaml:"backends"`
}

func newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Validate and print the routing table",
		Long:  "Build the dispatcher from configuration, run startup validation, and print the per-backend operation catalogue.",
		RunE:  runRoutes,
	}
}

func runRoutes(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return err
	}

	d, err := buildDispatcher(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer d.Close() //nolint:errcheck

	valid, failures := router.ValidateRoutes(d)

	report := routeReport{
		Valid:    valid,
		Failures: failures,
		Backends: make(map[string][]string),
	}
	for _, tag := range d.Backends() {
		report.Backends[string(tag)] = d.Operations(tag)
	}

	out, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(cmd.OutOrStdout(), string(out)); err != nil {
		return err
	}

	if !valid {
		return fmt.Errorf("routing table validation failed with %d error(s)", len(failures))
	}
	return nil
}
