// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package main

import (
	"errors"

	"github.com/patchbay-dev/patchbay/internal/config"
	pberr "github.com/patchbay-dev/patchbay/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd creates the root patchbay command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "patchbay",
		Short:         "patchbay — multi-backend operation dispatch",
		Long:          "Patchbay classifies named operations and routes them to the right compute backend with health-aware execution.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newServeCmd(),
		newRoutesCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return pberr.Errorf(pberr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// Auto-discover patchbay.yaml from standard locations.
		v.SetConfigName("patchbay")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/patchbay")
		v.AddConfigPath("/etc/patchbay")
		// No config file is fine — defaults and env vars still apply.
		// Parse or permission errors must surface.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return pberr.Errorf(pberr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			// None found anywhere — bootstrap a default to ~/.config/patchbay/.
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return pberr.Errorf(pberr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	return v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose"))
}
