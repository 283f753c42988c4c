// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Cadence - Cadence is a delivery workflow analysis tool for engineering teams.
It derives lifecycle metrics from delivery records, detects bottlenecks, anomalies and sprint regressions, and turns findings into actionable recommendations.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bartekus/cadence/cmd/cadence/internal/clierr"
	"github.com/bartekus/cadence/internal/config"
	"github.com/bartekus/cadence/internal/logging"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	verbose    bool
}

// NewRootCmd constructs the Cadence root Cobra command.
func NewRootCmd() *cobra.Command {
	version := os.Getenv("CADENCE_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "cadence",
		Short:         "Cadence - delivery workflow analysis for engineering teams",
		Long:          "Cadence derives lifecycle metrics from delivery task records, flags bottlenecks, anomalies and sprint regressions, and reports DORA figures with recommendations.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.ExitUsage, "invalid arguments", err)
	})

	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "configuration file (default ./cadence.yaml when present)")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of Cadence",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cadence version %s\n", version)
		},
	})
	cmd.AddCommand(newAnalyzeCmd(g))
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newReportCmd(g))

	return cmd
}

// load reads the configuration and builds the logger writing to stderr.
func (g *globalOptions) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	cfg, err := config.Load(g.configPath, wd)
	if err != nil {
		return nil, zerolog.Nop(), clierr.Wrap(clierr.ExitUsage, "invalid configuration", err)
	}
	if g.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, logging.New(cfg.Log, cmd.ErrOrStderr()), nil
}
