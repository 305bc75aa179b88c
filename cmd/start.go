// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/juliocesarbiz/custom-airflow/internal/config"
	"github.com/juliocesarbiz/custom-airflow/internal/driver"
	"github.com/juliocesarbiz/custom-airflow/internal/logger"
)

func startCmd() *cobra.Command {
	var dagsDir string

	c := &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler loop",
		Long:  `dagsched start [--dags=<definitions dir>]`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration load failed: %w", err)
			}
			if dagsDir != "" {
				cfg.DagsDir = dagsDir
			}

			log := logger.NewLogger(logger.WithDebug())
			log.Info("scheduler initialization",
				"dagsDir", cfg.DagsDir,
				"env", string(cfg.Env),
				"tickInterval", cfg.TickInterval.String())

			d, err := driver.New(cfg, log)
			if err != nil {
				return fmt.Errorf("scheduler initialization failed: %w", err)
			}
			defer d.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := d.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("scheduler exited: %w", err)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&dagsDir, "dags", "d", "", "location of workflow definition files (default is $DAGS_DIR)")
	return c
}
