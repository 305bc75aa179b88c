// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/juliocesarbiz/custom-airflow/internal/loader"
	"github.com/juliocesarbiz/custom-airflow/internal/logger"
)

// validateCmd loads every definition in a directory and reports
// DefinitionErrors without starting the scheduler — a cheap way to exercise
// the Loader and its builder against a directory of definitions.
func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate DIR",
		Short: "Load every workflow definition in DIR and report errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			log := logger.NewLogger(logger.WithWriter(cmd.OutOrStdout()))
			l := loader.New(dir, log)

			errs, err := l.ScanCollect(time.Now().UTC())
			if err != nil {
				return fmt.Errorf("reading %s: %w", dir, err)
			}

			wfs := l.Workflows()
			cmd.Printf("loaded %d workflow(s) from %s\n", len(wfs), dir)
			for _, w := range wfs {
				cmd.Printf("  %s (%s): %d task(s)\n", w.Name, w.Schedule, len(w.Tasks()))
			}

			if len(errs) > 0 {
				cmd.Printf("%d definition error(s):\n", len(errs))
				for _, e := range errs {
					cmd.PrintErrln(" ", e)
				}
				return fmt.Errorf("%d invalid definition(s) in %s", len(errs), dir)
			}
			return nil
		},
	}
}
