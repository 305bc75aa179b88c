// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cmd is the CLI surface: a single entry point starting the
// scheduler loop, a migration entry point, and a validate entry point —
// wired the same way dagu's own cmd package wires cobra + viper commands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/juliocesarbiz/custom-airflow/internal/build"
)

// New builds the root command tree.
func New() *cobra.Command {
	root := &cobra.Command{
		Use:     build.AppName,
		Short:   "Lightweight cron-scheduled DAG workflow orchestrator",
		Version: build.Version,
	}

	root.AddCommand(startCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(validateCmd())

	return root
}
