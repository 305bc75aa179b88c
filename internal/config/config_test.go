// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("POSTGRES_HOST", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, EnvDevelopment, cfg.Env)
	require.Equal(t, "dev.db", cfg.SQLiteDB)
	require.Equal(t, 5, cfg.WorkerPoolSize)
}

func TestLoad_ProductionRequiresPostgresParams(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("POSTGRES_HOST", "")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_DB", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_ProductionDSN(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_USER", "dagsched")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "dagsched")
	t.Setenv("POSTGRES_PORT", "5433")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "host=db.internal port=5433 user=dagsched password=secret dbname=dagsched sslmode=disable", cfg.PostgresDSN())
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("ENV", "staging")
	_, err := Load()
	require.Error(t, err)
}
