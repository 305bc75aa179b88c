// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config resolves the scheduler's environment-variable surface into
// a single typed Config, constructed once in the Driver and threaded
// through every other component as an explicit value (no package globals).
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Env selects the persistence backend.
type Env string

const (
	EnvDevelopment Env = "development"
	EnvProduction  Env = "production"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Env Env

	// SQLite is used when Env == EnvDevelopment.
	SQLiteDB string

	// Postgres connection parameters, used when Env == EnvProduction.
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string

	// PythonPath is forwarded into each task's process environment
	// untouched; the core does not interpret it.
	PythonPath string

	// DagsDir is the directory the Workflow Loader scans for definitions.
	DagsDir string

	// VenvDir is the base directory under which the Task Runner creates
	// per-task Python virtual environments for .py scripts.
	VenvDir string

	// WorkerPoolSize bounds the DAG Execution Engine's concurrent workers
	// per firing.
	WorkerPoolSize int

	// TickInterval is the Driver's tick cadence.
	TickInterval time.Duration
}

// Load resolves Config from the environment via viper, applying the
// scheduler's documented defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("ENV", string(EnvDevelopment))
	v.SetDefault("SQLITE_DB", "dev.db")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("DAGS_DIR", "dags")
	v.SetDefault("VENV_DIR", "venvs")
	v.SetDefault("WORKER_POOL_SIZE", 5)
	v.SetDefault("TICK_INTERVAL_SECONDS", 15)

	env := Env(v.GetString("ENV"))
	if env != EnvDevelopment && env != EnvProduction {
		return nil, fmt.Errorf("config: invalid ENV %q, want %q or %q", env, EnvDevelopment, EnvProduction)
	}

	cfg := &Config{
		Env:              env,
		SQLiteDB:         v.GetString("SQLITE_DB"),
		PostgresUser:     v.GetString("POSTGRES_USER"),
		PostgresPassword: v.GetString("POSTGRES_PASSWORD"),
		PostgresHost:     v.GetString("POSTGRES_HOST"),
		PostgresPort:     v.GetInt("POSTGRES_PORT"),
		PostgresDB:       v.GetString("POSTGRES_DB"),
		PythonPath:       v.GetString("PYTHONPATH"),
		DagsDir:          v.GetString("DAGS_DIR"),
		VenvDir:          v.GetString("VENV_DIR"),
		WorkerPoolSize:   v.GetInt("WORKER_POOL_SIZE"),
		TickInterval:     time.Duration(v.GetInt("TICK_INTERVAL_SECONDS")) * time.Second,
	}

	if cfg.Env == EnvProduction {
		if cfg.PostgresHost == "" || cfg.PostgresUser == "" || cfg.PostgresDB == "" {
			return nil, fmt.Errorf("config: POSTGRES_HOST, POSTGRES_USER and POSTGRES_DB are required in production")
		}
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 5
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 15 * time.Second
	}

	return cfg, nil
}

// PostgresDSN builds the libpq-style DSN gorm's postgres driver expects.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
	)
}
