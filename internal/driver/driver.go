// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package driver wires every other component together and blocks forever
// in a tick loop — scan, fire, sleep — bounding worst-case scheduling
// lateness to the tick cadence.
package driver

import (
	"context"
	"time"

	"github.com/juliocesarbiz/custom-airflow/internal/config"
	"github.com/juliocesarbiz/custom-airflow/internal/dagengine"
	"github.com/juliocesarbiz/custom-airflow/internal/firing"
	"github.com/juliocesarbiz/custom-airflow/internal/loader"
	"github.com/juliocesarbiz/custom-airflow/internal/logger"
	"github.com/juliocesarbiz/custom-airflow/internal/runner"
	"github.com/juliocesarbiz/custom-airflow/internal/store"
	"github.com/juliocesarbiz/custom-airflow/internal/workflow"
)

// Driver owns the process's single control thread.
type Driver struct {
	Config  *config.Config
	Logger  logger.Logger
	Gateway *store.Gateway
	Loader  *loader.Loader
	Loop    *firing.Loop
}

// New wires the collaborators from cfg, following the
// config.Load -> logger.NewLogger -> construct collaborators order
// dagu's own cmd/scheduler.go uses.
func New(cfg *config.Config, log logger.Logger) (*Driver, error) {
	gw, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := gw.EnsureSchema(); err != nil {
		return nil, err
	}

	var env []string
	if cfg.PythonPath != "" {
		env = append(env, "PYTHONPATH="+cfg.PythonPath)
	}

	taskRunner := runner.New(env)
	taskRunner.VenvDir = cfg.VenvDir

	engine := dagengine.New(gw, runner.NewSupervisor(gw, taskRunner))
	engine.WorkerWidth = cfg.WorkerPoolSize

	l := loader.New(cfg.DagsDir, log)

	loop := firing.New(func(ctx context.Context, w *workflow.Workflow) error {
		_, err := engine.Execute(ctx, w)
		return err
	})

	return &Driver{
		Config:  cfg,
		Logger:  log,
		Gateway: gw,
		Loader:  l,
		Loop:    loop,
	}, nil
}

// Run blocks forever in the tick loop until ctx is canceled.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.Config.TickInterval)
	defer ticker.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Driver) tick(ctx context.Context) {
	if err := d.Loader.Scan(time.Now().UTC()); err != nil {
		logger.Errorf(ctx, "driver: scan failed: %v", err)
	}
	d.Loop.Tick(ctx, d.Loader.Workflows())
}

// Close releases the Driver's resources.
func (d *Driver) Close() error {
	return d.Gateway.Close()
}
