// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package firing is the cron firing loop: given a registry of workflows
// with (cron, next_fire), it advances each workflow whose next_fire has
// arrived by invoking the DAG Execution Engine, then recomputes next_fire
// from the previous next_fire (not from "now"), so cadence survives a slow
// firing without backfilling missed cycles.
package firing

import (
	"context"
	"sync"
	"time"

	"github.com/juliocesarbiz/custom-airflow/internal/cronutil"
	"github.com/juliocesarbiz/custom-airflow/internal/logger"
	"github.com/juliocesarbiz/custom-airflow/internal/workflow"
)

// ExecuteFunc invokes the DAG Execution Engine for one firing of w. Its
// only contract, from the Loop's perspective, is that it runs to
// completion and never panics; task-level and workflow-level failures are
// reported through the store, not through this return value, except when
// the dependency graph is cyclic or the workflow record cannot be
// upserted, which the engine returns as an error.
type ExecuteFunc func(ctx context.Context, w *workflow.Workflow) error

// Loop is the tick-driven firing loop. registered is supplied by the caller
// (the Driver) each tick as a snapshot from the Loader; a workflow whose
// file changed mid-firing keeps running with the object it started with,
// since Tick only ever reads the snapshot it was handed.
type Loop struct {
	Execute ExecuteFunc

	// mu guards per-workflow firing locks, ensuring at most one firing of
	// any given workflow is active at any instant, even across overlapping
	// Tick calls.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Loop bound to execute.
func New(execute ExecuteFunc) *Loop {
	return &Loop{Execute: execute, locks: make(map[string]*sync.Mutex)}
}

func (l *Loop) lockFor(name string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[name]
	if !ok {
		m = &sync.Mutex{}
		l.locks[name] = m
	}
	return m
}

// Tick advances every workflow in registered whose NextFire has arrived.
// Firings for distinct workflows run concurrently; a firing for a given
// workflow never overlaps a prior one still in flight.
func (l *Loop) Tick(ctx context.Context, registered []*workflow.Workflow) {
	now := time.Now().UTC()
	var wg sync.WaitGroup
	for _, w := range registered {
		w := w
		if w.NextFire().After(now) {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.fireOne(ctx, w)
		}()
	}
	wg.Wait()
}

func (l *Loop) fireOne(ctx context.Context, w *workflow.Workflow) {
	mu := l.lockFor(w.Name)
	mu.Lock()
	defer mu.Unlock()

	previous := w.NextFire()
	if err := l.Execute(ctx, w); err != nil {
		logger.Errorf(ctx, "firing %s: %v", w.Name, err)
	}

	next, err := cronutil.Next(w.Schedule, previous)
	if err != nil {
		logger.Errorf(ctx, "firing %s: recompute next_fire failed: %v", w.Name, err)
		return
	}
	w.SetNextFire(next) // strictly increases, since next > previous by construction.
}
