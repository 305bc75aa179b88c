// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package runner

import (
	"context"
	"time"

	"github.com/juliocesarbiz/custom-airflow/internal/logger"
	"github.com/juliocesarbiz/custom-airflow/internal/store"
	"github.com/juliocesarbiz/custom-airflow/internal/workflow"
)

// Supervisor is the retry wrapper: it opens an Attempt, invokes the Task
// Runner, and retries sequentially up to task.MaxAttempts total attempts
// (MaxAttempts counts the first try, not additional retries beyond it). No
// backoff is applied between attempts, matching the source's
// immediate-retry behavior.
type Supervisor struct {
	Gateway *store.Gateway
	Runner  *Runner
}

// NewSupervisor creates a Supervisor.
func NewSupervisor(gw *store.Gateway, r *Runner) *Supervisor {
	return &Supervisor{Gateway: gw, Runner: r}
}

// Supervise runs task to a terminal status, making at most task.MaxAttempts
// attempts in total. A store error while opening or finalizing an
// Attempt is treated as a failed task for this firing — the task is not
// retried on that failure path, and the error is only logged, never
// propagated to the caller, so the engine continues with other tasks.
func (s *Supervisor) Supervise(ctx context.Context, workflowID uint, taskID uint, task *workflow.Task) workflow.TaskStatus {
	for attempt := 1; attempt <= task.MaxAttempts; attempt++ {
		start := time.Now().UTC()
		attemptID, err := s.Gateway.BeginAttempt(workflowID, taskID, start)
		if err != nil {
			logger.Errorf(ctx, "task %s: begin_attempt failed: %v", task.Name, err)
			return workflow.TaskFailed
		}

		outcome := s.Runner.Run(ctx, task)
		end := time.Now().UTC()

		finalStatus := store.StatusFailed
		if outcome.Success() {
			finalStatus = store.StatusSuccess
		}
		if err := s.Gateway.FinalizeAttempt(attemptID, end, finalStatus); err != nil {
			logger.Errorf(ctx, "task %s: finalize_attempt failed: %v", task.Name, err)
			return workflow.TaskFailed
		}

		if outcome.Success() {
			return workflow.TaskSuccess
		}
		logger.Warnf(ctx, "task %s: attempt %d/%d failed: %v", task.Name, attempt, task.MaxAttempts, outcome.Err)
	}
	return workflow.TaskFailed
}
