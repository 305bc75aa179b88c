// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package dagengine

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/juliocesarbiz/custom-airflow/internal/logger"
	"github.com/juliocesarbiz/custom-airflow/internal/runner"
	"github.com/juliocesarbiz/custom-airflow/internal/store"
	"github.com/juliocesarbiz/custom-airflow/internal/workflow"
)

// DefaultWorkerPoolWidth bounds how many tasks of one firing run at once.
const DefaultWorkerPoolWidth = 5

// Engine executes one firing of a Workflow at a time. Distinct workflows
// may execute concurrently; Engine itself does not enforce the
// single-firing-at-a-time-per-workflow rule — that is the Cron Firing
// Loop's responsibility.
type Engine struct {
	Gateway     *store.Gateway
	Supervisor  *runner.Supervisor
	WorkerWidth int
}

// New creates an Engine with the default worker pool width.
func New(gw *store.Gateway, sup *runner.Supervisor) *Engine {
	return &Engine{Gateway: gw, Supervisor: sup, WorkerWidth: DefaultWorkerPoolWidth}
}

type taskResult struct {
	name   string
	status workflow.TaskStatus
}

// Execute fires w once. Individual task failures are observable only via
// Attempt records and the returned summary, never as an error from
// Execute. It returns an error, before any task starts, only when the
// dependency graph is cyclic or the workflow record cannot be upserted.
func (e *Engine) Execute(ctx context.Context, w *workflow.Workflow) (*Summary, error) {
	requestID := uuid.New().String()
	ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With("requestId", requestID, "workflow", w.Name))

	tasks := w.Tasks()
	g, err := buildGraph(tasks)
	if err != nil {
		logger.Errorf(ctx, "workflow %s: %v", w.Name, err)
		return nil, err
	}

	workflowID, err := e.Gateway.UpsertWorkflow(w.Name)
	if err != nil {
		logger.Errorf(ctx, "workflow %s: upsert_workflow failed: %v", w.Name, err)
		return nil, err
	}

	summary := newSummary()

	width := e.WorkerWidth
	if width <= 0 {
		width = DefaultWorkerPoolWidth
	}

	ready := g.readySet()
	if len(ready) == 0 {
		return summary, nil
	}

	work := make(chan string, len(g.tasks))
	results := make(chan taskResult, len(g.tasks))

	var wg sync.WaitGroup
	for i := 0; i < width; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range work {
				task := g.tasks[name]
				taskID, err := e.taskRecordID(w.Name, workflowID, task)
				var status workflow.TaskStatus
				if err != nil {
					logger.Errorf(ctx, "workflow %s: task %s: %v", w.Name, name, err)
					status = workflow.TaskFailed
				} else {
					status = e.Supervisor.Supervise(ctx, workflowID, taskID, task)
				}
				task.SetStatus(status)
				results <- taskResult{name: name, status: status}
			}
		}()
	}

	pending := 0
	dispatch := func(names []string) {
		for _, name := range names {
			pending++
			work <- name
		}
	}
	dispatch(ready)

	dispatched := make(map[string]bool, len(g.tasks))
	for _, name := range ready {
		dispatched[name] = true
	}

	for pending > 0 {
		res := <-results
		pending--
		summary.record(res.name, res.status)

		if res.status != workflow.TaskSuccess {
			for _, d := range g.descendants(res.name) {
				if dispatched[d] {
					continue
				}
				dispatched[d] = true
				g.tasks[d].SetStatus(workflow.TaskSkipped)
				summary.record(d, workflow.TaskSkipped)
			}
			continue
		}

		var next []string
		for _, child := range g.children[res.name] {
			if dispatched[child] {
				continue
			}
			g.inDegree[child]--
			if g.inDegree[child] == 0 {
				dispatched[child] = true
				next = append(next, child)
			}
		}
		dispatch(next)
	}

	close(work)
	wg.Wait()

	return summary, nil
}

// taskRecordID resolves (and, on first dispatch, creates) the persisted
// task record for task within workflowID. A task record always exists
// before any of its Attempts. If the task was already registered but its
// script or dependency set changed since the last load, the persisted row
// is refreshed to match.
func (e *Engine) taskRecordID(_ string, workflowID uint, task *workflow.Task) (uint, error) {
	rec, ok, err := e.Gateway.FindTaskRecord(workflowID, task.Name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return e.Gateway.InsertTask(workflowID, task.Name, task.Script, task.Depends)
	}

	if rec.ScriptPath != task.Script || rec.Dependencies != strings.Join(task.Depends, ",") {
		if err := e.Gateway.UpdateTask(rec.ID, task.Script, task.Depends); err != nil {
			return 0, err
		}
	}
	return rec.ID, nil
}
