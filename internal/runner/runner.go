// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package runner spawns one child process per task attempt under a
// deadline, classifies the outcome, and is the only component that
// touches the host process table for task execution. It never writes
// Attempt records itself.
package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/juliocesarbiz/custom-airflow/internal/workflow"
)

// OutcomeKind classifies a failed Outcome.
type OutcomeKind int

const (
	// KindSuccess is not a failure kind; Outcome.Success() is true instead.
	KindSuccess OutcomeKind = iota
	KindTimeout
	KindNonZeroExit
	KindSpawnError
)

// Outcome is the result of one task runner invocation.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

// Success reports whether the attempt succeeded.
func (o Outcome) Success() bool { return o.Kind == KindSuccess }

// KillGrace is the delay between SIGTERM and SIGKILL on timeout: SIGTERM
// first, escalate only if the process ignores it.
var KillGrace = 2 * time.Second

// Runner spawns the child process for a task.
type Runner struct {
	// Env is appended to each child's process environment (in addition to
	// the parent's own environment, inherited via exec.Cmd's default
	// behavior when Env is nil). Typically carries PYTHONPATH for scripts
	// that import shared task libraries.
	Env []string

	// VenvDir is the base directory under which a per-task Python virtual
	// environment is created on first use. Empty disables venv handling
	// (every task runs its Script directly).
	VenvDir string
}

// New creates a Runner.
func New(env []string) *Runner {
	return &Runner{Env: env}
}

// Run spawns task.Script and waits up to task.TimeoutSec seconds. Python
// scripts (.py) are run through a lazily-created per-task virtual
// environment when VenvDir is set; every other script runs directly.
func (r *Runner) Run(ctx context.Context, task *workflow.Task) Outcome {
	deadline := time.Duration(task.TimeoutSec) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	name, args, err := r.command(task)
	if err != nil {
		return Outcome{Kind: KindSpawnError, Err: err}
	}

	cmd := exec.CommandContext(runCtx, name, args...)
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	// Run in its own process group so a timeout can signal the whole tree,
	// not just the direct child.
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return signalProcessGroup(cmd, syscall.SIGTERM)
	}
	cmd.WaitDelay = KillGrace

	if err := cmd.Start(); err != nil {
		return Outcome{Kind: KindSpawnError, Err: err}
	}

	err = cmd.Wait()
	if runCtx.Err() == context.DeadlineExceeded {
		return Outcome{Kind: KindTimeout, Err: runCtx.Err()}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Outcome{Kind: KindNonZeroExit, Err: err}
		}
		return Outcome{Kind: KindSpawnError, Err: err}
	}
	return Outcome{Kind: KindSuccess}
}

// command resolves the executable and arguments for task. Non-Python
// scripts run as-is; a .py script runs through its per-task venv's
// python3, creating the venv first if it doesn't exist yet.
func (r *Runner) command(task *workflow.Task) (string, []string, error) {
	if r.VenvDir == "" || !strings.HasSuffix(task.Script, ".py") {
		return task.Script, nil, nil
	}
	python, err := r.ensureVenv(task.Name)
	if err != nil {
		return "", nil, err
	}
	return python, []string{task.Script}, nil
}

// ensureVenv creates (if absent) the virtual environment for taskName
// under VenvDir and returns the path to its python executable.
func (r *Runner) ensureVenv(taskName string) (string, error) {
	venvPath := filepath.Join(r.VenvDir, taskName)
	python := filepath.Join(venvPath, "bin", "python3")

	if _, err := exec.LookPath(python); err == nil {
		return python, nil
	}

	if err := exec.Command("python3", "-m", "venv", venvPath).Run(); err != nil {
		return "", err
	}
	return python, nil
}
