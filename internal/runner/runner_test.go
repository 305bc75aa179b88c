// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package runner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/juliocesarbiz/custom-airflow/internal/workflow"
)

func TestRunner_Success(t *testing.T) {
	r := New(nil)
	task := &workflow.Task{Name: "ok", Script: "true", TimeoutSec: 5}

	outcome := r.Run(context.Background(), task)
	require.True(t, outcome.Success())
}

func TestRunner_NonZeroExit(t *testing.T) {
	r := New(nil)
	task := &workflow.Task{Name: "fail", Script: "false", TimeoutSec: 5}

	outcome := r.Run(context.Background(), task)
	require.False(t, outcome.Success())
	require.Equal(t, KindNonZeroExit, outcome.Kind)
}

func TestRunner_SpawnError(t *testing.T) {
	r := New(nil)
	task := &workflow.Task{Name: "missing", Script: "/no/such/binary-xyz", TimeoutSec: 5}

	outcome := r.Run(context.Background(), task)
	require.False(t, outcome.Success())
	require.Equal(t, KindSpawnError, outcome.Kind)
}

func TestRunner_Timeout(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\nsleep 10\n")
	r := New(nil)
	task := &workflow.Task{Name: "slow", Script: script, TimeoutSec: 1}

	start := time.Now()
	outcome := r.Run(context.Background(), task)
	elapsed := time.Since(start)

	require.False(t, outcome.Success())
	require.Equal(t, KindTimeout, outcome.Kind)
	require.Less(t, elapsed, 5*time.Second)
}

func TestRunner_Command_NonPythonSkipsVenv(t *testing.T) {
	r := New(nil)
	r.VenvDir = t.TempDir()
	task := &workflow.Task{Name: "ok", Script: "true", TimeoutSec: 5}

	name, args, err := r.command(task)
	require.NoError(t, err)
	require.Equal(t, "true", name)
	require.Empty(t, args)
}

func TestRunner_Command_PythonScriptCreatesVenv(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}

	r := New(nil)
	r.VenvDir = t.TempDir()
	task := &workflow.Task{Name: "pytask", Script: "job.py", TimeoutSec: 5}

	python, args, err := r.command(task)
	require.NoError(t, err)
	require.Equal(t, []string{"job.py"}, args)
	require.FileExists(t, python)

	// Second call reuses the venv instead of recreating it.
	python2, _, err := r.command(task)
	require.NoError(t, err)
	require.Equal(t, python, python2)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}
