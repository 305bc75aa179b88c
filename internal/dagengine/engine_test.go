// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package dagengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/juliocesarbiz/custom-airflow/internal/runner"
	"github.com/juliocesarbiz/custom-airflow/internal/store"
	"github.com/juliocesarbiz/custom-airflow/internal/workflow"
)

func newTestEngine(t *testing.T) (*Engine, *store.Gateway) {
	t.Helper()
	gw, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, gw.EnsureSchema())
	t.Cleanup(func() { _ = gw.Close() })

	sup := runner.NewSupervisor(gw, runner.New(nil))
	return New(gw, sup), gw
}

func script(t *testing.T, exitCode int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "step.sh")
	body := "#!/bin/sh\nexit " + itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// TestExecute_LinearChain runs a three-task linear chain end to end.
func TestExecute_LinearChain(t *testing.T) {
	engine, _ := newTestEngine(t)
	ok := script(t, 0)

	w := workflow.New("chain", "*/1 * * * *")
	require.NoError(t, w.AddTask(&workflow.Task{Name: "a", Script: ok, TimeoutSec: 5}))
	require.NoError(t, w.AddTask(&workflow.Task{Name: "b", Script: ok, Depends: []string{"a"}, TimeoutSec: 5}))
	require.NoError(t, w.AddTask(&workflow.Task{Name: "c", Script: ok, Depends: []string{"b"}, TimeoutSec: 5}))

	summary, err := engine.Execute(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Len())
	for _, name := range []string{"a", "b", "c"} {
		st, ok := summary.Status(name)
		require.True(t, ok)
		require.Equal(t, workflow.TaskSuccess, st)
	}
}

// TestExecute_DiamondWithFailure checks that a failed task skips its
// descendants while unrelated siblings still run to completion.
func TestExecute_DiamondWithFailure(t *testing.T) {
	engine, _ := newTestEngine(t)
	ok := script(t, 0)
	bad := script(t, 1)

	w := workflow.New("diamond", "*/1 * * * *")
	require.NoError(t, w.AddTask(&workflow.Task{Name: "a", Script: ok, TimeoutSec: 5}))
	require.NoError(t, w.AddTask(&workflow.Task{Name: "b", Script: bad, Depends: []string{"a"}, MaxAttempts: 2, TimeoutSec: 5}))
	require.NoError(t, w.AddTask(&workflow.Task{Name: "c", Script: ok, Depends: []string{"a"}, TimeoutSec: 5}))
	require.NoError(t, w.AddTask(&workflow.Task{Name: "d", Script: ok, Depends: []string{"b", "c"}, TimeoutSec: 5}))

	summary, err := engine.Execute(context.Background(), w)
	require.NoError(t, err)

	st, _ := summary.Status("a")
	require.Equal(t, workflow.TaskSuccess, st)
	st, _ = summary.Status("b")
	require.Equal(t, workflow.TaskFailed, st)
	st, _ = summary.Status("c")
	require.Equal(t, workflow.TaskSuccess, st)
	st, _ = summary.Status("d")
	require.Equal(t, workflow.TaskSkipped, st)
}

// TestExecute_RefreshesTaskOnReload checks that a task whose script path
// changed between two firings (e.g. the definition file was edited and
// reloaded) has its persisted row updated rather than left stale.
func TestExecute_RefreshesTaskOnReload(t *testing.T) {
	engine, gw := newTestEngine(t)
	ok := script(t, 0)

	w := workflow.New("reloadable", "*/1 * * * *")
	require.NoError(t, w.AddTask(&workflow.Task{Name: "a", Script: ok, TimeoutSec: 5}))

	_, err := engine.Execute(context.Background(), w)
	require.NoError(t, err)

	wfID, err := gw.UpsertWorkflow("reloadable")
	require.NoError(t, err)
	rec, ok2, err := gw.FindTaskRecord(wfID, "a")
	require.NoError(t, err)
	require.True(t, ok2)
	require.Equal(t, ok, rec.ScriptPath)

	revised := script(t, 0)
	w2 := workflow.New("reloadable", "*/1 * * * *")
	require.NoError(t, w2.AddTask(&workflow.Task{Name: "a", Script: revised, Depends: nil, TimeoutSec: 5}))

	_, err = engine.Execute(context.Background(), w2)
	require.NoError(t, err)

	rec, ok2, err = gw.FindTaskRecord(wfID, "a")
	require.NoError(t, err)
	require.True(t, ok2)
	require.Equal(t, revised, rec.ScriptPath)
}

func TestBuildGraph_CycleRejected(t *testing.T) {
	w := workflow.New("cyclic", "*/1 * * * *")
	// AddTask's own validation would reject this directly; construct tasks
	// below the workflow API to exercise buildGraph's own cycle detection.
	a := &workflow.Task{Name: "a", Depends: []string{"b"}, TimeoutSec: 1, MaxAttempts: 1}
	b := &workflow.Task{Name: "b", Depends: []string{"a"}, TimeoutSec: 1, MaxAttempts: 1}

	_, err := buildGraph([]*workflow.Task{a, b})
	require.Error(t, err)
	_ = w
}
