// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddTask_MissingDependencyRejected(t *testing.T) {
	w := New("w", "*/1 * * * *")

	err := w.AddTask(&Task{Name: "x", Depends: []string{"y"}, TimeoutSec: 1})
	require.Error(t, err)
	require.Nil(t, w.Task("x"))
}

func TestAddTask_DuplicateNameRejected(t *testing.T) {
	w := New("w", "*/1 * * * *")
	require.NoError(t, w.AddTask(&Task{Name: "a", TimeoutSec: 1}))

	err := w.AddTask(&Task{Name: "a", TimeoutSec: 1})
	require.Error(t, err)
}

func TestAddTask_DependencyClosure(t *testing.T) {
	w := New("w", "*/1 * * * *")
	require.NoError(t, w.AddTask(&Task{Name: "a", TimeoutSec: 1}))
	require.NoError(t, w.AddTask(&Task{Name: "b", Depends: []string{"a"}, TimeoutSec: 1}))

	require.Equal(t, []string{"a", "b"}, taskNames(w.Tasks()))
}

func TestAddTask_DefaultsMaxAttemptsToOne(t *testing.T) {
	w := New("w", "*/1 * * * *")
	require.NoError(t, w.AddTask(&Task{Name: "a", TimeoutSec: 1}))
	require.Equal(t, 1, w.Task("a").MaxAttempts)
}

func TestAddTask_RejectsNonPositiveTimeout(t *testing.T) {
	w := New("w", "*/1 * * * *")
	err := w.AddTask(&Task{Name: "a", TimeoutSec: 0})
	require.Error(t, err)
}

func taskNames(tasks []*Task) []string {
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.Name
	}
	return names
}
