// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package dagengine

import (
	"sync"

	"github.com/juliocesarbiz/custom-airflow/internal/workflow"
)

// Summary reports each task's terminal status for one firing. It exists so
// callers (such as tests) can observe a firing's outcome without
// re-querying the store.
type Summary struct {
	mu   sync.Mutex
	byID map[string]workflow.TaskStatus
}

func newSummary() *Summary {
	return &Summary{byID: make(map[string]workflow.TaskStatus)}
}

func (s *Summary) record(name string, status workflow.TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[name] = status
}

// Status returns the recorded terminal status for a task name.
func (s *Summary) Status(name string) (workflow.TaskStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byID[name]
	return st, ok
}

// Len returns how many tasks recorded a terminal status (success, failed or
// skipped) in this firing.
func (s *Summary) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
