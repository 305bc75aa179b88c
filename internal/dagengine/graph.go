// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package dagengine computes a topological activation front for one
// workflow firing and runs independent tasks concurrently through a
// bounded worker pool, dispatching each ready task to the Retry Wrapper
// (internal/runner.Supervisor).
//
// Workers post (task, outcome) to a completion channel; the dispatcher
// awaits completions, decrements in-degrees, and submits newly-ready
// tasks. No shared mutable graph is needed beyond the dispatcher-owned
// in-degree table — grounded on dagu's internal/digraph/scheduler
// cycle-detection shape, which peels the graph with the same
// Kahn's-algorithm approach.
package dagengine

import (
	"github.com/juliocesarbiz/custom-airflow/internal/workflow"
)

// graph is the transient dependency graph for one firing: in-degree table
// and reverse adjacency (children), owned solely by the dispatcher for the
// duration of the firing.
type graph struct {
	tasks    map[string]*workflow.Task
	inDegree map[string]int
	children map[string][]string
}

// buildGraph computes in-degree and reverse adjacency from each task's
// Depends list, and verifies the result is acyclic via Kahn's algorithm:
// if the BFS peel does not cover every task, a cycle exists.
func buildGraph(tasks []*workflow.Task) (*graph, error) {
	g := &graph{
		tasks:    make(map[string]*workflow.Task, len(tasks)),
		inDegree: make(map[string]int, len(tasks)),
		children: make(map[string][]string, len(tasks)),
	}
	for _, t := range tasks {
		g.tasks[t.Name] = t
		g.inDegree[t.Name] = len(t.Depends)
	}
	for _, t := range tasks {
		for _, dep := range t.Depends {
			g.children[dep] = append(g.children[dep], t.Name)
		}
	}

	if err := g.verifyAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *graph) verifyAcyclic() error {
	remaining := make(map[string]int, len(g.inDegree))
	for name, deg := range g.inDegree {
		remaining[name] = deg
	}

	var queue []string
	for name, deg := range remaining {
		if deg == 0 {
			queue = append(queue, name)
		}
	}

	visited := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		visited++
		for _, child := range g.children[name] {
			remaining[child]--
			if remaining[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if visited != len(g.tasks) {
		return &workflow.DefinitionError{Reason: "dependency graph has a cycle"}
	}
	return nil
}

// readySet returns the names of all tasks with zero in-degree.
func (g *graph) readySet() []string {
	var ready []string
	for name, deg := range g.inDegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	return ready
}

// descendants returns the transitive closure of children reachable from
// name, used to mark skipped tasks when name's task fails.
func (g *graph) descendants(name string) []string {
	seen := make(map[string]bool)
	var stack []string
	stack = append(stack, g.children[name]...)
	var out []string
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		stack = append(stack, g.children[n]...)
	}
	return out
}
