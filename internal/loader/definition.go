// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package loader scans a directory of declarative YAML definitions, builds
// workflow.Workflow objects from them, and keeps an in-memory registry
// fresh as files change.
//
// Registration here is data-in, not code-evaluated: a definition file is a
// static YAML document, not a script the loader executes. The shape is a
// deliberately narrowed version of dagu's own YAML DAG definitions, parsed
// with the same goccy/go-yaml dependency, cut down to the
// name/schedule/tasks shape this system needs.
package loader

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/juliocesarbiz/custom-airflow/internal/cronutil"
	"github.com/juliocesarbiz/custom-airflow/internal/workflow"
)

type taskDef struct {
	Name           string   `yaml:"name"`
	Script         string   `yaml:"script"`
	Depends        []string `yaml:"depends"`
	MaxAttempts    int      `yaml:"max_attempts"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

type workflowDef struct {
	Name     string    `yaml:"name"`
	Schedule string    `yaml:"schedule"`
	Tasks    []taskDef `yaml:"tasks"`
}

// parseFile loads and validates one definition file into a workflow.Workflow.
// Every failure is returned as a LoaderError; for an invalid definition
// (bad cron expression, missing dependency, duplicate name, non-positive
// timeout) it wraps a workflow.DefinitionError. A failure aborts the load
// without touching the caller's existing registry entry for that file.
func parseFile(path string) (*workflow.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoaderError{File: path, Err: err}
	}

	var def workflowDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &LoaderError{File: path, Err: err}
	}

	if def.Name == "" {
		return nil, &LoaderError{File: path, Err: fmt.Errorf("workflow name is required")}
	}
	if def.Schedule == "" {
		return nil, &LoaderError{File: path, Err: fmt.Errorf("workflow schedule is required")}
	}
	if _, err := cronutil.Next(def.Schedule, time.Now()); err != nil {
		return nil, &LoaderError{File: path, Err: &workflow.DefinitionError{Reason: fmt.Sprintf("invalid cron expression %q: %v", def.Schedule, err)}}
	}

	w := workflow.New(def.Name, def.Schedule)
	for _, td := range def.Tasks {
		task := &workflow.Task{
			Name:        td.Name,
			Script:      td.Script,
			Depends:     td.Depends,
			MaxAttempts: td.MaxAttempts,
			TimeoutSec:  td.TimeoutSeconds,
		}
		if err := w.AddTask(task); err != nil {
			return nil, &LoaderError{File: path, Err: err}
		}
	}

	return w, nil
}

// LoaderError reports a definition file that failed to load or evaluate.
// The file is skipped; previously registered state for any workflow is
// left untouched.
type LoaderError struct {
	File string
	Err  error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("loader: %s: %v", e.File, e.Err)
}

func (e *LoaderError) Unwrap() error { return e.Err }
