// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store is the Persistence Gateway: typed read/write access to
// workflow, task and attempt records over a relational store, backed by
// GORM so the same code path serves both the sqlite development backend
// and the Postgres production backend — grounded on jordie-GAIA_GO's
// pkg/database connection style, generalized from a single backend to an
// ENV-selected dual backend.
package store

import (
	"context"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/juliocesarbiz/custom-airflow/internal/backoff"
	"github.com/juliocesarbiz/custom-airflow/internal/config"
)

// Gateway is the Persistence Gateway. Every operation is a single committed
// unit. Only UpsertWorkflow retries transient store errors (see
// upsertRetryPolicy); every other operation returns them to the caller.
type Gateway struct {
	db *gorm.DB
}

// Open connects to the backend selected by cfg.Env: sqlite in development,
// Postgres in production.
func Open(cfg *config.Config) (*Gateway, error) {
	gc := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Env {
	case config.EnvProduction:
		db, err = gorm.Open(postgres.Open(cfg.PostgresDSN()), gc)
	default:
		db, err = gorm.Open(sqlite.Open(cfg.SQLiteDB), gc)
	}
	if err != nil {
		return nil, wrap("open", err)
	}
	return &Gateway{db: db}, nil
}

// OpenSQLite opens an ad hoc sqlite-backed Gateway without a full Config;
// the tests use it.
func OpenSQLite(dsn string) (*Gateway, error) {
	gc := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	db, err := gorm.Open(sqlite.Open(dsn), gc)
	if err != nil {
		return nil, wrap("open", err)
	}
	return &Gateway{db: db}, nil
}

// Close releases the underlying connection pool.
func (g *Gateway) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return wrap("close", err)
	}
	return wrap("close", sqlDB.Close())
}

// EnsureSchema creates the dags/tasks/executions tables if absent. Safe to
// invoke repeatedly.
func (g *Gateway) EnsureSchema() error {
	return wrap("ensure_schema", g.db.AutoMigrate(&DAGRecord{}, &TaskRecord{}, &ExecutionRecord{}))
}

// upsertRetryPolicy bounds retries of the idempotent UpsertWorkflow
// operation against transient store errors.
var upsertRetryPolicy = backoff.ConstantPolicy{Interval: 50 * time.Millisecond, MaxRetries: 2}

// UpsertWorkflow returns the id of the existing `dags` row for name, or
// creates one. Idempotent.
func (g *Gateway) UpsertWorkflow(name string) (uint, error) {
	var id uint
	err := upsertRetryPolicy.Retry(context.Background(), func() error {
		var rec DAGRecord
		err := g.db.Where("name = ?", name).First(&rec).Error
		if err == nil {
			id = rec.ID
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		rec = DAGRecord{Name: name}
		if err := g.db.Create(&rec).Error; err != nil {
			// A concurrent upsert may have raced us; re-read before failing.
			var existing DAGRecord
			if readErr := g.db.Where("name = ?", name).First(&existing).Error; readErr == nil {
				id = existing.ID
				return nil
			}
			return err
		}
		id = rec.ID
		return nil
	})
	if err != nil {
		return 0, wrap("upsert_workflow", err)
	}
	return id, nil
}

// FindTask returns the id of the named task within workflowID, if present.
func (g *Gateway) FindTask(workflowID uint, name string) (uint, bool, error) {
	rec, ok, err := g.FindTaskRecord(workflowID, name)
	if err != nil {
		return 0, false, err
	}
	return rec.ID, ok, nil
}

// FindTaskRecord returns the full persisted row for the named task within
// workflowID, if present.
func (g *Gateway) FindTaskRecord(workflowID uint, name string) (TaskRecord, bool, error) {
	var rec TaskRecord
	err := g.db.Where("dag_id = ? AND name = ?", workflowID, name).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return TaskRecord{}, false, nil
	}
	if err != nil {
		return TaskRecord{}, false, wrap("find_task", err)
	}
	return rec, true, nil
}

// InsertTask creates a `tasks` row scoped to workflowID. The owning
// DAGRecord must already exist.
func (g *Gateway) InsertTask(workflowID uint, name, script string, deps []string) (uint, error) {
	rec := TaskRecord{
		DagID:        workflowID,
		Name:         name,
		ScriptPath:   script,
		Dependencies: strings.Join(deps, ","),
		Status:       StatusPending,
	}
	if err := g.db.Create(&rec).Error; err != nil {
		return 0, wrap("insert_task", err)
	}
	return rec.ID, nil
}

// UpdateTask refreshes a task's script path and dependency set when its
// source definition changes on reload.
func (g *Gateway) UpdateTask(taskID uint, script string, deps []string) error {
	err := g.db.Model(&TaskRecord{}).Where("id = ?", taskID).Updates(map[string]any{
		"script_path":  script,
		"dependencies": strings.Join(deps, ","),
	}).Error
	return wrap("update_task", err)
}

// UpdateTaskStatus records a task's terminal status for this firing.
func (g *Gateway) UpdateTaskStatus(taskID uint, status Status) error {
	err := g.db.Model(&TaskRecord{}).Where("id = ?", taskID).Update("status", status).Error
	return wrap("update_task_status", err)
}

// BeginAttempt opens a running Attempt. The task must already be inserted.
func (g *Gateway) BeginAttempt(workflowID, taskID uint, start time.Time) (uint, error) {
	rec := ExecutionRecord{
		DagID:     workflowID,
		TaskID:    taskID,
		StartTime: start,
		Status:    StatusRunning,
	}
	if err := g.db.Create(&rec).Error; err != nil {
		return 0, wrap("begin_attempt", err)
	}
	return rec.ID, nil
}

// FinalizeAttempt transitions an Attempt from running to a terminal
// status. Each gateway call acquires and releases its own session; the
// WHERE clause serializes concurrent finalizers on the same row without a
// long-lived lock.
func (g *Gateway) FinalizeAttempt(attemptID uint, end time.Time, status Status) error {
	res := g.db.Model(&ExecutionRecord{}).
		Where("id = ? AND status = ?", attemptID, StatusRunning).
		Updates(map[string]any{"end_time": end, "status": status})
	if res.Error != nil {
		return wrap("finalize_attempt", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("finalize_attempt", ErrAlreadyFinalized)
	}
	return nil
}
