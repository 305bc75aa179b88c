// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import "time"

// Status is the shared ENUM{pending,running,success,failed} stored in both
// the tasks.status and executions.status columns.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// DAGRecord is the `dags` table: id PK, name UNIQUE.
type DAGRecord struct {
	ID   uint   `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;uniqueIndex;not null"`
}

func (DAGRecord) TableName() string { return "dags" }

// TaskRecord is the `tasks` table, scoped to its owning DAGRecord.
type TaskRecord struct {
	ID           uint   `gorm:"column:id;primaryKey"`
	Name         string `gorm:"column:name;not null"`
	ScriptPath   string `gorm:"column:script_path;not null"`
	Dependencies string `gorm:"column:dependencies"` // comma-joined task names
	Status       Status `gorm:"column:status;not null"`
	DagID        uint   `gorm:"column:dag_id;not null;index"`
}

func (TaskRecord) TableName() string { return "tasks" }

// ExecutionRecord is the `executions` table — one row per Attempt.
type ExecutionRecord struct {
	ID        uint       `gorm:"column:id;primaryKey"`
	DagID     uint       `gorm:"column:dag_id;not null;index"`
	TaskID    uint       `gorm:"column:task_id;not null;index"`
	StartTime time.Time  `gorm:"column:start_time;not null"`
	EndTime   *time.Time `gorm:"column:end_time"`
	Status    Status     `gorm:"column:status;not null"`
}

func (ExecutionRecord) TableName() string { return "executions" }
