package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GlobalScope is the checkpoint namespace used when no scope is given.
const GlobalScope = "__global__"

// JobStatus is the lifecycle state of a job run.
type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
)

// JobRun records one execution of a named batch worker.
type JobRun struct {
	ID             uuid.UUID      `json:"id"`
	JobName        string         `json:"job_name"`
	Scope          string         `json:"scope"`
	Status         JobStatus      `json:"status"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
	ProcessedCount int            `json:"processed_count"`
	Details        map[string]any `json:"details,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// JobCheckpoint is a durable cursor keyed by (job_name, scope, key).
// Checkpoints outlive their creating run so progress survives restarts.
type JobCheckpoint struct {
	ID        uuid.UUID      `json:"id"`
	JobRunID  *uuid.UUID     `json:"job_run_id,omitempty"`
	JobName   string         `json:"job_name"`
	Scope     string         `json:"scope"`
	Key       string         `json:"checkpoint_key"`
	Value     string         `json:"checkpoint_value"`
	Details   map[string]any `json:"details,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NormalizeScope maps empty or whitespace scopes to the global namespace.
func NormalizeScope(scope string) string {
	if s := strings.TrimSpace(scope); s != "" {
		return s
	}
	return GlobalScope
}
