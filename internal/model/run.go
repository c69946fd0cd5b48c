package model

import (
	"encoding/json"
	"time"
)

// RunKind names the pipeline stage a run executed.
type RunKind string

const (
	RunKindSync      RunKind = "sync"
	RunKindAudit     RunKind = "audit"
	RunKindEnrich    RunKind = "enrich"
	RunKindProfile   RunKind = "profile"
	RunKindBackSync  RunKind = "backsync"
	RunKindOverrides RunKind = "overrides"
)

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded invocation of a pipeline stage.
type Run struct {
	ID         string          `json:"id"`
	Kind       RunKind         `json:"kind"`
	Status     RunStatus       `json:"status"`
	Stats      json.RawMessage `json:"stats,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}
