// Package store records pipeline runs and audit findings.
package store

import (
	"context"

	"github.com/sells-group/kg-reconcile/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   model.RunKind   `json:"kind,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for run history.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, kind model.RunKind) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, stats any) error
	FailRun(ctx context.Context, runID string, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Findings
	SaveFindings(ctx context.Context, runID string, findings []model.Finding) error
	ListFindings(ctx context.Context, runID string) ([]model.Finding, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
