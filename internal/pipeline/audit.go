package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/kg-reconcile/internal/audit"
	"github.com/sells-group/kg-reconcile/internal/cache"
	"github.com/sells-group/kg-reconcile/internal/model"
)

// AuditResult holds the findings of an audit run.
type AuditResult struct {
	Stats    audit.Stats     `json:"stats"`
	Findings []model.Finding `json:"findings"`
}

// Audit checks the cached labels against the knowledge graph. The cache is
// read only; findings are recorded with the run when history is enabled.
func (p *Pipeline) Audit(ctx context.Context) (*AuditResult, error) {
	var result AuditResult
	err := p.track(ctx, model.RunKindAudit, func(runID string) (any, error) {
		entities, err := cache.Load(p.cfg.Cache.Path)
		if err != nil {
			return nil, err
		}

		findings, stats, err := p.auditor.Audit(ctx, entities)
		result.Findings, result.Stats = findings, stats
		if err != nil {
			return nil, err
		}

		if runID != "" {
			if err := p.store.SaveFindings(ctx, runID, findings); err != nil {
				zap.L().Warn("audit: failed to record findings", zap.Error(err))
			}
		}
		return stats, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
