package pipeline

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sells-group/kg-reconcile/internal/cache"
	"github.com/sells-group/kg-reconcile/internal/model"
)

// DefaultProfileID is profiled when no identifier is given.
const DefaultProfileID = "Q182477"

// ProfileResult is a written full profile.
type ProfileResult struct {
	Profile *model.Profile `json:"-"`
	Path    string         `json:"path"`
	Fields  int            `json:"fields"`
	History int            `json:"history"`
}

// Profile extracts every facet of id and writes it to <profile.dir>/<id>.json.
func (p *Pipeline) Profile(ctx context.Context, id string) (*ProfileResult, error) {
	if id == "" {
		id = DefaultProfileID
	}

	var result ProfileResult
	err := p.track(ctx, model.RunKindProfile, func(string) (any, error) {
		prof, err := p.enricher.Profile(ctx, id)
		if err != nil {
			return nil, err
		}

		data, err := cache.MarshalIndent(prof)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(p.cfg.Profile.Dir, id+".json")
		if err := cache.WriteFile(path, data); err != nil {
			return nil, err
		}

		result = ProfileResult{
			Profile: prof,
			Path:    path,
			Fields:  len(prof.Fields),
			History: len(prof.FinancialHistory),
		}
		zap.L().Info("profile: saved",
			zap.String("id", id),
			zap.String("path", path),
			zap.Int("fields", result.Fields),
			zap.Int("history", result.History),
		)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
