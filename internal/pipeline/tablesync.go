package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/kg-reconcile/internal/cache"
	"github.com/sells-group/kg-reconcile/internal/model"
	"github.com/sells-group/kg-reconcile/internal/source"
)

// TableResult counts the source cells a table rewrite changed.
type TableResult struct {
	Rows    int `json:"rows"`
	Changed int `json:"changed"`
}

// BackSync copies cached identifiers into the source table's Wikidata
// column. The table is only rewritten when a cell changed.
func (p *Pipeline) BackSync(ctx context.Context) (*TableResult, error) {
	var result TableResult
	err := p.track(ctx, model.RunKindBackSync, func(string) (any, error) {
		entities, err := cache.Load(p.cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		return p.rewriteTable(&result, func(t *source.Table) (int, error) {
			return t.BackSync(entities)
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ApplyOverrides writes the fixed override identifiers into the source
// table for rows whose name equals an override key.
func (p *Pipeline) ApplyOverrides(ctx context.Context) (*TableResult, error) {
	var result TableResult
	err := p.track(ctx, model.RunKindOverrides, func(string) (any, error) {
		return p.rewriteTable(&result, func(t *source.Table) (int, error) {
			return t.ApplyOverrides(p.vocab)
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (p *Pipeline) rewriteTable(result *TableResult, edit func(*source.Table) (int, error)) (any, error) {
	path := p.cfg.Source.Path
	t, err := source.Read(path)
	if err != nil {
		return nil, err
	}

	changed, err := edit(t)
	if err != nil {
		return nil, err
	}
	result.Rows = len(t.Records)
	result.Changed = changed

	if changed > 0 {
		if err := t.Write(path); err != nil {
			return nil, err
		}
	}
	zap.L().Info("source: updated",
		zap.String("path", path),
		zap.Int("rows", result.Rows),
		zap.Int("changed", changed),
	)
	return *result, nil
}
