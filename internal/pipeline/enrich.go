package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/kg-reconcile/internal/cache"
	"github.com/sells-group/kg-reconcile/internal/enrich"
	"github.com/sells-group/kg-reconcile/internal/model"
)

// EnrichResult summarizes an attribute enrichment run.
type EnrichResult struct {
	Entities int            `json:"entities"`
	Touched  map[string]int `json:"touched"`
}

// Enrich runs the configured attribute groups over the cache and rewrites
// it. Attributes are only ever added or refreshed.
func (p *Pipeline) Enrich(ctx context.Context) (*EnrichResult, error) {
	result := EnrichResult{Touched: make(map[string]int)}
	err := p.track(ctx, model.RunKindEnrich, func(string) (any, error) {
		entities, err := cache.Load(p.cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		result.Entities = len(entities)
		ids := enrich.IDs(entities)

		for _, g := range p.groups {
			records, err := p.enricher.EnrichGroup(ctx, ids, g)
			if err != nil {
				return nil, err
			}
			n := enrich.Apply(entities, records, p.normalizer)
			result.Touched[string(g)] = n
			zap.L().Info("enrich: group applied",
				zap.String("group", string(g)),
				zap.Int("records", len(records)),
				zap.Int("touched", n),
			)
		}

		if err := cache.Save(p.cfg.Cache.Path, entities); err != nil {
			return nil, err
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
