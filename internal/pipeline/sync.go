package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/kg-reconcile/internal/cache"
	"github.com/sells-group/kg-reconcile/internal/enrich"
	"github.com/sells-group/kg-reconcile/internal/model"
	"github.com/sells-group/kg-reconcile/internal/reconcile"
	"github.com/sells-group/kg-reconcile/internal/source"
)

// SyncResult summarizes a sync run.
type SyncResult struct {
	Reconcile         reconcile.Stats `json:"reconcile"`
	CountriesEnriched int             `json:"countries_enriched"`
	Entities          int             `json:"entities"`
}

// Sync reconciles the source table with the cache, refreshes countries from
// the knowledge graph, and rewrites the cache sorted by label. A source
// that cannot be read fails the run before the cache is touched.
func (p *Pipeline) Sync(ctx context.Context) (*SyncResult, error) {
	var result SyncResult
	err := p.track(ctx, model.RunKindSync, func(string) (any, error) {
		rows, err := source.ReadRows(p.cfg.Source.Path)
		if err != nil {
			return nil, err
		}
		existing, err := cache.Load(p.cfg.Cache.Path)
		if err != nil {
			return nil, err
		}

		zap.L().Info("sync: reconciling",
			zap.String("source", p.cfg.Source.Path),
			zap.Int("rows", len(rows)),
			zap.Int("cached", len(existing)),
		)

		entities, stats := p.reconciler.Reconcile(ctx, rows, existing)
		result.Reconcile = stats

		countries, err := p.enricher.EnrichCountries(ctx, enrich.IDs(entities))
		if err != nil {
			return nil, err
		}
		result.CountriesEnriched = enrich.Apply(entities, enrich.CountryRecords(countries), p.normalizer)

		reconcile.SortByLabel(entities)
		result.Entities = len(entities)

		if err := cache.Save(p.cfg.Cache.Path, entities); err != nil {
			return nil, err
		}

		zap.L().Info("sync: complete",
			zap.Int("entities", result.Entities),
			zap.Int("searched", stats.Searched),
			zap.Int("unresolved", stats.Unresolved),
			zap.Int("duplicates", stats.Duplicates),
		)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
