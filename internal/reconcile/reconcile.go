// Package reconcile merges the authoritative source rows with the
// previously persisted cache into a deduplicated list of canonical entities.
package reconcile

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/kg-reconcile/internal/model"
	"github.com/sells-group/kg-reconcile/internal/normalize"
)

// Mode decides what happens to rows that resolve to no identifier.
type Mode string

const (
	// ModeStrict drops unresolved rows.
	ModeStrict Mode = "strict"
	// ModePermissive keeps unresolved rows with a null identifier.
	ModePermissive Mode = "permissive"
)

// ParseMode validates a merge mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeStrict, ModePermissive:
		return m, nil
	}
	return "", eris.Errorf("reconcile: unknown mode %q", s)
}

// DescriptionPrecedence decides which description wins when both the source
// row and the cached entity carry one.
type DescriptionPrecedence string

const (
	// PreferSource always takes the source row's description.
	PreferSource DescriptionPrecedence = "source"
	// PreferCache keeps a non-empty cached description.
	PreferCache DescriptionPrecedence = "cache"
)

// ParseDescriptionPrecedence validates a description precedence name.
func ParseDescriptionPrecedence(s string) (DescriptionPrecedence, error) {
	switch p := DescriptionPrecedence(strings.ToLower(strings.TrimSpace(s))); p {
	case PreferSource, PreferCache:
		return p, nil
	}
	return "", eris.Errorf("reconcile: unknown description precedence %q", s)
}

// Resolver finds a verified identifier for an organization name.
type Resolver interface {
	Resolve(ctx context.Context, name, country string) (model.MatchCandidate, bool)
}

// Options configures an Engine.
type Options struct {
	Mode        Mode
	Description DescriptionPrecedence
}

// Stats summarizes one reconcile pass.
type Stats struct {
	Rows       int `json:"rows"`
	Skipped    int `json:"skipped"`
	FromCache  int `json:"from_cache"`
	FromSource int `json:"from_source"`
	Searched   int `json:"searched"`
	Unresolved int `json:"unresolved"`
	Duplicates int `json:"duplicates"`
	Output     int `json:"output"`
}

// Engine applies the identifier precedence rules to source rows.
type Engine struct {
	resolver   Resolver
	normalizer *normalize.Normalizer
	opts       Options
}

// New creates an Engine. Zero-valued options fall back to strict mode and
// source description precedence.
func New(resolver Resolver, normalizer *normalize.Normalizer, opts Options) *Engine {
	if opts.Mode == "" {
		opts.Mode = ModeStrict
	}
	if opts.Description == "" {
		opts.Description = PreferSource
	}
	return &Engine{resolver: resolver, normalizer: normalizer, opts: opts}
}

type cacheIndex struct {
	byLabel map[string]model.CanonicalEntity
	byID    map[string]model.CanonicalEntity
}

func indexCache(existing []model.CanonicalEntity) cacheIndex {
	idx := cacheIndex{
		byLabel: make(map[string]model.CanonicalEntity, len(existing)),
		byID:    make(map[string]model.CanonicalEntity, len(existing)),
	}
	for _, e := range existing {
		if !model.IsCanonicalID(e.ID) {
			continue
		}
		if _, ok := idx.byLabel[e.Label]; !ok {
			idx.byLabel[e.Label] = e
		}
		if _, ok := idx.byID[e.ID]; !ok {
			idx.byID[e.ID] = e
		}
	}
	return idx
}

// Reconcile processes rows in order and returns one entity per distinct
// identifier, first row wins. The result is in source order; callers sort it
// with SortByLabel before persisting.
func (e *Engine) Reconcile(ctx context.Context, rows []model.SourceRow, existing []model.CanonicalEntity) ([]model.CanonicalEntity, Stats) {
	idx := indexCache(existing)
	var stats Stats

	out := make([]model.CanonicalEntity, 0, len(rows))
	seenID := make(map[string]bool, len(rows))
	seenUnresolved := make(map[string]bool)

	for _, row := range rows {
		stats.Rows++
		name := strings.TrimSpace(row.Name)
		if model.IsBlank(name) {
			stats.Skipped++
			continue
		}

		id := e.resolveID(ctx, row, name, idx, &stats)

		if id == "" {
			stats.Unresolved++
			if e.opts.Mode == ModeStrict {
				zap.L().Info("reconcile: dropping unresolved row",
					zap.Int("line", row.Line),
					zap.String("name", name),
				)
				continue
			}
			if seenUnresolved[name] {
				stats.Duplicates++
				continue
			}
			seenUnresolved[name] = true
		} else {
			if seenID[id] {
				stats.Duplicates++
				zap.L().Info("reconcile: duplicate identifier",
					zap.Int("line", row.Line),
					zap.String("name", name),
					zap.String("id", id),
				)
				continue
			}
			seenID[id] = true
		}

		out = append(out, e.buildEntity(row, name, id, idx))
	}

	stats.Output = len(out)
	return out, stats
}

func (e *Engine) resolveID(ctx context.Context, row model.SourceRow, name string, idx cacheIndex, stats *Stats) string {
	if cached, ok := idx.byLabel[name]; ok {
		stats.FromCache++
		return cached.ID
	}

	if id := strings.TrimSpace(row.WikidataID); model.IsCanonicalID(id) {
		stats.FromSource++
		return id
	}

	stats.Searched++
	zap.L().Info("reconcile: searching",
		zap.Int("line", row.Line),
		zap.String("name", name),
	)
	c, ok := e.resolver.Resolve(ctx, name, strings.TrimSpace(row.Country))
	if !ok {
		return ""
	}
	return c.ID
}

func (e *Engine) buildEntity(row model.SourceRow, name, id string, idx cacheIndex) model.CanonicalEntity {
	ent := model.CanonicalEntity{
		ID:          id,
		Label:       name,
		Description: row.Description(),
		Country:     e.normalizer.Country(row.Country),
	}

	cached, ok := idx.byID[id]
	if !ok {
		return ent
	}
	if e.opts.Description == PreferCache && cached.Description != "" {
		ent.Description = cached.Description
	}
	for k, v := range cached.Attributes {
		ent.SetAttribute(k, v)
	}
	return ent
}

// SortByLabel orders entities by label, case-insensitively, breaking ties
// by identifier so the persisted order is stable across runs.
func SortByLabel(entities []model.CanonicalEntity) {
	sort.SliceStable(entities, func(i, j int) bool {
		li, lj := strings.ToLower(entities[i].Label), strings.ToLower(entities[j].Label)
		if li != lj {
			return li < lj
		}
		return entities[i].ID < entities[j].ID
	})
}
