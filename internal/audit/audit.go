// Package audit re-checks persisted identifiers against the knowledge graph
// and reports labels that have drifted or entities that no longer exist.
package audit

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/kg-reconcile/internal/model"
	"github.com/sells-group/kg-reconcile/internal/resilience"
	"github.com/sells-group/kg-reconcile/pkg/wikidata"
)

// NoEnglishLabel stands in for entities that exist but carry no English label.
const NoEnglishLabel = "No English Label"

// LabelMatcher reports whether a cached label still agrees with the label
// the service returns.
type LabelMatcher func(cached, fetched string) bool

// ContainsMatcher accepts labels where either one contains the other,
// ignoring case.
func ContainsMatcher(cached, fetched string) bool {
	c, f := strings.ToLower(cached), strings.ToLower(fetched)
	return strings.Contains(f, c) || strings.Contains(c, f)
}

// EntityGetter fetches entities by identifier.
type EntityGetter interface {
	GetEntities(ctx context.Context, ids []string, props ...string) (map[string]wikidata.Entity, error)
}

// Auditor compares cached labels with the service's current labels.
type Auditor struct {
	client  EntityGetter
	match   LabelMatcher
	limiter *rate.Limiter
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithLabelMatcher replaces the default containment comparison.
func WithLabelMatcher(m LabelMatcher) Option {
	return func(a *Auditor) { a.match = m }
}

// WithDelay spaces successive label lookups.
func WithDelay(d time.Duration) Option {
	return func(a *Auditor) {
		if d > 0 {
			a.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// New creates an Auditor.
func New(client EntityGetter, opts ...Option) *Auditor {
	a := &Auditor{client: client, match: ContainsMatcher}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Stats summarizes an audit pass.
type Stats struct {
	Checked    int `json:"checked"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Missing    int `json:"missing"`
	Mismatched int `json:"mismatched"`
}

// Audit checks every entity with a well-formed identifier. It never
// modifies entities. Lookups that fail are logged and produce no finding;
// only context cancellation is returned as an error.
func (a *Auditor) Audit(ctx context.Context, entities []model.CanonicalEntity) ([]model.Finding, Stats, error) {
	var (
		findings []model.Finding
		stats    Stats
	)

	for _, e := range entities {
		if !model.IsCanonicalID(e.ID) {
			stats.Skipped++
			continue
		}
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return findings, stats, eris.Wrap(err, "audit: throttle")
			}
		}

		stats.Checked++
		fetched, err := a.fetchLabel(ctx, e.ID)
		switch {
		case resilience.IsNotFound(err):
			f := model.Finding{Kind: model.FindingMissing, ID: e.ID, Label: e.Label}
			findings = append(findings, f)
			stats.Missing++
			zap.L().Warn("audit: finding", zap.String("finding", f.String()))
		case err != nil:
			if ctx.Err() != nil {
				return findings, stats, eris.Wrap(ctx.Err(), "audit: cancelled")
			}
			stats.Failed++
			zap.L().Warn("audit: label lookup failed",
				zap.String("id", e.ID),
				zap.Error(err),
			)
		case !a.match(e.Label, fetched):
			f := model.Finding{Kind: model.FindingMismatch, ID: e.ID, Label: e.Label, FetchedLabel: fetched}
			findings = append(findings, f)
			stats.Mismatched++
			zap.L().Warn("audit: finding", zap.String("finding", f.String()))
		}
	}

	zap.L().Info("audit: complete",
		zap.Int("checked", stats.Checked),
		zap.Int("findings", len(findings)),
	)
	return findings, stats, nil
}

func (a *Auditor) fetchLabel(ctx context.Context, id string) (string, error) {
	entities, err := a.client.GetEntities(ctx, []string{id}, "labels")
	if err != nil {
		return "", err
	}
	e, ok := entities[id]
	if !ok || e.IsMissing() {
		return "", eris.Wrapf(resilience.ErrNotFound, "audit: %s", id)
	}
	label, ok := e.Label("en")
	if !ok {
		return NoEnglishLabel, nil
	}
	return label, nil
}
