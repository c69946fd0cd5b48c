// Package matcher resolves an organization name to knowledge-graph
// candidates by trying progressively looser search strings.
package matcher

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/kg-reconcile/internal/model"
	"github.com/sells-group/kg-reconcile/internal/normalize"
	"github.com/sells-group/kg-reconcile/pkg/wikidata"
)

// Searcher is the subset of the Wikidata client the matcher needs.
type Searcher interface {
	SearchEntities(ctx context.Context, query string, limit int) ([]wikidata.SearchResult, error)
}

// Verifier decides whether a candidate denotes a business entity. name is
// the organization name the search started from.
type Verifier interface {
	Verify(ctx context.Context, c model.MatchCandidate, name string) bool
}

// OverrideFunc pins a raw name to an identifier without searching.
// vocab.Vocabulary.Override is the usual implementation.
type OverrideFunc func(name string) (string, bool)

// Config configures the matcher.
type Config struct {
	// Limit is the number of hits requested per search string.
	Limit int
	// Delay spaces successive search requests; zero disables the throttle.
	Delay time.Duration
}

// DefaultConfig returns the default matcher configuration.
func DefaultConfig() Config {
	return Config{Limit: 5, Delay: 500 * time.Millisecond}
}

// Matcher searches the knowledge graph for an organization name.
type Matcher struct {
	searcher  Searcher
	verifier  Verifier
	overrides OverrideFunc
	limit     int
	limiter   *rate.Limiter
}

// New creates a Matcher. overrides, when non-nil, is consulted before any
// search.
func New(searcher Searcher, verifier Verifier, overrides OverrideFunc, cfg Config) *Matcher {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultConfig().Limit
	}
	m := &Matcher{
		searcher:  searcher,
		verifier:  verifier,
		overrides: overrides,
		limit:     cfg.Limit,
	}
	if cfg.Delay > 0 {
		m.limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}
	return m
}

func (m *Matcher) override(name string) (string, bool) {
	if m.overrides == nil {
		return "", false
	}
	return m.overrides(name)
}

// Queries returns the search strings tried for a name, in order:
// "<name> <country>", "<name>", "<cleaned name> company".
func Queries(name, country string) []string {
	name = strings.Join(strings.Fields(name), " ")
	country = strings.TrimSpace(country)

	var candidates []string
	if !model.IsBlank(country) {
		candidates = append(candidates, name+" "+country)
	}
	candidates = append(candidates, name)
	if cleaned := normalize.CleanName(name); cleaned != "" {
		candidates = append(candidates, cleaned+" company")
	}

	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, q := range candidates {
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}

// Search returns the verified candidates of the first search string that
// yields any. Search failures are logged and treated as no candidates.
func (m *Matcher) Search(ctx context.Context, name, country string) []model.MatchCandidate {
	if id, ok := m.override(name); ok {
		zap.L().Debug("match: override",
			zap.String("name", name),
			zap.String("id", id),
		)
		return []model.MatchCandidate{{ID: id, Label: name}}
	}

	for _, q := range Queries(name, country) {
		if m.limiter != nil {
			if err := m.limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		results, err := m.searcher.SearchEntities(ctx, q, m.limit)
		if err != nil {
			zap.L().Warn("match: search failed",
				zap.String("query", q),
				zap.Error(err),
			)
			continue
		}

		var verified []model.MatchCandidate
		for _, r := range results {
			if !model.IsCanonicalID(r.ID) {
				continue
			}
			c := model.MatchCandidate{ID: r.ID, Label: r.Label, Description: r.Description}
			if m.verifier.Verify(ctx, c, name) {
				verified = append(verified, c)
			}
		}

		if len(verified) > 0 {
			zap.L().Info("match: found candidate",
				zap.String("name", name),
				zap.String("query", q),
				zap.String("id", verified[0].ID),
				zap.String("label", verified[0].Label),
				zap.String("description", verified[0].Description),
			)
			return verified
		}
		zap.L().Debug("match: no verified candidate",
			zap.String("query", q),
			zap.Int("hits", len(results)),
		)
	}
	return nil
}

// Resolve returns the top verified candidate for name.
func (m *Matcher) Resolve(ctx context.Context, name, country string) (model.MatchCandidate, bool) {
	candidates := m.Search(ctx, name, country)
	if len(candidates) == 0 {
		return model.MatchCandidate{}, false
	}
	return candidates[0], true
}
