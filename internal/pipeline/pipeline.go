// Package pipeline wires the reconciliation, enrichment and audit stages
// into the runs the CLI exposes.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/kg-reconcile/internal/audit"
	"github.com/sells-group/kg-reconcile/internal/config"
	"github.com/sells-group/kg-reconcile/internal/enrich"
	"github.com/sells-group/kg-reconcile/internal/matcher"
	"github.com/sells-group/kg-reconcile/internal/model"
	"github.com/sells-group/kg-reconcile/internal/normalize"
	"github.com/sells-group/kg-reconcile/internal/reconcile"
	"github.com/sells-group/kg-reconcile/internal/resilience"
	"github.com/sells-group/kg-reconcile/internal/store"
	"github.com/sells-group/kg-reconcile/internal/verify"
	"github.com/sells-group/kg-reconcile/internal/vocab"
	"github.com/sells-group/kg-reconcile/pkg/wikidata"
)

// Pipeline runs the stages against one source table and one cache file.
type Pipeline struct {
	cfg        *config.Config
	store      store.Store
	vocab      *vocab.Vocabulary
	normalizer *normalize.Normalizer
	reconciler *reconcile.Engine
	enricher   *enrich.Client
	auditor    *audit.Auditor
	groups     []enrich.Group
}

// New builds a Pipeline from configuration. st may be nil, in which case no
// run history is recorded. Unknown policy names are configuration errors.
func New(cfg *config.Config, st store.Store, wd wikidata.Client, v *vocab.Vocabulary) (*Pipeline, error) {
	mode, err := reconcile.ParseMode(cfg.Reconcile.Mode)
	if err != nil {
		return nil, resilience.NewConfigurationError("%v", err)
	}
	desc, err := reconcile.ParseDescriptionPrecedence(cfg.Reconcile.Description)
	if err != nil {
		return nil, resilience.NewConfigurationError("%v", err)
	}
	verifier, err := newVerifier(cfg.Match, wd, v)
	if err != nil {
		return nil, err
	}

	groups := make([]enrich.Group, 0, len(cfg.Enrich.Groups))
	for _, name := range cfg.Enrich.Groups {
		g, err := enrich.ParseGroup(name)
		if err != nil {
			return nil, resilience.NewConfigurationError("%v", err)
		}
		groups = append(groups, g)
	}

	n := normalize.New(v.Countries)
	m := matcher.New(wd, verifier, v.Override, matcher.Config{
		Limit: cfg.Match.Limit,
		Delay: cfg.Match.Delay(),
	})

	return &Pipeline{
		cfg:        cfg,
		store:      st,
		vocab:      v,
		normalizer: n,
		reconciler: reconcile.New(m, n, reconcile.Options{Mode: mode, Description: desc}),
		enricher: enrich.New(wd, enrich.Config{
			ChunkSize:  cfg.Enrich.ChunkSize,
			ChunkDelay: cfg.Enrich.ChunkDelay(),
		}),
		auditor: audit.New(wd, audit.WithDelay(cfg.Audit.Delay())),
		groups:  groups,
	}, nil
}

func newVerifier(cfg config.MatchConfig, wd wikidata.Client, v *vocab.Vocabulary) (matcher.Verifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Verifier)) {
	case "", "claims":
		return verify.NewClaimsVerifier(wd, v.ClassSet(), cfg.Delay()), nil
	case "description":
		fallback, err := verify.ParseFallback(cfg.Fallback)
		if err != nil {
			return nil, resilience.NewConfigurationError("%v", err)
		}
		return verify.NewDescriptionVerifier(v, fallback), nil
	}
	return nil, resilience.NewConfigurationError("pipeline: unknown verifier %q", cfg.Verifier)
}

// track records fn as a run of kind when a store is configured. Store
// failures are logged and never fail the run itself.
func (p *Pipeline) track(ctx context.Context, kind model.RunKind, fn func(runID string) (any, error)) error {
	log := zap.L().With(zap.String("run_kind", string(kind)))
	start := time.Now()

	var runID string
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, kind)
		if err != nil {
			log.Warn("pipeline: failed to create run", zap.Error(err))
		} else {
			runID = run.ID
			log = log.With(zap.String("run_id", runID))
		}
	}

	stats, fnErr := fn(runID)
	duration := time.Since(start).Milliseconds()

	if fnErr != nil {
		log.Error("pipeline: run failed", zap.Int64("duration_ms", duration), zap.Error(fnErr))
		if runID != "" {
			if err := p.store.FailRun(ctx, runID, fnErr); err != nil {
				log.Warn("pipeline: failed to record run failure", zap.Error(err))
			}
		}
		return fnErr
	}

	log.Info("pipeline: run complete", zap.Int64("duration_ms", duration))
	if runID != "" {
		if err := p.store.CompleteRun(ctx, runID, stats); err != nil {
			log.Warn("pipeline: failed to record run completion", zap.Error(err))
		}
	}
	return nil
}

// Runs lists the most recent recorded runs.
func (p *Pipeline) Runs(ctx context.Context, limit int) ([]model.Run, error) {
	if p.store == nil {
		return nil, eris.New("pipeline: run history is disabled (store.path is empty)")
	}
	return p.store.ListRuns(ctx, store.RunFilter{Limit: limit})
}
