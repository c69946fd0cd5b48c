package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/kg-reconcile/internal/config"
	"github.com/sells-group/kg-reconcile/internal/pipeline"
	"github.com/sells-group/kg-reconcile/internal/resilience"
	"github.com/sells-group/kg-reconcile/internal/store"
	"github.com/sells-group/kg-reconcile/internal/vocab"
	"github.com/sells-group/kg-reconcile/pkg/wikidata"
)

// pipelineEnv holds the pipeline and the resources it owns.
type pipelineEnv struct {
	Store    store.Store // nil when run history is disabled
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline opens the run store, builds the Wikidata client and loads the
// vocabulary. Callers should defer env.Close().
func initPipeline(ctx context.Context, c *config.Config) (*pipelineEnv, error) {
	v, err := vocab.Load(c.Vocab.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load vocabulary")
	}

	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.New(c, st, newWikidataClient(c.Wikidata), v)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, err
	}
	return &pipelineEnv{Store: st, Pipeline: p}, nil
}

func newWikidataClient(c config.WikidataConfig) wikidata.Client {
	retry := resilience.DefaultRetryConfig()
	if c.MaxAttempts > 0 {
		retry.MaxAttempts = c.MaxAttempts
	}

	opts := []wikidata.Option{
		wikidata.WithHTTPClient(&http.Client{Timeout: c.Timeout()}),
		wikidata.WithRetry(retry),
	}
	if c.APIURL != "" {
		opts = append(opts, wikidata.WithAPIURL(c.APIURL))
	}
	if c.SPARQLURL != "" {
		opts = append(opts, wikidata.WithSPARQLURL(c.SPARQLURL))
	}
	return wikidata.NewClient(c.UserAgent, opts...)
}

// initStore opens the SQLite run store. An empty path disables run history.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	if c.Store.Path == "" {
		return nil, nil
	}
	st, err := store.NewSQLite(c.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
