package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/kg-reconcile/internal/cache"
	"github.com/sells-group/kg-reconcile/internal/config"
	"github.com/sells-group/kg-reconcile/internal/model"
	"github.com/sells-group/kg-reconcile/internal/resilience"
	"github.com/sells-group/kg-reconcile/internal/store"
	"github.com/sells-group/kg-reconcile/internal/vocab"
	"github.com/sells-group/kg-reconcile/pkg/wikidata"
)

const sourceCSV = "COMPANY,SECTOR,MAIN FOCUS,COUNTRY,Wikidata\n" +
	"Nvidia Corporation,Semiconductors,GPUs,USA,\n" +
	"Atlantis,,,,\n" +
	"AVIC,Aerospace,,China,\n" +
	"Aviation Industry Corporation of China,Aerospace,,PRC,\n" +
	"nan,,,,\n"

type harness struct {
	cfg   *config.Config
	fake  *fakeWikidata
	store *store.SQLiteStore
	p     *Pipeline
}

func testConfig(dir string) *config.Config {
	cfg := &config.Config{}
	cfg.Source.Path = filepath.Join(dir, "companies.csv")
	cfg.Cache.Path = filepath.Join(dir, "companies.json")
	cfg.Profile.Dir = filepath.Join(dir, "profiles")
	cfg.Wikidata.UserAgent = "kg-reconcile-test"
	cfg.Wikidata.MaxAttempts = 1
	cfg.Match.Limit = 5
	cfg.Match.Verifier = "claims"
	cfg.Match.Fallback = "strict"
	cfg.Reconcile.Mode = "strict"
	cfg.Reconcile.Description = "source"
	cfg.Enrich.ChunkSize = 2
	cfg.Enrich.Groups = []string{"stock", "social"}
	return cfg
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := testConfig(dir)
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, os.WriteFile(cfg.Source.Path, []byte(sourceCSV), 0o644))

	fake, srv := newFakeWikidata(t)
	wd := wikidata.NewClient(cfg.Wikidata.UserAgent,
		wikidata.WithAPIURL(srv.URL+"/w/api.php"),
		wikidata.WithSPARQLURL(srv.URL+"/sparql"),
	)

	st, err := store.NewSQLite(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	v, err := vocab.Default()
	require.NoError(t, err)

	p, err := New(cfg, st, wd, v)
	require.NoError(t, err)
	return &harness{cfg: cfg, fake: fake, store: st, p: p}
}

func TestNew_RejectsUnknownPolicies(t *testing.T) {
	v, err := vocab.Default()
	require.NoError(t, err)
	wd := wikidata.NewClient("test")

	for _, mutate := range []func(*config.Config){
		func(c *config.Config) { c.Reconcile.Mode = "lenient" },
		func(c *config.Config) { c.Reconcile.Description = "newest" },
		func(c *config.Config) { c.Match.Verifier = "llm" },
		func(c *config.Config) { c.Match.Verifier = "description"; c.Match.Fallback = "maybe" },
		func(c *config.Config) { c.Enrich.Groups = []string{"weather"} },
	} {
		cfg := testConfig(t.TempDir())
		mutate(cfg)
		_, err := New(cfg, nil, wd, v)
		require.Error(t, err)
		assert.True(t, resilience.IsConfiguration(err), err.Error())
	}
}

func TestSync(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	res, err := h.p.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Entities)
	assert.Equal(t, 1, res.Reconcile.Unresolved)
	assert.Equal(t, 1, res.Reconcile.Duplicates)
	assert.Equal(t, 1, res.Reconcile.Skipped)
	assert.Equal(t, 2, res.CountriesEnriched)

	entities, err := cache.Load(h.cfg.Cache.Path)
	require.NoError(t, err)
	require.Len(t, entities, 2)

	// sorted by label: "AVIC" < "Nvidia Corporation"
	assert.Equal(t, model.CanonicalEntity{
		ID: "Q790835", Label: "AVIC", Description: "Aerospace", Country: "China",
	}, entities[0])
	assert.Equal(t, model.CanonicalEntity{
		ID: "Q182477", Label: "Nvidia Corporation", Description: "GPUs", Country: "United States",
	}, entities[1])

	// first query string wins; Atlantis falls through every string
	assert.Equal(t, []string{"Nvidia Corporation USA", "Atlantis", "Atlantis company"}, h.fake.Searches())

	runs, err := h.p.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunKindSync, runs[0].Kind)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
}

func TestSync_Idempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.p.Sync(ctx)
	require.NoError(t, err)
	first, err := os.ReadFile(h.cfg.Cache.Path)
	require.NoError(t, err)

	res, err := h.p.Sync(ctx)
	require.NoError(t, err)
	second, err := os.ReadFile(h.cfg.Cache.Path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, 2, res.Reconcile.FromCache)
}

func TestSync_PermissiveKeepsUnresolved(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Reconcile.Mode = "permissive" })

	res, err := h.p.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Entities)

	data, err := os.ReadFile(h.cfg.Cache.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id": null`)
	assert.Contains(t, string(data), `"label": "Atlantis"`)
}

func TestSync_MissingColumnIsFatal(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, os.WriteFile(h.cfg.Source.Path, []byte("NAME\nAcme\n"), 0o644))
	require.NoError(t, os.WriteFile(h.cfg.Cache.Path, []byte(`[{"id":"Q1","label":"Keep"}]`), 0o644))

	_, err := h.p.Sync(context.Background())
	require.Error(t, err)
	assert.True(t, resilience.IsConfiguration(err))

	data, err := os.ReadFile(h.cfg.Cache.Path)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"Q1","label":"Keep"}]`, string(data))

	runs, err := h.p.Runs(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "COMPANY")
}

func TestEnrich(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.p.Sync(ctx)
	require.NoError(t, err)

	res, err := h.p.Enrich(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Entities)
	assert.Equal(t, 1, res.Touched["stock"])
	assert.Equal(t, 1, res.Touched["social"])

	entities, err := cache.Load(h.cfg.Cache.Path)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, map[string]string{
		"ticker_symbols":   "NVDA",
		"official_website": "https://www.nvidia.com/",
	}, entities[1].Attributes)

	// attributes survive the next sync
	_, err = h.p.Sync(ctx)
	require.NoError(t, err)
	entities, err = cache.Load(h.cfg.Cache.Path)
	require.NoError(t, err)
	assert.Equal(t, "NVDA", entities[1].Attributes["ticker_symbols"])
}

func TestAudit(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	cached := []model.CanonicalEntity{
		{ID: "Q182477", Label: "NVIDIA"},
		{ID: "Q790835", Label: "Unrelated Holdings"},
		{ID: "Q404", Label: "Gone Inc"},
		{Label: "Atlantis"},
	}
	require.NoError(t, cache.Save(h.cfg.Cache.Path, cached))
	before, err := os.ReadFile(h.cfg.Cache.Path)
	require.NoError(t, err)

	res, err := h.p.Audit(ctx)
	require.NoError(t, err)
	require.Len(t, res.Findings, 2)
	assert.Equal(t, model.FindingMismatch, res.Findings[0].Kind)
	assert.Equal(t, "Q790835", res.Findings[0].ID)
	assert.Equal(t, model.FindingMissing, res.Findings[1].Kind)
	assert.Equal(t, 3, res.Stats.Checked)

	after, err := os.ReadFile(h.cfg.Cache.Path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	runs, err := h.p.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	stored, err := h.store.ListFindings(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, res.Findings, stored)
}

func TestProfile(t *testing.T) {
	h := newHarness(t, nil)

	res, err := h.p.Profile(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(h.cfg.Profile.Dir, "Q182477.json"), res.Path)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	var prof model.Profile
	require.NoError(t, json.Unmarshal(data, &prof))
	assert.Equal(t, "Q182477", prof.ID)
	assert.Equal(t, "NVDA", prof.Fields["ticker_symbols"])
}

func TestProfile_InvalidID(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.p.Profile(context.Background(), "nvidia")
	assert.Error(t, err)
}

func TestBackSyncAndOverrides(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.p.Sync(ctx)
	require.NoError(t, err)

	res, err := h.p.BackSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Rows)
	assert.Equal(t, 2, res.Changed)

	data, err := os.ReadFile(h.cfg.Source.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Nvidia Corporation,Semiconductors,GPUs,USA,Q182477\n")
	assert.Contains(t, string(data), "AVIC,Aerospace,,China,Q790835\n")

	ov, err := h.p.ApplyOverrides(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ov.Changed)
	data, err = os.ReadFile(h.cfg.Source.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Aviation Industry Corporation of China,Aerospace,,PRC,Q790835\n")
}

func TestRuns_Disabled(t *testing.T) {
	v, err := vocab.Default()
	require.NoError(t, err)
	p, err := New(testConfig(t.TempDir()), nil, wikidata.NewClient("test"), v)
	require.NoError(t, err)

	_, err = p.Runs(context.Background(), 20)
	assert.Error(t, err)
}
