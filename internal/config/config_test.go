package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/kg-reconcile/internal/resilience"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/companies.csv", cfg.Source.Path)
	assert.Equal(t, "data/companies.json", cfg.Cache.Path)
	assert.Equal(t, "", cfg.Vocab.Path)
	assert.Equal(t, "https://www.wikidata.org/w/api.php", cfg.Wikidata.APIURL)
	assert.Equal(t, "https://query.wikidata.org/sparql", cfg.Wikidata.SPARQLURL)
	assert.Equal(t, DefaultUserAgent, cfg.Wikidata.UserAgent)
	assert.Equal(t, 30*time.Second, cfg.Wikidata.Timeout())
	assert.Equal(t, 1, cfg.Wikidata.MaxAttempts)
	assert.Equal(t, 5, cfg.Match.Limit)
	assert.Equal(t, 500*time.Millisecond, cfg.Match.Delay())
	assert.Equal(t, "claims", cfg.Match.Verifier)
	assert.Equal(t, "strict", cfg.Match.Fallback)
	assert.Equal(t, "strict", cfg.Reconcile.Mode)
	assert.Equal(t, "source", cfg.Reconcile.Description)
	assert.Equal(t, 50, cfg.Enrich.ChunkSize)
	assert.Equal(t, time.Second, cfg.Enrich.ChunkDelay())
	assert.Equal(t, []string{"corporate", "stock", "social", "financial"}, cfg.Enrich.Groups)
	assert.Equal(t, 100*time.Millisecond, cfg.Audit.Delay())
	assert.Equal(t, "data/profiles", cfg.Profile.Dir)
	assert.Equal(t, "data/runs.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
source:
  path: inputs/anagrafica.xlsx
match:
  limit: 10
  verifier: description
  fallback: permissive
reconcile:
  mode: permissive
enrich:
  chunk_size: 25
  groups: [social]
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "inputs/anagrafica.xlsx", cfg.Source.Path)
	assert.Equal(t, 10, cfg.Match.Limit)
	assert.Equal(t, "description", cfg.Match.Verifier)
	assert.Equal(t, "permissive", cfg.Match.Fallback)
	assert.Equal(t, "permissive", cfg.Reconcile.Mode)
	assert.Equal(t, 25, cfg.Enrich.ChunkSize)
	assert.Equal(t, []string{"social"}, cfg.Enrich.Groups)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, "data/companies.json", cfg.Cache.Path)
	assert.Equal(t, 500, cfg.Match.DelayMS)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
wikidata:
  user_agent: from-file
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("KGR_WIKIDATA_USER_AGENT", "from-env/1.0")
	t.Setenv("KGR_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "from-env/1.0", cfg.Wikidata.UserAgent)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("KGR_ENRICH_CHUNK_SIZE", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Enrich.ChunkSize)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("match: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("KGR_CACHE_PATH=from-dotenv.json\nKGR_SOURCE_PATH=from-dotenv.csv\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"),
		[]byte("KGR_CACHE_PATH=from-local.json\n"), 0644))

	// t.Setenv registers cleanup that restores the unset state.
	t.Setenv("KGR_CACHE_PATH", "")
	t.Setenv("KGR_SOURCE_PATH", "")
	os.Unsetenv("KGR_CACHE_PATH")  //nolint:errcheck
	os.Unsetenv("KGR_SOURCE_PATH") //nolint:errcheck

	LoadDotEnv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-local.json", cfg.Cache.Path)
	assert.Equal(t, "from-dotenv.csv", cfg.Source.Path)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Source.Path = "data/companies.csv"
	cfg.Cache.Path = "data/companies.json"
	cfg.Wikidata.UserAgent = DefaultUserAgent
	cfg.Wikidata.MaxAttempts = 1
	cfg.Match.Limit = 5
	cfg.Match.Verifier = "claims"
	cfg.Match.Fallback = "strict"
	cfg.Reconcile.Mode = "strict"
	cfg.Reconcile.Description = "source"
	cfg.Enrich.ChunkSize = 50
	cfg.Enrich.Groups = []string{"corporate", "financial"}
	return cfg
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validDefaults().Validate())
}

func TestValidate_EmptyUserAgent(t *testing.T) {
	cfg := validDefaults()
	cfg.Wikidata.UserAgent = "  "

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, resilience.IsConfiguration(err))
	assert.Contains(t, err.Error(), "wikidata.user_agent is required")
}

func TestValidate_UnknownPolicies(t *testing.T) {
	cfg := validDefaults()
	cfg.Match.Verifier = "llm"
	cfg.Match.Fallback = "maybe"
	cfg.Reconcile.Mode = "lenient"
	cfg.Reconcile.Description = "newest"
	cfg.Enrich.Groups = []string{"weather"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match.verifier")
	assert.Contains(t, err.Error(), "match.fallback")
	assert.Contains(t, err.Error(), "reconcile.mode")
	assert.Contains(t, err.Error(), "reconcile.description")
	assert.Contains(t, err.Error(), "unknown group weather")
}

func TestValidate_Bounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Match.Limit = 0
	cfg.Enrich.ChunkSize = -1
	cfg.Wikidata.MaxAttempts = 0
	cfg.Audit.DelayMS = -5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match.limit must be > 0")
	assert.Contains(t, err.Error(), "enrich.chunk_size must be > 0")
	assert.Contains(t, err.Error(), "wikidata.max_attempts must be >= 1")
	assert.Contains(t, err.Error(), "delays must be >= 0")
}

func TestValidate_CaseInsensitivePolicies(t *testing.T) {
	cfg := validDefaults()
	cfg.Reconcile.Mode = "Permissive"
	cfg.Match.Verifier = "DESCRIPTION"

	assert.NoError(t, cfg.Validate())
}
