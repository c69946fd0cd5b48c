package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/kg-reconcile/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Vocab     VocabConfig     `yaml:"vocab" mapstructure:"vocab"`
	Wikidata  WikidataConfig  `yaml:"wikidata" mapstructure:"wikidata"`
	Match     MatchConfig     `yaml:"match" mapstructure:"match"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
	Profile   ProfileConfig   `yaml:"profile" mapstructure:"profile"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// SourceConfig locates the curated organization table.
type SourceConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig locates the persisted entity cache.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// VocabConfig points at an optional vocabulary file layered over the
// embedded defaults.
type VocabConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// WikidataConfig configures the knowledge-graph client.
type WikidataConfig struct {
	APIURL      string `yaml:"api_url" mapstructure:"api_url"`
	SPARQLURL   string `yaml:"sparql_url" mapstructure:"sparql_url"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// Timeout returns the per-request timeout.
func (c WikidataConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// MatchConfig configures name search and verification.
type MatchConfig struct {
	Limit    int    `yaml:"limit" mapstructure:"limit"`
	DelayMS  int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	Verifier string `yaml:"verifier" mapstructure:"verifier"`
	Fallback string `yaml:"fallback" mapstructure:"fallback"`
}

// Delay returns the pause between search requests.
func (c MatchConfig) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

// ReconcileConfig selects the merge policies.
type ReconcileConfig struct {
	Mode        string `yaml:"mode" mapstructure:"mode"`
	Description string `yaml:"description" mapstructure:"description"`
}

// EnrichConfig configures batched structured queries.
type EnrichConfig struct {
	ChunkSize    int      `yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkDelayMS int      `yaml:"chunk_delay_ms" mapstructure:"chunk_delay_ms"`
	Groups       []string `yaml:"groups" mapstructure:"groups"`
}

// ChunkDelay returns the pause between chunk requests.
func (c EnrichConfig) ChunkDelay() time.Duration {
	return time.Duration(c.ChunkDelayMS) * time.Millisecond
}

// AuditConfig configures the integrity audit.
type AuditConfig struct {
	DelayMS int `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// Delay returns the pause between label lookups.
func (c AuditConfig) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

// ProfileConfig configures full-profile extraction output.
type ProfileConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig locates the run history database. An empty path disables it.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultUserAgent identifies the client to the knowledge-graph service.
const DefaultUserAgent = "kg-reconcile/1.0 (https://github.com/sells-group/kg-reconcile)"

// LoadDotEnv loads .env.local and then .env from the working directory.
// Variables already set in the environment are never replaced, so
// .env.local wins over .env.
func LoadDotEnv() {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err == nil {
			zap.L().Debug("config: loaded env file", zap.String("file", f))
		}
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("KGR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.path", "data/companies.csv")
	v.SetDefault("cache.path", "data/companies.json")
	v.SetDefault("vocab.path", "")
	v.SetDefault("wikidata.api_url", "https://www.wikidata.org/w/api.php")
	v.SetDefault("wikidata.sparql_url", "https://query.wikidata.org/sparql")
	v.SetDefault("wikidata.user_agent", DefaultUserAgent)
	v.SetDefault("wikidata.timeout_secs", 30)
	v.SetDefault("wikidata.max_attempts", 1)
	v.SetDefault("match.limit", 5)
	v.SetDefault("match.delay_ms", 500)
	v.SetDefault("match.verifier", "claims")
	v.SetDefault("match.fallback", "strict")
	v.SetDefault("reconcile.mode", "strict")
	v.SetDefault("reconcile.description", "source")
	v.SetDefault("enrich.chunk_size", 50)
	v.SetDefault("enrich.chunk_delay_ms", 1000)
	v.SetDefault("enrich.groups", []string{"corporate", "stock", "social", "financial"})
	v.SetDefault("audit.delay_ms", 100)
	v.SetDefault("profile.dir", "data/profiles")
	v.SetDefault("store.path", "data/runs.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

var (
	verifierNames    = []string{"claims", "description"}
	fallbackNames    = []string{"strict", "permissive"}
	modeNames        = []string{"strict", "permissive"}
	descriptionNames = []string{"source", "cache"}
	groupNames       = []string{"country", "corporate", "stock", "social", "financial"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(v), a) {
			return true
		}
	}
	return false
}

// Validate checks the settings every command depends on and returns a
// configuration error listing each problem.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Wikidata.UserAgent) == "" {
		problems = append(problems, "wikidata.user_agent is required")
	}
	if c.Wikidata.MaxAttempts < 1 {
		problems = append(problems, "wikidata.max_attempts must be >= 1")
	}
	if c.Match.Limit <= 0 {
		problems = append(problems, "match.limit must be > 0")
	}
	if c.Enrich.ChunkSize <= 0 {
		problems = append(problems, "enrich.chunk_size must be > 0")
	}
	if c.Match.DelayMS < 0 || c.Enrich.ChunkDelayMS < 0 || c.Audit.DelayMS < 0 {
		problems = append(problems, "delays must be >= 0")
	}
	if !oneOf(c.Match.Verifier, verifierNames) {
		problems = append(problems, "match.verifier must be one of "+strings.Join(verifierNames, ", "))
	}
	if !oneOf(c.Match.Fallback, fallbackNames) {
		problems = append(problems, "match.fallback must be one of "+strings.Join(fallbackNames, ", "))
	}
	if !oneOf(c.Reconcile.Mode, modeNames) {
		problems = append(problems, "reconcile.mode must be one of "+strings.Join(modeNames, ", "))
	}
	if !oneOf(c.Reconcile.Description, descriptionNames) {
		problems = append(problems, "reconcile.description must be one of "+strings.Join(descriptionNames, ", "))
	}
	for _, g := range c.Enrich.Groups {
		if !oneOf(g, groupNames) {
			problems = append(problems, "enrich.groups has unknown group "+g)
		}
	}
	if strings.TrimSpace(c.Source.Path) == "" {
		problems = append(problems, "source.path is required")
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		problems = append(problems, "cache.path is required")
	}

	if len(problems) > 0 {
		return resilience.NewConfigurationError("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
