// Package enrich fetches auxiliary attributes for resolved entities through
// batched SPARQL queries and folds them back onto the cache.
package enrich

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/kg-reconcile/internal/model"
	"github.com/sells-group/kg-reconcile/internal/normalize"
	"github.com/sells-group/kg-reconcile/pkg/wikidata"
)

// Group names a set of attributes fetched by one batch query.
type Group string

const (
	GroupCountry   Group = "country"
	GroupCorporate Group = "corporate"
	GroupStock     Group = "stock"
	GroupSocial    Group = "social"
	GroupFinancial Group = "financial"
)

// AttrCountry is the record key the country group fills.
const AttrCountry = "country"

// ParseGroup validates an attribute group name.
func ParseGroup(s string) (Group, error) {
	g := Group(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := groupQueries[g]; !ok {
		return "", eris.Errorf("enrich: unknown attribute group %q", s)
	}
	return g, nil
}

// Querier runs a SPARQL query.
type Querier interface {
	Query(ctx context.Context, sparql string) (*wikidata.QueryResult, error)
}

// Config configures a Client.
type Config struct {
	// ChunkSize bounds the identifiers listed in one request.
	ChunkSize int
	// ChunkDelay spaces successive requests; zero disables the throttle.
	ChunkDelay time.Duration
}

// DefaultConfig returns the default enrichment configuration.
func DefaultConfig() Config {
	return Config{ChunkSize: 50, ChunkDelay: time.Second}
}

// Client issues chunked structured queries.
type Client struct {
	querier   Querier
	chunkSize int
	limiter   *rate.Limiter
}

// New creates a Client.
func New(querier Querier, cfg Config) *Client {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	c := &Client{querier: querier, chunkSize: cfg.ChunkSize}
	if cfg.ChunkDelay > 0 {
		c.limiter = rate.NewLimiter(rate.Every(cfg.ChunkDelay), 1)
	}
	return c
}

// Chunk partitions ids into consecutive slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// validIDs keeps well-formed identifiers, dropping duplicates.
func validIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !model.IsCanonicalID(id) || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// EnrichGroup fetches one attribute group for ids. Malformed and repeated
// identifiers are dropped before chunking, so the request count is
// ceil(distinct valid ids / chunk size). Identifiers in a chunk whose request
// fails are absent from the result.
func (c *Client) EnrichGroup(ctx context.Context, ids []string, group Group) (map[string]model.EnrichmentRecord, error) {
	if _, ok := groupQueries[group]; !ok {
		return nil, eris.Errorf("enrich: unknown attribute group %q", group)
	}

	chunks := Chunk(validIDs(ids), c.chunkSize)
	records := make(map[string]model.EnrichmentRecord)

	for i, chunk := range chunks {
		if err := c.wait(ctx); err != nil {
			return records, eris.Wrap(err, "enrich: throttle")
		}

		zap.L().Info("enrich: querying chunk",
			zap.String("group", string(group)),
			zap.Int("chunk", i+1),
			zap.Int("chunks", len(chunks)),
			zap.Int("ids", len(chunk)),
		)

		res, err := c.querier.Query(ctx, groupQuery(group, chunk))
		if err != nil {
			zap.L().Warn("enrich: chunk failed",
				zap.String("group", string(group)),
				zap.Int("chunk", i+1),
				zap.Error(err),
			)
			continue
		}

		for _, b := range res.Results.Bindings {
			id := wikidata.EntityIDFromURI(b.Value("item"))
			if !model.IsCanonicalID(id) {
				continue
			}
			rec, ok := records[id]
			if !ok {
				rec = model.EnrichmentRecord{ID: id, Values: make(map[string]string)}
			}
			for name, v := range b {
				if name == "item" || v.Value == "" {
					continue
				}
				if _, set := rec.Values[name]; !set {
					rec.Values[name] = v.Value
				}
			}
			records[id] = rec
		}
	}

	return records, nil
}

// EnrichCountries maps each identifier to its English country label.
func (c *Client) EnrichCountries(ctx context.Context, ids []string) (map[string]string, error) {
	records, err := c.EnrichGroup(ctx, ids, GroupCountry)
	countries := make(map[string]string, len(records))
	for id, rec := range records {
		if v := rec.Values[AttrCountry]; v != "" {
			countries[id] = v
		}
	}
	return countries, err
}

// CountryRecords wraps a country mapping as enrichment records for Apply.
func CountryRecords(countries map[string]string) map[string]model.EnrichmentRecord {
	out := make(map[string]model.EnrichmentRecord, len(countries))
	for id, country := range countries {
		out[id] = model.EnrichmentRecord{ID: id, Values: map[string]string{AttrCountry: country}}
	}
	return out
}

// Apply folds records onto entities in place and returns how many entities
// were touched. The country value is normalized and replaces Country; other
// values are added as attributes. Existing attributes are never removed.
func Apply(entities []model.CanonicalEntity, records map[string]model.EnrichmentRecord, n *normalize.Normalizer) int {
	touched := 0
	for i := range entities {
		e := &entities[i]
		if e.ID == "" {
			continue
		}
		rec, ok := records[e.ID]
		if !ok || len(rec.Values) == 0 {
			continue
		}
		for k, v := range rec.Values {
			if k == AttrCountry {
				e.Country = n.Country(v)
				continue
			}
			e.SetAttribute(k, v)
		}
		touched++
	}
	return touched
}

// IDs returns the non-null identifiers of entities in order.
func IDs(entities []model.CanonicalEntity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		if e.ID != "" {
			out = append(out, e.ID)
		}
	}
	return out
}
