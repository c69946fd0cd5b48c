// Package wikidata provides a client for the Wikidata action API
// (wbsearchentities, wbgetentities) and the SPARQL query service.
package wikidata

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/kg-reconcile/internal/resilience"
)

// Client defines the knowledge-graph operations used by the pipeline.
type Client interface {
	// SearchEntities runs a name search and returns at most limit items.
	SearchEntities(ctx context.Context, query string, limit int) ([]SearchResult, error)
	// GetEntities fetches entities by identifier. props selects the parts
	// returned (e.g. "claims", "labels"). Missing entities are included with
	// IsMissing() true.
	GetEntities(ctx context.Context, ids []string, props ...string) (map[string]Entity, error)
	// Query runs a SPARQL query.
	Query(ctx context.Context, sparql string) (*QueryResult, error)
}

// Option configures the Wikidata client.
type Option func(*httpClient)

// WithAPIURL sets a custom action API URL (for testing).
func WithAPIURL(u string) Option {
	return func(c *httpClient) {
		c.apiURL = u
	}
}

// WithSPARQLURL sets a custom SPARQL endpoint URL (for testing).
func WithSPARQLURL(u string) Option {
	return func(c *httpClient) {
		c.sparqlURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithLanguage sets the language for searches and labels. Default "en".
func WithLanguage(lang string) Option {
	return func(c *httpClient) {
		c.lang = lang
	}
}

type httpClient struct {
	userAgent string
	apiURL    string
	sparqlURL string
	lang      string
	retry     resilience.RetryConfig
	http      *http.Client
}

// NewClient creates a new Wikidata client. userAgent is sent on every
// request; the service rejects requests without one.
func NewClient(userAgent string, opts ...Option) Client {
	c := &httpClient{
		userAgent: userAgent,
		apiURL:    "https://www.wikidata.org/w/api.php",
		sparqlURL: "https://query.wikidata.org/sparql",
		lang:      "en",
		retry:     resilience.DefaultRetryConfig(),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("wikidata", "request")
	}
	return c
}

// get performs a GET and returns the body of a 200 response. Network
// failures and retryable statuses (408, 429, 5xx gateway errors) come back
// as *resilience.TransientError; other statuses are permanent.
func (c *httpClient) get(ctx context.Context, base string, params url.Values, accept string) ([]byte, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
		if err != nil {
			return nil, eris.Wrap(err, "wikidata: create request")
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", accept)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "wikidata: request failed"), 0)
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "wikidata: read response body"), resp.StatusCode)
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("wikidata: unexpected status %d: %s", resp.StatusCode, resilience.Snippet(body))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return nil, statusErr
		}
		return body, nil
	})
}

func (c *httpClient) SearchEntities(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("action", "wbsearchentities")
	params.Set("search", query)
	params.Set("language", c.lang)
	params.Set("type", "item")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("format", "json")

	body, err := c.get(ctx, c.apiURL, params, "application/json")
	if err != nil {
		return nil, eris.Wrap(err, "wikidata: search")
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, resilience.NewDecodeError(eris.Wrap(err, "wikidata: unmarshal search response"), body)
	}
	if result.Error != nil {
		return nil, eris.Errorf("wikidata: search error %s: %s", result.Error.Code, result.Error.Info)
	}
	return result.Search, nil
}

func (c *httpClient) GetEntities(ctx context.Context, ids []string, props ...string) (map[string]Entity, error) {
	if len(ids) == 0 {
		return map[string]Entity{}, nil
	}

	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("ids", strings.Join(ids, "|"))
	if len(props) > 0 {
		params.Set("props", strings.Join(props, "|"))
	}
	params.Set("languages", c.lang)
	params.Set("format", "json")

	body, err := c.get(ctx, c.apiURL, params, "application/json")
	if err != nil {
		return nil, eris.Wrap(err, "wikidata: get entities")
	}

	var result entitiesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, resilience.NewDecodeError(eris.Wrap(err, "wikidata: unmarshal entities response"), body)
	}
	if result.Error != nil {
		if result.Error.Code == "no-such-entity" {
			return nil, eris.Wrapf(resilience.ErrNotFound, "wikidata: %s", strings.Join(ids, "|"))
		}
		return nil, eris.Errorf("wikidata: get entities error %s: %s", result.Error.Code, result.Error.Info)
	}
	if result.Entities == nil {
		result.Entities = map[string]Entity{}
	}
	return result.Entities, nil
}

func (c *httpClient) Query(ctx context.Context, sparql string) (*QueryResult, error) {
	params := url.Values{}
	params.Set("query", sparql)
	params.Set("format", "json")

	body, err := c.get(ctx, c.sparqlURL, params, "application/sparql-results+json")
	if err != nil {
		return nil, eris.Wrap(err, "wikidata: sparql query")
	}

	var result QueryResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, resilience.NewDecodeError(eris.Wrap(err, "wikidata: unmarshal sparql response"), body)
	}
	return &result, nil
}

// GetEntity fetches a single entity and maps a missing entity to
// resilience.ErrNotFound.
func GetEntity(ctx context.Context, c interface {
	GetEntities(ctx context.Context, ids []string, props ...string) (map[string]Entity, error)
}, id string, props ...string) (Entity, error) {
	entities, err := c.GetEntities(ctx, []string{id}, props...)
	if err != nil {
		return Entity{}, err
	}
	e, ok := entities[id]
	if !ok || e.IsMissing() {
		return Entity{}, eris.Wrapf(resilience.ErrNotFound, "wikidata: %s", id)
	}
	return e, nil
}
