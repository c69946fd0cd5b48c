package pipeline

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
)

type fakeItem struct {
	label       string
	description string
	classes     []string
	country     string
	attrs       map[string]string
}

// fakeWikidata serves wbsearchentities, wbgetentities and SPARQL from a
// fixed item table.
type fakeWikidata struct {
	mu       sync.Mutex
	items    map[string]fakeItem
	search   map[string][]string
	searches []string
	sparql   int
}

var sparqlIDs = regexp.MustCompile(`wd:(Q[0-9]+)`)

func (f *fakeWikidata) Searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

func (f *fakeWikidata) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	q := r.URL.Query()

	if strings.HasSuffix(r.URL.Path, "/sparql") {
		f.serveSPARQL(w, q.Get("query"))
		return
	}

	switch q.Get("action") {
	case "wbsearchentities":
		f.mu.Lock()
		f.searches = append(f.searches, q.Get("search"))
		f.mu.Unlock()

		var hits []map[string]string
		for _, id := range f.search[q.Get("search")] {
			it := f.items[id]
			hits = append(hits, map[string]string{"id": id, "label": it.label, "description": it.description})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"search": hits})

	case "wbgetentities":
		entities := map[string]any{}
		for _, id := range strings.Split(q.Get("ids"), "|") {
			it, ok := f.items[id]
			if !ok {
				entities[id] = map[string]any{"id": id, "missing": ""}
				continue
			}
			var claims []map[string]any
			for _, c := range it.classes {
				claims = append(claims, map[string]any{"mainsnak": map[string]any{
					"snaktype": "value",
					"property": "P31",
					"datavalue": map[string]any{
						"type":  "wikibase-entityid",
						"value": map[string]string{"entity-type": "item", "id": c},
					},
				}})
			}
			entities[id] = map[string]any{
				"id":     id,
				"labels": map[string]any{"en": map[string]string{"language": "en", "value": it.label}},
				"claims": map[string]any{"P31": claims},
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"entities": entities})

	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
	}
}

func (f *fakeWikidata) serveSPARQL(w http.ResponseWriter, query string) {
	f.mu.Lock()
	f.sparql++
	f.mu.Unlock()

	countryQuery := strings.Contains(query, "AS ?country)")
	bindings := []map[string]any{}
	for _, m := range sparqlIDs.FindAllStringSubmatch(query, -1) {
		it, ok := f.items[m[1]]
		if !ok {
			continue
		}
		b := map[string]any{
			"item": map[string]string{"type": "uri", "value": "http://www.wikidata.org/entity/" + m[1]},
		}
		if countryQuery {
			if it.country == "" {
				continue
			}
			b["country"] = map[string]string{"type": "literal", "value": it.country}
		} else {
			for k, v := range it.attrs {
				if strings.Contains(query, "?"+k+")") {
					b[k] = map[string]string{"type": "literal", "value": v}
				}
			}
		}
		bindings = append(bindings, b)
	}
	fmt.Fprintf(w, `{"head":{"vars":["item"]},"results":{"bindings":%s}}`, mustJSON(bindings))
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

func newFakeWikidata(t *testing.T) (*fakeWikidata, *httptest.Server) {
	t.Helper()
	f := &fakeWikidata{
		items: map[string]fakeItem{
			"Q182477": {
				label: "Nvidia", description: "American technology company",
				classes: []string{"Q4830453", "Q891723"},
				country: "United States of America",
				attrs:   map[string]string{"ticker_symbols": "NVDA", "official_website": "https://www.nvidia.com/"},
			},
			"Q43035": {
				label: "Atlantis", description: "mythological continent",
				classes: []string{"Q24334685"},
			},
			"Q790835": {
				label: "Aviation Industry Corporation of China", description: "Chinese state-owned aerospace company",
				classes: []string{"Q270791"},
				country: "People's Republic of China",
			},
		},
		search: map[string][]string{
			"Nvidia Corporation USA": {"Q182477"},
			"Atlantis":               {"Q43035"},
			"Atlantis company":       {"Q43035"},
		},
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}
