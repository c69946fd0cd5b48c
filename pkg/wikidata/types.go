package wikidata

import (
	"encoding/json"
	"strings"
)

// SearchResult is one hit from the wbsearchentities endpoint.
type SearchResult struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

type searchResponse struct {
	Search []SearchResult `json:"search"`
	Error  *apiError      `json:"error,omitempty"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type entitiesResponse struct {
	Entities map[string]Entity `json:"entities"`
	Error    *apiError         `json:"error,omitempty"`
}

// Entity is an item as returned by wbgetentities.
type Entity struct {
	ID      string               `json:"id"`
	Missing *string              `json:"missing,omitempty"`
	Labels  map[string]LangValue `json:"labels,omitempty"`
	Claims  map[string][]Claim   `json:"claims,omitempty"`
}

// LangValue is a language-tagged string.
type LangValue struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

// Claim is a single statement on an entity.
type Claim struct {
	Mainsnak Snak   `json:"mainsnak"`
	Rank     string `json:"rank,omitempty"`
}

// Snak is the property/value pair of a claim.
type Snak struct {
	SnakType  string     `json:"snaktype"`
	Property  string     `json:"property"`
	DataType  string     `json:"datatype,omitempty"`
	DataValue *DataValue `json:"datavalue,omitempty"`
}

// DataValue holds the typed value of a snak. Value is left raw because its
// shape depends on Type.
type DataValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// IsMissing reports whether the service flagged the entity as nonexistent.
func (e Entity) IsMissing() bool {
	return e.Missing != nil
}

// Label returns the label in lang.
func (e Entity) Label(lang string) (string, bool) {
	lv, ok := e.Labels[lang]
	if !ok {
		return "", false
	}
	return lv.Value, true
}

// ItemValues returns the item identifiers referenced by the claims of property.
func (e Entity) ItemValues(property string) []string {
	var ids []string
	for _, c := range e.Claims[property] {
		if id := c.ItemID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// ItemID returns the referenced item for wikibase-entityid values, or "".
func (c Claim) ItemID() string {
	if c.Mainsnak.DataValue == nil {
		return ""
	}
	var v struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(c.Mainsnak.DataValue.Value, &v); err != nil {
		return ""
	}
	return v.ID
}

// QueryResult is a SPARQL 1.1 JSON results document.
type QueryResult struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`
}

// Binding maps variable names to bound values for one solution.
type Binding map[string]BindingValue

// BindingValue is one bound RDF term.
type BindingValue struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// Value returns the bound value of name, or "" when unbound.
func (b Binding) Value(name string) string {
	return b[name].Value
}

// EntityIDFromURI extracts the identifier from an entity URI such as
// http://www.wikidata.org/entity/Q182477 (its trailing path segment).
func EntityIDFromURI(uri string) string {
	uri = strings.TrimRight(uri, "/")
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
