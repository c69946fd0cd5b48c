// Package model holds the records that flow through the reconciliation pipeline.
package model

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

var canonicalIDPattern = regexp.MustCompile(`^Q[0-9]+$`)

// IsCanonicalID reports whether s is a knowledge-graph item identifier (Q<digits>).
func IsCanonicalID(s string) bool {
	return canonicalIDPattern.MatchString(s)
}

// IsBlank reports whether a spreadsheet cell carries no usable value.
// Spreadsheet exports render missing cells as "nan".
func IsBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "nan")
}

// SourceRow is one row of the authoritative tabular source.
type SourceRow struct {
	Line       int    `json:"line"`
	Name       string `json:"name"`
	Sector     string `json:"sector,omitempty"`
	MainFocus  string `json:"main_focus,omitempty"`
	Country    string `json:"country,omitempty"`
	WikidataID string `json:"wikidata_id,omitempty"`
}

// Description returns MAIN FOCUS when present, falling back to SECTOR.
func (r SourceRow) Description() string {
	if !IsBlank(r.MainFocus) {
		return strings.TrimSpace(r.MainFocus)
	}
	if !IsBlank(r.Sector) {
		return strings.TrimSpace(r.Sector)
	}
	return ""
}

// CanonicalEntity is a resolved organization as persisted in the cache.
// An empty ID means the row could not be resolved and is serialized as null.
type CanonicalEntity struct {
	ID          string            `json:"id"`
	Label       string            `json:"label"`
	Description string            `json:"description"`
	Country     string            `json:"country,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// MarshalJSON writes a null id for unresolved entities and leaves non-ASCII
// and HTML-significant characters unescaped.
func (e CanonicalEntity) MarshalJSON() ([]byte, error) {
	type plain CanonicalEntity
	var id *string
	if e.ID != "" {
		id = &e.ID
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(struct {
		ID *string `json:"id"`
		plain
	}{ID: id, plain: plain(e)})
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// SetAttribute adds or replaces an enrichment attribute.
func (e *CanonicalEntity) SetAttribute(key, value string) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
}

// MatchCandidate is a single hit from a name search.
type MatchCandidate struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// EnrichmentRecord holds the attributes returned for one identifier by a
// structured query. Multi-valued attributes are pre-joined strings.
type EnrichmentRecord struct {
	ID     string            `json:"id"`
	Values map[string]string `json:"values"`
}

// FinancialPoint is one dated value of a financial metric.
type FinancialPoint struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
	Date   string `json:"date,omitempty"`
}

// Profile is the full single-entity extraction: flat facts plus the
// financial history time series.
type Profile struct {
	ID               string            `json:"id"`
	Fields           map[string]string `json:"fields"`
	FinancialHistory []FinancialPoint  `json:"financial_history,omitempty"`
}
