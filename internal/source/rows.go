package source

import (
	"strings"

	"github.com/sells-group/kg-reconcile/internal/model"
	"github.com/sells-group/kg-reconcile/internal/resilience"
	"github.com/sells-group/kg-reconcile/internal/vocab"
)

// Rows converts the table into source rows. A missing COMPANY column is a
// configuration error.
func (t *Table) Rows() ([]model.SourceRow, error) {
	if _, ok := t.Col(ColCompany); !ok {
		return nil, resilience.NewConfigurationError("source: missing required column %q", ColCompany)
	}

	rows := make([]model.SourceRow, 0, len(t.Records))
	for i := range t.Records {
		rows = append(rows, model.SourceRow{
			Line:       i + 1,
			Name:       t.Get(i, ColCompany),
			Sector:     t.Get(i, ColSector),
			MainFocus:  t.Get(i, ColMainFocus),
			Country:    t.Get(i, ColCountry),
			WikidataID: strings.TrimSpace(t.Get(i, ColWikidata)),
		})
	}
	return rows, nil
}

// ReadRows loads the table at path and converts it into source rows.
func ReadRows(path string) ([]model.SourceRow, error) {
	t, err := Read(path)
	if err != nil {
		return nil, err
	}
	return t.Rows()
}

// BackSync writes cached identifiers into the Wikidata column for rows whose
// trimmed COMPANY equals a cached label, appending the column when absent.
// It returns the number of cells that changed.
func (t *Table) BackSync(entities []model.CanonicalEntity) (int, error) {
	if _, ok := t.Col(ColCompany); !ok {
		return 0, resilience.NewConfigurationError("source: missing required column %q", ColCompany)
	}

	ids := make(map[string]string, len(entities))
	for _, e := range entities {
		if e.ID == "" {
			continue
		}
		if _, ok := ids[e.Label]; !ok {
			ids[e.Label] = e.ID
		}
	}

	col := t.EnsureColumn(ColWikidata)
	changed := 0
	for i := range t.Records {
		id, ok := ids[strings.TrimSpace(t.Get(i, ColCompany))]
		if !ok || t.Get(i, ColWikidata) == id {
			continue
		}
		t.Set(i, col, id)
		changed++
	}
	return changed, nil
}

// ApplyOverrides sets the Wikidata column for rows whose trimmed COMPANY
// exactly equals an override name. It returns the number of cells that
// changed.
func (t *Table) ApplyOverrides(v *vocab.Vocabulary) (int, error) {
	if _, ok := t.Col(ColCompany); !ok {
		return 0, resilience.NewConfigurationError("source: missing required column %q", ColCompany)
	}

	col := t.EnsureColumn(ColWikidata)
	changed := 0
	for i := range t.Records {
		id, ok := v.OverrideByExactName(strings.TrimSpace(t.Get(i, ColCompany)))
		if !ok || t.Get(i, ColWikidata) == id {
			continue
		}
		t.Set(i, col, id)
		changed++
	}
	return changed, nil
}
