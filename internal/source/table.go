// Package source reads and writes the curated organization table, a CSV or
// XLSX file with named columns.
package source

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Column names of the organization table.
const (
	ColCompany   = "COMPANY"
	ColSector    = "SECTOR"
	ColMainFocus = "MAIN FOCUS"
	ColCountry   = "COUNTRY"
	ColWikidata  = "Wikidata"
)

// Format is the on-disk encoding of a table.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf picks the format from a file extension; anything but .xlsx is CSV.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// Table is a header plus data records. Records may be shorter than the
// header; missing cells read as empty.
type Table struct {
	Header    []string
	Records   [][]string
	Format    Format
	SheetName string
}

// Col returns the index of the named column, ignoring surrounding
// whitespace in the header.
func (t *Table) Col(name string) (int, bool) {
	for i, h := range t.Header {
		if strings.TrimSpace(h) == name {
			return i, true
		}
	}
	return -1, false
}

// Get returns the cell of record i in the named column.
func (t *Table) Get(i int, name string) string {
	c, ok := t.Col(name)
	if !ok || c >= len(t.Records[i]) {
		return ""
	}
	return t.Records[i][c]
}

// EnsureColumn appends the named column when absent and returns its index.
func (t *Table) EnsureColumn(name string) int {
	if c, ok := t.Col(name); ok {
		return c
	}
	t.Header = append(t.Header, name)
	return len(t.Header) - 1
}

// Set writes a cell, padding the record as needed.
func (t *Table) Set(i, col int, value string) {
	for len(t.Records[i]) <= col {
		t.Records[i] = append(t.Records[i], "")
	}
	t.Records[i][col] = value
}

// Read loads a table, choosing the parser by file extension.
func Read(path string) (*Table, error) {
	if FormatOf(path) == FormatXLSX {
		return readXLSX(path)
	}
	return readCSV(path)
}

func readCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "source: open csv")
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "source: read csv")
	}
	if len(records) == 0 {
		return nil, eris.New("source: csv is empty")
	}
	if len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}

	return &Table{Header: records[0], Records: records[1:], Format: FormatCSV}, nil
}

func readXLSX(path string) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "source: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("source: xlsx has no sheets")
	}
	sheet := f.Sheets[0]

	t := &Table{Format: FormatXLSX, SheetName: sheet.Name}
	for i, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if i == 0 {
			t.Header = cells
			continue
		}
		t.Records = append(t.Records, cells)
	}
	if len(t.Header) == 0 {
		return nil, eris.New("source: xlsx is empty")
	}
	return t, nil
}

// Write replaces the file at path with the table in its own format. The
// file is written to a temporary sibling and renamed into place.
func (t *Table) Write(path string) error {
	tmp := path + ".tmp"
	var err error
	if t.Format == FormatXLSX {
		err = t.writeXLSX(tmp)
	} else {
		err = t.writeCSV(tmp)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrap(err, "source: replace file")
	}
	return nil
}

// padded returns the record extended to the header width.
func (t *Table) padded(r []string) []string {
	if len(r) >= len(t.Header) {
		return r
	}
	out := make([]string, len(t.Header))
	copy(out, r)
	return out
}

func (t *Table) writeCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "source: create csv")
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrap(err, "source: write csv header")
	}
	for _, r := range t.Records {
		if err := w.Write(t.padded(r)); err != nil {
			f.Close() //nolint:errcheck
			return eris.Wrap(err, "source: write csv record")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrap(err, "source: flush csv")
	}
	return eris.Wrap(f.Close(), "source: close csv")
}

func (t *Table) writeXLSX(path string) error {
	name := t.SheetName
	if name == "" {
		name = "Sheet1"
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrap(err, "source: add xlsx sheet")
	}
	addRow := func(cells []string) {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}
	addRow(t.Header)
	for _, r := range t.Records {
		addRow(t.padded(r))
	}
	return eris.Wrap(f.Save(path), "source: save xlsx")
}
