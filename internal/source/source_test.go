package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/kg-reconcile/internal/model"
	"github.com/sells-group/kg-reconcile/internal/resilience"
	"github.com/sells-group/kg-reconcile/internal/vocab"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const companiesCSV = "\ufeffCOMPANY,SECTOR,MAIN FOCUS,COUNTRY,Wikidata\n" +
	"Nvidia Corporation,Semiconductors,GPUs,USA,\n" +
	"AVIC,Aerospace,nan,China,Q1\n" +
	"\"Leonardo, S.p.A.\",Defence,,Italy\n" +
	"nan,,,,\n"

func TestFormatOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatXLSX, FormatOf("data/companies.XLSX"))
	assert.Equal(t, FormatCSV, FormatOf("data/companies.csv"))
	assert.Equal(t, FormatCSV, FormatOf("data/companies"))
}

func TestReadRows_CSV(t *testing.T) {
	t.Parallel()

	rows, err := ReadRows(writeFile(t, "companies.csv", companiesCSV))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, model.SourceRow{
		Line: 1, Name: "Nvidia Corporation", Sector: "Semiconductors", MainFocus: "GPUs", Country: "USA",
	}, rows[0])
	assert.Equal(t, "Q1", rows[1].WikidataID)
	assert.Equal(t, "Aerospace", rows[1].Description())
	assert.Equal(t, "Leonardo, S.p.A.", rows[2].Name)
	assert.Equal(t, "", rows[2].WikidataID)
	assert.Equal(t, 4, rows[3].Line)
}

func TestReadRows_MissingCompanyColumn(t *testing.T) {
	t.Parallel()

	_, err := ReadRows(writeFile(t, "bad.csv", "NAME,COUNTRY\nAcme,USA\n"))
	require.Error(t, err)
	assert.True(t, resilience.IsConfiguration(err))
}

func TestRead_Missing(t *testing.T) {
	t.Parallel()

	_, err := Read(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestRead_Empty(t *testing.T) {
	t.Parallel()

	_, err := Read(writeFile(t, "empty.csv", ""))
	assert.Error(t, err)
}

func TestBackSync(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "companies.csv", "COMPANY,COUNTRY\n Nvidia Corporation ,USA\nAVIC,China\nAtlantis,\n")
	tbl, err := Read(path)
	require.NoError(t, err)

	changed, err := tbl.BackSync([]model.CanonicalEntity{
		{ID: "Q182477", Label: "Nvidia Corporation"},
		{ID: "Q790835", Label: "AVIC"},
		{ID: "", Label: "Atlantis"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	require.NoError(t, tbl.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"COMPANY,COUNTRY,Wikidata\n Nvidia Corporation ,USA,Q182477\nAVIC,China,Q790835\nAtlantis,,\n",
		string(data))

	// a second pass changes nothing
	tbl, err = Read(path)
	require.NoError(t, err)
	changed, err = tbl.BackSync([]model.CanonicalEntity{{ID: "Q182477", Label: "Nvidia Corporation"}})
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestApplyOverrides(t *testing.T) {
	t.Parallel()

	v, err := vocab.Default()
	require.NoError(t, err)

	tbl, err := Read(writeFile(t, "companies.csv",
		"COMPANY,Wikidata\nAVIC,\nCASC,Q1073145\nEviden,Q5\nAVIC Helicopters,\n"))
	require.NoError(t, err)

	changed, err := tbl.ApplyOverrides(v)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	assert.Equal(t, "Q790835", tbl.Get(0, ColWikidata))
	assert.Equal(t, "Q1073145", tbl.Get(1, ColWikidata))
	assert.Equal(t, "Q118322695", tbl.Get(2, ColWikidata))
	assert.Equal(t, "", tbl.Get(3, ColWikidata))
}

func TestTable_XLSXRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "companies.xlsx")
	tbl := &Table{
		Header: []string{ColCompany, ColSector, ColCountry},
		Records: [][]string{
			{"Thales", "Defence", "France"},
			{"Saab AB", "Aerospace"},
		},
		Format: FormatXLSX,
	}
	require.NoError(t, tbl.Write(path))

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Thales", rows[0].Name)
	assert.Equal(t, "France", rows[0].Country)
	assert.Equal(t, "Saab AB", rows[1].Name)
	assert.Equal(t, "", rows[1].Country)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestTable_SetPadsRecord(t *testing.T) {
	t.Parallel()

	tbl := &Table{Header: []string{ColCompany}, Records: [][]string{{"Acme"}}}
	col := tbl.EnsureColumn(ColWikidata)
	assert.Equal(t, 1, col)
	assert.Equal(t, col, tbl.EnsureColumn(ColWikidata))

	tbl.Set(0, col, "Q42")
	assert.Equal(t, []string{"Acme", "Q42"}, tbl.Records[0])
}
