package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/kg-reconcile/internal/model"
)

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	got, err := Load(filepath.Join(t.TempDir(), "companies.json"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "companies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "Q1",`), 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_Empty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "companies.json")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "companies.json")
	entities := []model.CanonicalEntity{
		{ID: "Q182477", Label: "NVIDIA", Description: "GPUs & AI <accelerators>", Country: "United States"},
		{ID: "", Label: "Škoda Transportation", Description: "rolling stock", Country: "Czechia"},
		{ID: "Q1161666", Label: "Thales", Country: "France", Attributes: map[string]string{"ticker_symbols": "HO"}},
	}
	require.NoError(t, Save(path, entities))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "[\n  {\n    \"id\": \"Q182477\",")
	assert.Contains(t, text, `"description": "GPUs & AI <accelerators>"`)
	assert.Contains(t, text, `"label": "Škoda Transportation"`)
	assert.Contains(t, text, `"id": null`)

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, entities, got)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSave_Deterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entities := []model.CanonicalEntity{{
		ID:    "Q1",
		Label: "Acme",
		Attributes: map[string]string{
			"b": "2", "a": "1", "c": "3",
		},
	}}
	first := filepath.Join(dir, "a.json")
	second := filepath.Join(dir, "b.json")
	require.NoError(t, Save(first, entities))
	require.NoError(t, Save(second, entities))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncode_Nil(t *testing.T) {
	t.Parallel()

	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestWriteFile_Replaces(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteFile(path, []byte("first")))
	require.NoError(t, WriteFile(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestMarshalIndent(t *testing.T) {
	t.Parallel()

	data, err := MarshalIndent(map[string]string{"url": "https://example.com/?a=1&b=2"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"url\": \"https://example.com/?a=1&b=2\"\n}\n", string(data))
}
