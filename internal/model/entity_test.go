package model

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCanonicalID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"Q182477", true},
		{"Q1", true},
		{"", false},
		{"Q", false},
		{"q182477", false},
		{"P31", false},
		{"Q12a", false},
		{" Q12", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsCanonicalID(tt.in), tt.in)
	}
}

func TestIsBlank(t *testing.T) {
	t.Parallel()

	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("   "))
	assert.True(t, IsBlank("nan"))
	assert.True(t, IsBlank("NaN"))
	assert.False(t, IsBlank("Nvidia"))
}

func TestSourceRow_Description(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "GPUs", SourceRow{MainFocus: "GPUs", Sector: "Semiconductors"}.Description())
	assert.Equal(t, "Semiconductors", SourceRow{MainFocus: "nan", Sector: "Semiconductors"}.Description())
	assert.Equal(t, "", SourceRow{}.Description())
}

func TestCanonicalEntity_MarshalNullID(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(CanonicalEntity{Label: "Atlantis", Description: "myth", Country: "Unknown"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":null,"label":"Atlantis","description":"myth","country":"Unknown"}`, string(data))
}

func TestCanonicalEntity_MarshalPreservesText(t *testing.T) {
	t.Parallel()

	e := CanonicalEntity{ID: "Q37156", Label: "AT&T", Description: "télécommunications <US>"}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	require.NoError(t, enc.Encode(e))
	data := buf.Bytes()
	assert.Contains(t, string(data), `"AT&T"`)
	assert.Contains(t, string(data), "télécommunications <US>")

	var back CanonicalEntity
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, e, back)
}

func TestCanonicalEntity_UnmarshalNullID(t *testing.T) {
	t.Parallel()

	var e CanonicalEntity
	require.NoError(t, json.Unmarshal([]byte(`{"id":null,"label":"X","description":""}`), &e))
	assert.Empty(t, e.ID)
	assert.Equal(t, "X", e.Label)
}

func TestCanonicalEntity_SetAttribute(t *testing.T) {
	t.Parallel()

	var e CanonicalEntity
	e.SetAttribute("TICKER_SYMBOLS", "NVDA")
	assert.Equal(t, map[string]string{"TICKER_SYMBOLS": "NVDA"}, e.Attributes)
}

func TestFinding_String(t *testing.T) {
	t.Parallel()

	missing := Finding{Kind: FindingMissing, ID: "Q1", Label: "Gone"}
	assert.Equal(t, "MISSING: Gone has ID Q1 which does not exist on Wikidata.", missing.String())

	mismatch := Finding{Kind: FindingMismatch, ID: "Q182477", Label: "NVIDIA", FetchedLabel: "Unrelated Corp"}
	assert.Equal(t, "MISMATCH: JSON Label 'NVIDIA' has ID Q182477 which is 'Unrelated Corp' on Wikidata.", mismatch.String())
}
