// Package vocab loads the static, curated vocabularies the reconciliation
// components are constructed with: the country equivalence table, the
// company class set, description term lists and literal name overrides.
package vocab

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/kg-reconcile/internal/model"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Vocabulary is the immutable configuration data shared by the normalizer,
// matcher and verifiers.
type Vocabulary struct {
	Countries      []CountryRule `yaml:"countries"`
	CompanyClasses []string      `yaml:"company_classes"`
	DenyTerms      []string      `yaml:"deny_terms"`
	PositiveTerms  []string      `yaml:"positive_terms"`
	LegalSuffixes  []string      `yaml:"legal_suffixes"`
	Overrides      []Override    `yaml:"overrides"`
	ExactOverrides []Override    `yaml:"exact_overrides"`
}

// CountryRule maps spellings of one country to its canonical label.
// Variants match the whole lowercased input; Contains matches a substring.
type CountryRule struct {
	Canonical string   `yaml:"canonical"`
	Variants  []string `yaml:"variants"`
	Contains  []string `yaml:"contains"`
}

// Override pins an organization name to an identifier, bypassing search.
type Override struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
}

// Default returns the embedded vocabulary.
func Default() (*Vocabulary, error) {
	return parse(defaultsYAML)
}

// Load returns the embedded vocabulary with any section present in the YAML
// file at path replacing the default. An empty path yields the defaults.
func Load(path string) (*Vocabulary, error) {
	base, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vocab: read %s", path)
	}
	custom, err := parse(data)
	if err != nil {
		return nil, err
	}

	if len(custom.Countries) > 0 {
		base.Countries = custom.Countries
	}
	if len(custom.CompanyClasses) > 0 {
		base.CompanyClasses = custom.CompanyClasses
	}
	if len(custom.DenyTerms) > 0 {
		base.DenyTerms = custom.DenyTerms
	}
	if len(custom.PositiveTerms) > 0 {
		base.PositiveTerms = custom.PositiveTerms
	}
	if len(custom.LegalSuffixes) > 0 {
		base.LegalSuffixes = custom.LegalSuffixes
	}
	if len(custom.Overrides) > 0 {
		base.Overrides = custom.Overrides
	}
	if len(custom.ExactOverrides) > 0 {
		base.ExactOverrides = custom.ExactOverrides
	}
	return base, nil
}

func parse(data []byte) (*Vocabulary, error) {
	// The YAML has a top-level "vocabulary" key.
	var wrapper struct {
		Vocabulary Vocabulary `yaml:"vocabulary"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "vocab: parse")
	}
	v := &wrapper.Vocabulary
	if err := v.validate(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Vocabulary) validate() error {
	for _, c := range v.Countries {
		if strings.TrimSpace(c.Canonical) == "" {
			return eris.New("vocab: country rule without canonical label")
		}
	}
	for _, id := range v.CompanyClasses {
		if !model.IsCanonicalID(id) {
			return eris.Errorf("vocab: invalid company class %q", id)
		}
	}
	for _, list := range [][]Override{v.Overrides, v.ExactOverrides} {
		for _, o := range list {
			if o.Name == "" || !model.IsCanonicalID(o.ID) {
				return eris.Errorf("vocab: invalid override %q -> %q", o.Name, o.ID)
			}
		}
	}
	return nil
}

// ClassSet returns the company classes as a lookup set.
func (v *Vocabulary) ClassSet() map[string]bool {
	set := make(map[string]bool, len(v.CompanyClasses))
	for _, c := range v.CompanyClasses {
		set[c] = true
	}
	return set
}

// OverrideByExactName returns the override ID for a name equal to a key of
// either override list.
func (v *Vocabulary) OverrideByExactName(name string) (string, bool) {
	if id, ok := findExact(v.ExactOverrides, name); ok {
		return id, true
	}
	return findExact(v.Overrides, name)
}

// Override resolves a raw organization name the way the matcher does: an
// exact-only key equal to the trimmed name, then the first substring key
// occurring in name.
func (v *Vocabulary) Override(name string) (string, bool) {
	if id, ok := findExact(v.ExactOverrides, strings.TrimSpace(name)); ok {
		return id, true
	}
	for _, o := range v.Overrides {
		if strings.Contains(name, o.Name) {
			return o.ID, true
		}
	}
	return "", false
}

func findExact(overrides []Override, name string) (string, bool) {
	for _, o := range overrides {
		if o.Name == name {
			return o.ID, true
		}
	}
	return "", false
}
