// Package normalize cleans organization names and maps free-text country
// names onto the canonical country vocabulary.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/kg-reconcile/internal/model"
	"github.com/sells-group/kg-reconcile/internal/vocab"
)

// UnknownCountry is the label for rows with no usable country.
const UnknownCountry = "Unknown"

var parenthetical = regexp.MustCompile(`\([^()]*\)`)

// CleanName strips parenthetical qualifiers ("Alphabet (Google)" ->
// "Alphabet"), applies NFKC and collapses whitespace.
func CleanName(raw string) string {
	s := norm.NFKC.String(raw)
	for {
		stripped := parenthetical.ReplaceAllString(s, " ")
		if stripped == s {
			break
		}
		s = stripped
	}
	return collapse(s)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type containsRule struct {
	pattern   string
	canonical string
}

// Normalizer maps country spellings to canonical labels. It is immutable
// after construction and safe for concurrent use.
type Normalizer struct {
	exact    map[string]string
	contains []containsRule
}

// New builds a Normalizer from the country rules of a vocabulary.
func New(rules []vocab.CountryRule) *Normalizer {
	n := &Normalizer{exact: make(map[string]string)}
	for _, r := range rules {
		canonical := collapse(r.Canonical)
		n.exact[strings.ToLower(canonical)] = canonical
		for _, v := range r.Variants {
			n.exact[strings.ToLower(collapse(v))] = canonical
		}
		for _, c := range r.Contains {
			n.contains = append(n.contains, containsRule{pattern: strings.ToLower(c), canonical: canonical})
		}
	}
	return n
}

// Country returns the canonical label for raw. Blank and "nan" map to
// "Unknown"; unmatched names are title-cased. Country(Country(x)) == Country(x).
func (n *Normalizer) Country(raw string) string {
	s := collapse(norm.NFKC.String(raw))
	if model.IsBlank(s) {
		return UnknownCountry
	}

	key := strings.ToLower(s)
	if c, ok := n.exact[key]; ok {
		return c
	}
	for _, r := range n.contains {
		if strings.Contains(key, r.pattern) {
			return r.canonical
		}
	}

	// cases.Caser keeps state, so one per call. Title-casing can leave
	// decomposed sequences behind, so the result is normalized again.
	return norm.NFKC.String(cases.Title(language.English).String(s))
}
