// Package verify decides whether a knowledge-graph candidate denotes a
// business entity, either from its "instance of" claims or from the short
// description returned by a name search.
package verify

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/kg-reconcile/internal/model"
	"github.com/sells-group/kg-reconcile/internal/normalize"
	"github.com/sells-group/kg-reconcile/internal/vocab"
	"github.com/sells-group/kg-reconcile/pkg/wikidata"
)

// PropInstanceOf is the "instance of" property.
const PropInstanceOf = "P31"

// FallbackPolicy decides descriptions that carry neither a deny nor a
// positive signal.
type FallbackPolicy string

const (
	// FallbackStrict treats unmatched descriptions as unverified.
	FallbackStrict FallbackPolicy = "strict"
	// FallbackPermissive accepts unmatched descriptions.
	FallbackPermissive FallbackPolicy = "permissive"
)

// ParseFallback validates a configured fallback policy.
func ParseFallback(s string) (FallbackPolicy, error) {
	switch p := FallbackPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case FallbackStrict, FallbackPermissive:
		return p, nil
	default:
		return "", eris.Errorf("verify: unknown fallback policy %q", s)
	}
}

// EntityGetter is the subset of the Wikidata client the claims verifier needs.
type EntityGetter interface {
	GetEntities(ctx context.Context, ids []string, props ...string) (map[string]wikidata.Entity, error)
}

// ClaimsVerifier checks an entity's P31 values against the company classes.
type ClaimsVerifier struct {
	client  EntityGetter
	classes map[string]bool
	limiter *rate.Limiter
}

// NewClaimsVerifier creates a verifier for the given class set
// (vocab.Vocabulary.ClassSet). delay spaces successive claims fetches; zero
// disables the throttle.
func NewClaimsVerifier(client EntityGetter, classes map[string]bool, delay time.Duration) *ClaimsVerifier {
	v := &ClaimsVerifier{client: client, classes: classes}
	if delay > 0 {
		v.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return v
}

// IsCompany reports whether id is an instance of a company class. Fetch and
// decode failures are logged and reported as false.
func (v *ClaimsVerifier) IsCompany(ctx context.Context, id string) bool {
	if !model.IsCanonicalID(id) {
		return false
	}
	if v.limiter != nil {
		if err := v.limiter.Wait(ctx); err != nil {
			return false
		}
	}

	entity, err := wikidata.GetEntity(ctx, v.client, id, "claims")
	if err != nil {
		zap.L().Warn("verify: claims fetch failed", zap.String("id", id), zap.Error(err))
		return false
	}

	for _, class := range entity.ItemValues(PropInstanceOf) {
		if v.classes[class] {
			return true
		}
	}
	return false
}

// Verify implements matcher.Verifier.
func (v *ClaimsVerifier) Verify(ctx context.Context, c model.MatchCandidate, _ string) bool {
	return v.IsCompany(ctx, c.ID)
}

// DescriptionVerifier classifies search hits from their description alone,
// without a network round trip.
type DescriptionVerifier struct {
	deny     []*regexp.Regexp
	positive []*regexp.Regexp
	suffixes map[string]bool
	fallback FallbackPolicy
}

// NewDescriptionVerifier compiles the vocabulary term lists.
func NewDescriptionVerifier(v *vocab.Vocabulary, fallback FallbackPolicy) *DescriptionVerifier {
	d := &DescriptionVerifier{
		deny:     compileTerms(v.DenyTerms),
		positive: compileTerms(v.PositiveTerms),
		suffixes: make(map[string]bool, len(v.LegalSuffixes)),
		fallback: fallback,
	}
	for _, s := range v.LegalSuffixes {
		d.suffixes[strings.ToLower(s)] = true
	}
	return d
}

func compileTerms(terms []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(t)+`\b`))
	}
	return out
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// IsLikelyCompany applies, in order: the deny list (reject), the positive
// list (accept), a legal-form suffix on a label that matches the queried
// name (accept), then the fallback policy.
func (d *DescriptionVerifier) IsLikelyCompany(description, label, queryName string) bool {
	if matchesAny(d.deny, description) {
		return false
	}
	if matchesAny(d.positive, description) {
		return true
	}
	if d.legalNameMatch(label, queryName) {
		return true
	}
	return d.fallback == FallbackPermissive
}

// legalNameMatch reports whether label ends in a legal-form suffix and the
// rest of it names the same organization as queryName.
func (d *DescriptionVerifier) legalNameMatch(label, queryName string) bool {
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(label, ",", " ")))
	if len(words) < 2 || !d.suffixes[words[len(words)-1]] {
		return false
	}
	base := strings.Join(words[:len(words)-1], " ")
	query := strings.ToLower(normalize.CleanName(queryName))
	if query == "" {
		return false
	}
	return strings.Contains(query, base) || strings.Contains(base, query)
}

// Verify implements matcher.Verifier.
func (d *DescriptionVerifier) Verify(_ context.Context, c model.MatchCandidate, queryName string) bool {
	return d.IsLikelyCompany(c.Description, c.Label, queryName)
}
