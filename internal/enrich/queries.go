package enrich

import (
	"fmt"
	"strings"
)

// Batch queries select ?item plus one variable per attribute. The single %s
// is replaced with the VALUES clause body ("wd:Q1 wd:Q2 ...").
var groupQueries = map[Group]string{
	GroupCountry: `SELECT ?item (SAMPLE(?countryLabel) AS ?country) WHERE {
  VALUES ?item { %s }
  ?item wdt:P17 ?c.
  ?c rdfs:label ?countryLabel. FILTER(LANG(?countryLabel) = "en")
} GROUP BY ?item`,

	GroupCorporate: `SELECT ?item
  (GROUP_CONCAT(DISTINCT ?parentLabel; separator=", ") AS ?parent_organizations)
  (GROUP_CONCAT(DISTINCT ?subsidiaryLabel; separator=", ") AS ?subsidiaries)
  (GROUP_CONCAT(DISTINCT ?productLabel; separator=", ") AS ?products)
WHERE {
  VALUES ?item { %s }
  OPTIONAL { ?item wdt:P749 ?parent. ?parent rdfs:label ?parentLabel. FILTER(LANG(?parentLabel) = "en") }
  OPTIONAL { ?item wdt:P355 ?subsidiary. ?subsidiary rdfs:label ?subsidiaryLabel. FILTER(LANG(?subsidiaryLabel) = "en") }
  OPTIONAL { ?item wdt:P1056 ?product. ?product rdfs:label ?productLabel. FILTER(LANG(?productLabel) = "en") }
} GROUP BY ?item`,

	GroupStock: `SELECT ?item
  (GROUP_CONCAT(DISTINCT ?exchangeLabel; separator=", ") AS ?stock_exchanges)
  (GROUP_CONCAT(DISTINCT ?ticker; separator=", ") AS ?ticker_symbols)
  (GROUP_CONCAT(DISTINCT ?isin; separator=", ") AS ?isin_codes)
  (SAMPLE(?secCIK) AS ?sec_cik_number)
  (SAMPLE(?swiftBIC) AS ?swift_bic_code)
WHERE {
  VALUES ?item { %s }
  OPTIONAL { ?item wdt:P414 ?exchange. ?exchange rdfs:label ?exchangeLabel. FILTER(LANG(?exchangeLabel) = "en") }
  OPTIONAL { ?item p:P414 ?listing. ?listing pq:P249 ?ticker. }
  OPTIONAL { ?item wdt:P946 ?isin. }
  OPTIONAL { ?item wdt:P5531 ?secCIK. }
  OPTIONAL { ?item wdt:P2627 ?swiftBIC. }
} GROUP BY ?item`,

	GroupSocial: `SELECT ?item
  (SAMPLE(?website) AS ?official_website)
  (SAMPLE(?logo) AS ?logo_image)
  (GROUP_CONCAT(DISTINCT ?twitter; separator=", ") AS ?twitter_handles)
  (GROUP_CONCAT(DISTINCT ?linkedin; separator=", ") AS ?linkedin_ids)
  (GROUP_CONCAT(DISTINCT ?facebook; separator=", ") AS ?facebook_ids)
  (GROUP_CONCAT(DISTINCT ?instagram; separator=", ") AS ?instagram_handles)
  (GROUP_CONCAT(DISTINCT ?youtube; separator=", ") AS ?youtube_channels)
  (GROUP_CONCAT(DISTINCT ?github; separator=", ") AS ?github_usernames)
  (SAMPLE(?crunchbase) AS ?crunchbase_profile)
  (SAMPLE(?bloomberg) AS ?bloomberg_id)
  (SAMPLE(?opencorporates) AS ?opencorporates_id)
WHERE {
  VALUES ?item { %s }
  OPTIONAL { ?item wdt:P856 ?website. }
  OPTIONAL { ?item wdt:P154 ?logo. }
  OPTIONAL { ?item wdt:P2002 ?twitter. }
  OPTIONAL { ?item wdt:P4264 ?linkedin. }
  OPTIONAL { ?item wdt:P2013 ?facebook. }
  OPTIONAL { ?item wdt:P2003 ?instagram. }
  OPTIONAL { ?item wdt:P2397 ?youtube. }
  OPTIONAL { ?item wdt:P2037 ?github. }
  OPTIONAL { ?item wdt:P2088 ?crunchbase. }
  OPTIONAL { ?item wdt:P3052 ?bloomberg. }
  OPTIONAL { ?item wdt:P1320 ?opencorporates. }
} GROUP BY ?item`,

	GroupFinancial: `SELECT ?item
  (SAMPLE(?revenue) AS ?total_revenue)
  (SAMPLE(?netIncome) AS ?net_income)
  (SAMPLE(?marketCap) AS ?market_cap)
  (SAMPLE(?employeeCount) AS ?employees)
WHERE {
  VALUES ?item { %s }
  OPTIONAL { ?item wdt:P2139 ?revenue. }
  OPTIONAL { ?item wdt:P2295 ?netIncome. }
  OPTIONAL { ?item wdt:P2226 ?marketCap. }
  OPTIONAL { ?item wdt:P1128 ?employeeCount. }
} GROUP BY ?item`,
}

// valuesBody renders identifiers as a SPARQL VALUES body.
func valuesBody(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "wd:" + id
	}
	return strings.Join(parts, " ")
}

func groupQuery(g Group, ids []string) string {
	return fmt.Sprintf(groupQueries[g], valuesBody(ids))
}

// Profile facets query a single entity. Each returns at most one row; the
// row's variables become profile fields.
var profileFacets = []struct {
	name  string
	query string
}{
	{"core", `SELECT
  (SAMPLE(?itemLabel) AS ?label)
  (SAMPLE(?itemDescription) AS ?description)
  (SAMPLE(?countryLabel) AS ?country)
  (SAMPLE(?article) AS ?wikipedia_url)
  (SAMPLE(?inception) AS ?inception_date)
  (SAMPLE(?legalFormLabel) AS ?legal_form)
  (SAMPLE(?namedAfterLabel) AS ?named_after)
  (SAMPLE(?sloganText) AS ?slogan)
  (SAMPLE(?employees) AS ?employees_count)
  (SAMPLE(?replacesLabel) AS ?replaces)
  (SAMPLE(?replacedByLabel) AS ?replaced_by)
  (SAMPLE(?lei) AS ?legal_entity_identifier)
  (GROUP_CONCAT(DISTINCT ?industryLabel; separator=", ") AS ?sectors)
  (GROUP_CONCAT(DISTINCT ?hqLabel; separator=", ") AS ?headquarters)
  (GROUP_CONCAT(DISTINCT ?founderLabel; separator=", ") AS ?founded_by)
WHERE {
  VALUES ?item { %s }
  ?item rdfs:label ?itemLabel. FILTER(LANG(?itemLabel) = "en")
  OPTIONAL { ?item schema:description ?itemDescription. FILTER(LANG(?itemDescription) = "en") }
  OPTIONAL { ?item wdt:P17 ?c. ?c rdfs:label ?countryLabel. FILTER(LANG(?countryLabel) = "en") }
  OPTIONAL { ?article schema:about ?item; schema:inLanguage "en"; schema:isPartOf <https://en.wikipedia.org/>. }
  OPTIONAL { ?item wdt:P571 ?inception. }
  OPTIONAL { ?item wdt:P1454 ?legalForm. ?legalForm rdfs:label ?legalFormLabel. FILTER(LANG(?legalFormLabel) = "en") }
  OPTIONAL { ?item wdt:P138 ?namedAfter. ?namedAfter rdfs:label ?namedAfterLabel. FILTER(LANG(?namedAfterLabel) = "en") }
  OPTIONAL { ?item wdt:P1451 ?sloganText. FILTER(LANG(?sloganText) = "en") }
  OPTIONAL { ?item wdt:P1128 ?employees. }
  OPTIONAL { ?item wdt:P1365 ?replacesItem. ?replacesItem rdfs:label ?replacesLabel. FILTER(LANG(?replacesLabel) = "en") }
  OPTIONAL { ?item wdt:P1366 ?replacedBy. ?replacedBy rdfs:label ?replacedByLabel. FILTER(LANG(?replacedByLabel) = "en") }
  OPTIONAL { ?item wdt:P1278 ?lei. }
  OPTIONAL { ?item wdt:P452 ?industry. ?industry rdfs:label ?industryLabel. FILTER(LANG(?industryLabel) = "en") }
  OPTIONAL { ?item wdt:P159 ?hq. ?hq rdfs:label ?hqLabel. FILTER(LANG(?hqLabel) = "en") }
  OPTIONAL { ?item wdt:P112 ?founder. ?founder rdfs:label ?founderLabel. FILTER(LANG(?founderLabel) = "en") }
} GROUP BY ?item`},
	{"corporate", groupQueries[GroupCorporate]},
	{"social", groupQueries[GroupSocial]},
	{"stock", groupQueries[GroupStock]},
	{"brands", `SELECT
  (GROUP_CONCAT(DISTINCT ?brandLabel; separator=", ") AS ?brands_owned)
  (GROUP_CONCAT(DISTINCT ?parentBrandLabel; separator=", ") AS ?parent_brands)
WHERE {
  VALUES ?item { %s }
  OPTIONAL { ?item wdt:P1830 ?brand. ?brand rdfs:label ?brandLabel. FILTER(LANG(?brandLabel) = "en") }
  OPTIONAL { ?item wdt:P8345 ?parentBrand. ?parentBrand rdfs:label ?parentBrandLabel. FILTER(LANG(?parentBrandLabel) = "en") }
} GROUP BY ?item`},
}

// peopleQuery returns one row per role holder: role is ceo, owner or
// board_member; start/end qualify CEO tenure and as_of qualifies ownership.
const peopleQuery = `SELECT ?role ?name ?start ?end ?as_of WHERE {
  VALUES ?item { %s }
  {
    ?item p:P169 ?st. ?st ps:P169 ?person. BIND("ceo" AS ?role)
    OPTIONAL { ?st pq:P580 ?start. }
    OPTIONAL { ?st pq:P582 ?end. }
  } UNION {
    ?item p:P127 ?st. ?st ps:P127 ?person. BIND("owner" AS ?role)
    OPTIONAL { ?st pq:P585 ?as_of. }
  } UNION {
    ?item wdt:P3320 ?person. BIND("board_member" AS ?role)
  }
  ?person rdfs:label ?name. FILTER(LANG(?name) = "en")
}`

// financialMetrics maps display metric names to their properties, in the
// order they are reported.
var financialMetrics = []struct {
	metric   string
	property string
}{
	{"Market Cap", "P2226"},
	{"Total Revenue", "P2139"},
	{"Net Income", "P2295"},
	{"Operating Income", "P3362"},
	{"Total Assets", "P2403"},
	{"Total Equity", "P2137"},
	{"Total Liabilities", "P2138"},
	{"Total Debt", "P2133"},
	{"Employees", "P1128"},
}

func financialHistoryQuery(id string) string {
	var b strings.Builder
	b.WriteString("SELECT ?metric ?value (SAMPLE(?when) AS ?date) WHERE {\n")
	fmt.Fprintf(&b, "  VALUES ?item { wd:%s }\n", id)
	for i, m := range financialMetrics {
		if i > 0 {
			b.WriteString(" UNION ")
		} else {
			b.WriteString("  ")
		}
		fmt.Fprintf(&b, "{\n    ?item p:%[1]s ?st. ?st ps:%[1]s ?value. BIND(%[2]q AS ?metric)\n    OPTIONAL { ?st pq:P585 ?when. }\n  }", m.property, m.metric)
	}
	b.WriteString("\n} GROUP BY ?metric ?value ORDER BY DESC(?date)")
	return b.String()
}
