package enrich

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/kg-reconcile/internal/model"
	"github.com/sells-group/kg-reconcile/pkg/wikidata"
)

// Profile field names filled from the people facet.
const (
	FieldCEOs         = "ceos_history"
	FieldOwners       = "owners_history"
	FieldBoardMembers = "board_members"
)

// Profile extracts every facet of a single entity. A facet whose query
// fails is logged and left out.
func (c *Client) Profile(ctx context.Context, id string) (*model.Profile, error) {
	if !model.IsCanonicalID(id) {
		return nil, eris.Errorf("enrich: invalid identifier %q", id)
	}

	p := &model.Profile{ID: id, Fields: make(map[string]string)}

	for _, facet := range profileFacets {
		res, err := c.facet(ctx, facet.name, fmt.Sprintf(facet.query, valuesBody([]string{id})))
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		if len(res) == 0 {
			continue
		}
		for name, v := range res[0] {
			if name == "item" || v.Value == "" {
				continue
			}
			p.Fields[name] = v.Value
		}
	}

	people, err := c.facet(ctx, "people", fmt.Sprintf(peopleQuery, valuesBody([]string{id})))
	if err == nil {
		var rows []personRow
		for _, b := range people {
			rows = append(rows, personRow{
				role:  b.Value("role"),
				name:  b.Value("name"),
				start: b.Value("start"),
				end:   b.Value("end"),
				asOf:  b.Value("as_of"),
			})
		}
		for k, v := range formatPeople(rows) {
			p.Fields[k] = v
		}
	} else if ctx.Err() != nil {
		return nil, err
	}

	history, err := c.facet(ctx, "financial_history", financialHistoryQuery(id))
	if err == nil {
		for _, b := range history {
			p.FinancialHistory = append(p.FinancialHistory, model.FinancialPoint{
				Metric: b.Value("metric"),
				Value:  b.Value("value"),
				Date:   b.Value("date"),
			})
		}
		SortHistory(p.FinancialHistory)
	} else if ctx.Err() != nil {
		return nil, err
	}

	return p, nil
}

func (c *Client) facet(ctx context.Context, name, query string) ([]wikidata.Binding, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "enrich: throttle")
	}
	res, err := c.querier.Query(ctx, query)
	if err != nil {
		zap.L().Warn("enrich: profile facet failed",
			zap.String("facet", name),
			zap.Error(err),
		)
		return nil, err
	}
	return res.Results.Bindings, nil
}

type personRow struct {
	role, name, start, end, asOf string
}

// formatPeople renders role holders as profile fields. CEOs are joined
// with "; " and carry their tenure, owners carry the as-of year, and
// board members are a plain ", " list. Duplicates are dropped.
func formatPeople(rows []personRow) map[string]string {
	var ceos, owners, board []string
	seen := make(map[string]bool)
	add := func(list *[]string, s string) {
		if seen[s] {
			return
		}
		seen[s] = true
		*list = append(*list, s)
	}

	for _, r := range rows {
		if r.name == "" {
			continue
		}
		switch r.role {
		case "ceo":
			add(&ceos, FormatTenure(r.name, r.start, r.end))
		case "owner":
			add(&owners, FormatOwnership(r.name, r.asOf))
		case "board_member":
			add(&board, r.name)
		}
	}

	out := make(map[string]string)
	if len(ceos) > 0 {
		out[FieldCEOs] = strings.Join(ceos, "; ")
	}
	if len(owners) > 0 {
		out[FieldOwners] = strings.Join(owners, "; ")
	}
	if len(board) > 0 {
		out[FieldBoardMembers] = strings.Join(board, ", ")
	}
	return out
}

// FormatTenure renders "<name> (from <year> to <year|present>)". A missing
// start year is shown as "?".
func FormatTenure(name, start, end string) string {
	from := year(start)
	if from == "" {
		from = "?"
	}
	to := year(end)
	if to == "" {
		to = "present"
	}
	return fmt.Sprintf("%s (from %s to %s)", name, from, to)
}

// FormatOwnership renders "<name> (as of <year|?>)".
func FormatOwnership(name, asOf string) string {
	y := year(asOf)
	if y == "" {
		y = "?"
	}
	return fmt.Sprintf("%s (as of %s)", name, y)
}

// year extracts the year of an xsd:dateTime literal.
func year(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return fmt.Sprintf("%d", t.Year())
	}
	sign := ""
	if s[0] == '-' || s[0] == '+' {
		if s[0] == '-' {
			sign = "-"
		}
		s = s[1:]
	}
	y, _, _ := strings.Cut(s, "-")
	y = strings.TrimLeft(y, "0")
	if y == "" {
		return ""
	}
	return sign + y
}

// SortHistory orders points by date, most recent first. Undated points go
// last; ties keep their metric order.
func SortHistory(points []model.FinancialPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		di, dj := points[i].Date, points[j].Date
		if di == "" || dj == "" {
			return di != "" && dj == ""
		}
		return di > dj
	})
}
