package elasticsearch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/utafrali/coursesearch/internal/domain"
	"github.com/utafrali/coursesearch/internal/query"
)

// keywordFields maps analyzed text fields to their exact-value subfield.
var keywordFields = map[string]string{
	domain.FieldTitle: domain.FieldTitle + ".keyword",
}

// errWindowOverflow is returned for a page window whose offset cannot be
// represented.
var errWindowOverflow = errors.New("page window overflows")

// buildSearchRequest constructs the Elasticsearch request body for a query
// descriptor.
func buildSearchRequest(q *query.Query) (map[string]interface{}, error) {
	from, ok := q.Offset()
	if !ok {
		return nil, fmt.Errorf("page %d size %d: %w", q.Page(), q.Size(), errWindowOverflow)
	}

	body := map[string]interface{}{
		"query":            buildQuery(q.Clauses()),
		"from":             from,
		"size":             q.Size(),
		"track_total_hits": true,
	}

	if sortClause := buildSort(q.Sort()); sortClause != nil {
		body["sort"] = sortClause
	}
	if field := q.Collapse(); field != "" {
		body["collapse"] = map[string]interface{}{
			"field": exactField(field),
		}
	}

	return body, nil
}

// buildQuery combines the clauses into a bool query. Full-text clauses go to
// must so they contribute to scoring; everything else is a filter.
func buildQuery(clauses []query.Clause) map[string]interface{} {
	if len(clauses) == 0 {
		return map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	var must, filters []interface{}
	for _, c := range clauses {
		if m, ok := c.(query.Match); ok {
			must = append(must, buildMatch(m))
			continue
		}
		filters = append(filters, buildFilter(c))
	}

	boolQuery := map[string]interface{}{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	return map[string]interface{}{
		"bool": boolQuery,
	}
}

func buildMatch(m query.Match) map[string]interface{} {
	should := make([]interface{}, 0, len(m.Fields))
	for _, field := range m.Fields {
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{
				field: m.Text,
			},
		})
	}

	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should":               should,
			"minimum_should_match": 1,
		},
	}
}

func buildFilter(c query.Clause) map[string]interface{} {
	switch c := c.(type) {
	case query.Term:
		return map[string]interface{}{
			"term": map[string]interface{}{
				c.Field: c.Value,
			},
		}
	case query.Range:
		return map[string]interface{}{
			"range": map[string]interface{}{
				c.Field: map[string]interface{}{
					c.Op.String(): rangeValue(c.Value),
				},
			},
		}
	case query.Prefix:
		return map[string]interface{}{
			"prefix": map[string]interface{}{
				exactField(c.Field): map[string]interface{}{
					"value":            c.Value,
					"case_insensitive": true,
				},
			},
		}
	case query.Contains:
		return map[string]interface{}{
			"wildcard": map[string]interface{}{
				exactField(c.Field): map[string]interface{}{
					"value":            "*" + escapeWildcard(c.Value) + "*",
					"case_insensitive": true,
				},
			},
		}
	default:
		return map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}
}

// buildSort orders by the requested field with missing values last, then by
// id so that pages are stable. An empty field leaves scoring order.
func buildSort(s query.Sort) []interface{} {
	if s.Field == "" {
		return nil
	}

	return []interface{}{
		map[string]interface{}{
			s.Field: map[string]interface{}{
				"order":   s.Direction.String(),
				"missing": "_last",
			},
		},
		map[string]interface{}{
			domain.FieldID: "asc",
		},
	}
}

func rangeValue(v any) any {
	if d, ok := v.(domain.Date); ok {
		return d.String()
	}
	return v
}

func exactField(field string) string {
	if kw, ok := keywordFields[field]; ok {
		return kw
	}
	return field
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(s string) string {
	return wildcardEscaper.Replace(s)
}
