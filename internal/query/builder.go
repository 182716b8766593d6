package query

import (
	"fmt"
	"math"
	"slices"

	"github.com/utafrali/coursesearch/internal/domain"
	apperrors "github.com/utafrali/coursesearch/pkg/errors"
)

// ErrMalformedParams is returned by Build for parameters the index cannot
// represent. Absent or empty values are never malformed.
var ErrMalformedParams = fmt.Errorf("malformed search parameters: %w", apperrors.ErrInvalidInput)

// Build converts search parameters into a query descriptor. Page and size are
// passed through unchanged.
func Build(p domain.SearchParams) (*Query, error) {
	if err := checkFinite("minPrice", p.MinPrice); err != nil {
		return nil, err
	}
	if err := checkFinite("maxPrice", p.MaxPrice); err != nil {
		return nil, err
	}

	return &Query{
		clauses: Clauses(p),
		sort:    SortFor(p.Sort),
		page:    p.Page,
		size:    p.Size,
	}, nil
}

// Clauses returns the filter clauses for every parameter that is set, in a
// fixed order.
//
// Learner ages are matched against the course's age band: a learner minAge
// needs course.maxAge >= minAge, a learner maxAge needs course.minAge <= maxAge.
func Clauses(p domain.SearchParams) []Clause {
	candidates := []Clause{
		keyword(p.Keyword),
		bound(domain.FieldMaxAge, GTE, p.MinAge),
		bound(domain.FieldMinAge, LTE, p.MaxAge),
		term(domain.FieldCategory, p.Category),
		term(domain.FieldType, p.Type),
		bound(domain.FieldPrice, GTE, p.MinPrice),
		bound(domain.FieldPrice, LTE, p.MaxPrice),
		bound(domain.FieldNextSessionDate, GTE, p.StartDate),
	}
	return slices.DeleteFunc(candidates, func(c Clause) bool { return c == nil })
}

// SortFor maps a sort mode to a sort specification. Every mode other than the
// two price modes orders by next session date, earliest first.
func SortFor(m domain.SortMode) Sort {
	switch m {
	case domain.SortPriceAsc:
		return Sort{Field: domain.FieldPrice, Direction: Asc}
	case domain.SortPriceDesc:
		return Sort{Field: domain.FieldPrice, Direction: Desc}
	default:
		return Sort{Field: domain.FieldNextSessionDate, Direction: Asc}
	}
}

func keyword(text string) Clause {
	if text == "" {
		return nil
	}
	return Match{Fields: []string{domain.FieldTitle, domain.FieldDescription}, Text: text}
}

func term(field, value string) Clause {
	if value == "" {
		return nil
	}
	return Term{Field: field, Value: value}
}

func bound[T any](field string, op RangeOp, v *T) Clause {
	if v == nil {
		return nil
	}
	return Range{Field: field, Op: op, Value: *v}
}

func checkFinite(name string, v *float64) error {
	if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
		return fmt.Errorf("%w: %s must be a finite number", ErrMalformedParams, name)
	}
	return nil
}
