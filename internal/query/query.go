// Package query turns course search parameters into an index-neutral query
// descriptor. Engines in internal/engine translate the descriptor into their
// own request format.
package query

import (
	"math"

	"github.com/utafrali/coursesearch/internal/domain"
)

// Clause is one atomic filter condition. All clauses of a Query are combined
// with logical AND.
type Clause interface {
	clause()
}

// Match is a full-text match of Text against any of Fields.
type Match struct {
	Fields []string
	Text   string
}

// Term is an exact equality on a keyword field.
type Term struct {
	Field string
	Value string
}

// RangeOp is the comparison of a Range clause.
type RangeOp int

// Range comparisons. Both bounds are inclusive.
const (
	GTE RangeOp = iota
	LTE
)

func (op RangeOp) String() string {
	if op == LTE {
		return "lte"
	}
	return "gte"
}

// Range compares a numeric or date field against Value, which is an int, a
// float64 or a domain.Date. Documents without the field never match.
type Range struct {
	Field string
	Op    RangeOp
	Value any
}

// Prefix matches documents whose whole field value starts with Value.
type Prefix struct {
	Field string
	Value string
}

// Contains matches documents whose whole field value contains Value.
type Contains struct {
	Field string
	Value string
}

func (Match) clause()    {}
func (Term) clause()     {}
func (Range) clause()    {}
func (Prefix) clause()   {}
func (Contains) clause() {}

// Direction is a sort direction.
type Direction int

// Sort directions.
const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// Sort names the field results are ordered by. An empty Field leaves the
// order to the index.
type Sort struct {
	Field     string
	Direction Direction
}

// Query is a complete, immutable query descriptor: filter clauses, sort and
// a zero-based page window.
type Query struct {
	clauses  []Clause
	sort     Sort
	page     int
	size     int
	collapse string
}

// Clauses returns a copy of the AND-ed filter clauses.
func (q *Query) Clauses() []Clause {
	out := make([]Clause, len(q.clauses))
	copy(out, q.clauses)
	return out
}

// Sort returns the requested ordering.
func (q *Query) Sort() Sort { return q.sort }

// Page returns the zero-based page index.
func (q *Query) Page() int { return q.page }

// Size returns the page size.
func (q *Query) Size() int { return q.size }

// Offset returns the index of the first document of the page. ok is false
// when the window, up to its last document, does not fit in an int.
func (q *Query) Offset() (offset int, ok bool) {
	p, s := q.page, q.size
	if p == 0 || s == 0 {
		return 0, true
	}
	if (p == -1 && s == math.MinInt) || (s == -1 && p == math.MinInt) {
		return 0, false
	}
	offset = p * s
	if offset/s != p {
		return 0, false
	}
	if s > 0 && offset > math.MaxInt-s {
		return 0, false
	}
	return offset, true
}

// Collapse returns the field whose repeated values are folded into their
// first hit, or "" when every hit is returned.
func (q *Query) Collapse() string { return q.collapse }

// MatchAll reports whether the query has no filter clauses.
func (q *Query) MatchAll() bool { return len(q.clauses) == 0 }

// TitlePrefix builds a title lookup for documents whose title starts with text.
// The index decides the order; size bounds the number of fetched documents
// and repeated titles are collapsed into their first hit.
func TitlePrefix(text string, size int) *Query {
	return &Query{
		clauses:  []Clause{Prefix{Field: domain.FieldTitle, Value: text}},
		size:     size,
		collapse: domain.FieldTitle,
	}
}

// TitleContains builds a title lookup for documents whose title contains
// text anywhere.
func TitleContains(text string, size int) *Query {
	return &Query{
		clauses:  []Clause{Contains{Field: domain.FieldTitle, Value: text}},
		size:     size,
		collapse: domain.FieldTitle,
	}
}
