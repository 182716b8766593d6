package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/utafrali/coursesearch/internal/domain"
	"github.com/utafrali/coursesearch/internal/query"
)

// Engine is an in-memory implementation of the SearchEngine interface.
// Full-text matching is token based and case-insensitive; prefix and contains
// lookups compare whole lower-cased titles. Documents are returned in
// insertion order unless the query asks for a sort.
// Thread-safe via sync.RWMutex.
type Engine struct {
	mu      sync.RWMutex
	courses map[string]domain.Course
	order   []string
}

// New creates a new in-memory search engine.
func New() *Engine {
	return &Engine{
		courses: make(map[string]domain.Course),
	}
}

// Index adds or updates a single course in the in-memory index.
func (e *Engine) Index(_ context.Context, course *domain.Course) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.put(*course)
	return nil
}

// Delete removes a course from the in-memory index by its ID.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.courses[id]; !ok {
		return nil
	}
	delete(e.courses, id)
	e.order = slices.DeleteFunc(e.order, func(s string) bool { return s == id })
	return nil
}

// BulkIndex adds or updates multiple courses in the in-memory index.
func (e *Engine) BulkIndex(_ context.Context, courses []domain.Course) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range courses {
		e.put(courses[i])
	}
	return nil
}

// DeleteAll empties the in-memory index.
func (e *Engine) DeleteAll(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.courses = make(map[string]domain.Course)
	e.order = nil
	return nil
}

// Len returns the number of indexed courses.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.courses)
}

func (e *Engine) put(c domain.Course) {
	if _, exists := e.courses[c.ID]; !exists {
		e.order = append(e.order, c.ID)
	}
	e.courses[c.ID] = c
}

// Search executes a query descriptor against the in-memory index. A negative
// page or size, or a window past the int range, is rejected the way a remote
// index would reject it.
func (e *Engine) Search(_ context.Context, q *query.Query) (*domain.SearchResult, error) {
	if q.Page() < 0 || q.Size() < 0 {
		return nil, fmt.Errorf("memory search: page %d size %d: %w", q.Page(), q.Size(), domain.ErrIndexUnavailable)
	}
	offset, ok := q.Offset()
	if !ok {
		return nil, fmt.Errorf("memory search: page %d size %d overflows the result window: %w", q.Page(), q.Size(), domain.ErrIndexUnavailable)
	}

	e.mu.RLock()
	matched := make([]domain.Course, 0)
	clauses := q.Clauses()
	for _, id := range e.order {
		c := e.courses[id]
		if matchesAll(c, clauses) {
			matched = append(matched, c)
		}
	}
	e.mu.RUnlock()

	sortCourses(matched, q.Sort())

	total := len(matched)
	hits := matched
	if field := q.Collapse(); field != "" {
		hits = collapse(matched, field)
	}

	offset = min(offset, len(hits))
	end := offset + min(q.Size(), len(hits)-offset)

	page := make([]domain.Course, end-offset)
	copy(page, hits[offset:end])

	return &domain.SearchResult{
		Total:   int64(total),
		Courses: page,
	}, nil
}

// collapse keeps the first course for each distinct value of field. Courses
// without a value for field are dropped.
func collapse(courses []domain.Course, field string) []domain.Course {
	out := make([]domain.Course, 0, len(courses))
	seen := make(map[string]struct{}, len(courses))
	for _, c := range courses {
		v, ok := textField(c, field)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, c)
	}
	return out
}

func matchesAll(c domain.Course, clauses []query.Clause) bool {
	for _, cl := range clauses {
		if !matches(c, cl) {
			return false
		}
	}
	return true
}

func matches(c domain.Course, cl query.Clause) bool {
	switch cl := cl.(type) {
	case query.Match:
		for _, f := range cl.Fields {
			if text, ok := textField(c, f); ok && sharesToken(text, cl.Text) {
				return true
			}
		}
		return false
	case query.Term:
		v, ok := textField(c, cl.Field)
		return ok && v == cl.Value
	case query.Range:
		v, ok := value(c, cl.Field)
		if !ok {
			return false
		}
		order, ok := compare(v, cl.Value)
		if !ok {
			return false
		}
		if cl.Op == query.LTE {
			return order <= 0
		}
		return order >= 0
	case query.Prefix:
		v, ok := textField(c, cl.Field)
		return ok && strings.HasPrefix(strings.ToLower(v), strings.ToLower(cl.Value))
	case query.Contains:
		v, ok := textField(c, cl.Field)
		return ok && strings.Contains(strings.ToLower(v), strings.ToLower(cl.Value))
	default:
		return false
	}
}

func textField(c domain.Course, field string) (string, bool) {
	switch field {
	case domain.FieldID:
		return c.ID, true
	case domain.FieldTitle:
		return c.Title, true
	case domain.FieldDescription:
		return c.Description, true
	case domain.FieldCategory:
		return c.Category, true
	case domain.FieldType:
		return c.Type, true
	case domain.FieldGradeRange:
		return c.GradeRange, true
	default:
		return "", false
	}
}

// value returns a numeric or date field, or false when the course lacks it.
func value(c domain.Course, field string) (any, bool) {
	switch field {
	case domain.FieldMinAge:
		if c.MinAge == nil {
			return nil, false
		}
		return *c.MinAge, true
	case domain.FieldMaxAge:
		if c.MaxAge == nil {
			return nil, false
		}
		return *c.MaxAge, true
	case domain.FieldPrice:
		return c.Price, true
	case domain.FieldNextSessionDate:
		if c.NextSessionDate == nil {
			return nil, false
		}
		return *c.NextSessionDate, true
	default:
		return nil, false
	}
}

// compare orders a field value against a bound of a compatible type.
func compare(v, bound any) (int, bool) {
	switch b := bound.(type) {
	case domain.Date:
		d, ok := v.(domain.Date)
		if !ok {
			return 0, false
		}
		return d.Compare(b.Time), true
	default:
		x, ok := number(v)
		if !ok {
			return 0, false
		}
		y, ok := number(bound)
		if !ok {
			return 0, false
		}
		return cmp.Compare(x, y), true
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// sharesToken reports whether text contains any token of q.
func sharesToken(text, q string) bool {
	tokens := tokenize(text)
	for _, want := range tokenize(q) {
		if slices.Contains(tokens, want) {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// sortCourses orders courses by the sort field, placing courses without the
// field last and breaking ties by ID.
func sortCourses(courses []domain.Course, s query.Sort) {
	if s.Field == "" {
		return
	}
	slices.SortStableFunc(courses, func(a, b domain.Course) int {
		av, aok := value(a, s.Field)
		bv, bok := value(b, s.Field)
		switch {
		case !aok && !bok:
			return cmp.Compare(a.ID, b.ID)
		case !aok:
			return 1
		case !bok:
			return -1
		}
		order, _ := compare(av, bv)
		if s.Direction == query.Desc {
			order = -order
		}
		if order != 0 {
			return order
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
