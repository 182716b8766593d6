package domain

import (
	"fmt"

	apperrors "github.com/utafrali/coursesearch/pkg/errors"
)

const (
	// DefaultSort is the wire name of the ordering used when none is given.
	DefaultSort = "upcoming"

	// MaxSuggestions caps every suggestion list.
	MaxSuggestions = 10
)

// ErrIndexUnavailable is returned when the search index cannot be reached or
// rejects a query.
var ErrIndexUnavailable = fmt.Errorf("search index unavailable: %w", apperrors.ErrServiceUnavail)

// SortMode selects the ordering of search results.
type SortMode int

// Sort modes. SortUpcoming is the zero value and the fallback for any
// unrecognised input.
const (
	SortUpcoming SortMode = iota
	SortPriceAsc
	SortPriceDesc
)

// ParseSortMode maps the wire name of a sort mode to its SortMode. Unknown
// names, including the empty string, select SortUpcoming.
func ParseSortMode(s string) SortMode {
	switch s {
	case "priceAsc":
		return SortPriceAsc
	case "priceDesc":
		return SortPriceDesc
	default:
		return SortUpcoming
	}
}

// String returns the wire name of the sort mode.
func (m SortMode) String() string {
	switch m {
	case SortPriceAsc:
		return "priceAsc"
	case SortPriceDesc:
		return "priceDesc"
	default:
		return DefaultSort
	}
}

// SearchParams holds all parameters for a course search. Empty strings and
// nil pointers mean "not set".
type SearchParams struct {
	Keyword   string
	MinAge    *int
	MaxAge    *int
	Category  string
	Type      string
	MinPrice  *float64
	MaxPrice  *float64
	StartDate *Date
	Sort      SortMode
	Page      int
	Size      int
}

// SearchResult holds one page of matching courses and the total match count
// across the whole index.
type SearchResult struct {
	Total   int64    `json:"total"`
	Courses []Course `json:"courses"`
}
