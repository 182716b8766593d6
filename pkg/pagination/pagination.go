package pagination

import (
	"net/http"
	"strconv"

	apperrors "github.com/utafrali/coursesearch/pkg/errors"
)

const (
	// DefaultPage is the zero-based page used when the request omits one.
	DefaultPage = 0
	// DefaultSize is the page size used when the request omits one.
	DefaultSize = 10
)

// Params holds zero-based pagination parameters extracted from query strings.
type Params struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// DefaultParams returns the pagination used when no parameters are given.
func DefaultParams() Params {
	return Params{Page: DefaultPage, Size: DefaultSize}
}

// FromRequest extracts the "page" and "size" query parameters. Values that are
// not integers produce an INVALID_PARAMETER error; integers are passed through
// as given so the index decides what a window it cannot serve means.
func FromRequest(r *http.Request) (Params, error) {
	p := DefaultParams()
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return p, apperrors.InvalidParameter("page", "must be an integer")
		}
		p.Page = page
	}

	if v := q.Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return p, apperrors.InvalidParameter("size", "must be an integer")
		}
		p.Size = size
	}

	return p, nil
}
