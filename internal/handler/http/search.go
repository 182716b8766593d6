package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	apperrors "github.com/utafrali/coursesearch/pkg/errors"
	"github.com/utafrali/coursesearch/pkg/httputil"
	"github.com/utafrali/coursesearch/pkg/pagination"

	"github.com/utafrali/coursesearch/internal/domain"
	"github.com/utafrali/coursesearch/internal/service"
)

// SearchHandler serves the public search and suggestion endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{service: svc, logger: logger}
}

// Search handles GET /api/search and answers {"total": n, "courses": [...]}.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	params, err := parseSearchParams(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.Search(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// Suggest handles GET /api/search/suggest: distinct titles starting with q.
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	h.suggest(w, r, h.service.SuggestPrefix)
}

// Fuzzy handles GET /api/search/fuzzy: distinct titles containing q.
func (h *SearchHandler) Fuzzy(w http.ResponseWriter, r *http.Request) {
	h.suggest(w, r, h.service.SuggestFuzzy)
}

func (h *SearchHandler) suggest(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) ([]string, error)) {
	titles, err := fn(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, titles)
}

// parseSearchParams reads the search query string. Absent or empty values
// leave the filter unset; values that do not parse are rejected.
func parseSearchParams(r *http.Request) (domain.SearchParams, error) {
	q := r.URL.Query()

	page, err := pagination.FromRequest(r)
	if err != nil {
		return domain.SearchParams{}, err
	}

	params := domain.SearchParams{
		Keyword:  q.Get("q"),
		Category: q.Get("category"),
		Type:     q.Get("type"),
		Sort:     domain.ParseSortMode(q.Get("sort")),
		Page:     page.Page,
		Size:     page.Size,
	}

	if params.MinAge, err = intParam(q, "minAge"); err != nil {
		return params, err
	}
	if params.MaxAge, err = intParam(q, "maxAge"); err != nil {
		return params, err
	}
	if params.MinPrice, err = floatParam(q, "minPrice"); err != nil {
		return params, err
	}
	if params.MaxPrice, err = floatParam(q, "maxPrice"); err != nil {
		return params, err
	}

	if v := q.Get("startDate"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			return params, apperrors.InvalidParameter("startDate", "must be a date (YYYY-MM-DD) or an RFC 3339 date-time")
		}
		params.StartDate = &d
	}

	return params, nil
}

func intParam(q url.Values, name string) (*int, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, apperrors.InvalidParameter(name, "must be an integer")
	}
	return &n, nil
}

// floatParam accepts anything strconv.ParseFloat does, including NaN and
// Inf; the query builder decides whether such a bound is usable.
func floatParam(q url.Values, name string) (*float64, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, apperrors.InvalidParameter(name, "must be a number")
	}
	return &f, nil
}
