package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/coursesearch/pkg/health"
	"github.com/utafrali/coursesearch/pkg/middleware"

	"github.com/utafrali/coursesearch/internal/domain"
	"github.com/utafrali/coursesearch/internal/engine/memory"
	"github.com/utafrali/coursesearch/internal/query"
	"github.com/utafrali/coursesearch/internal/service"
)

const testJWTSecret = "s3cret"

// adminToken mints a short-lived admin JWT signed with testJWTSecret.
func adminToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "ops",
		"role": middleware.AdminRole,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func ptr[T any](v T) *T { return &v }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingEngine answers every call with err.
type failingEngine struct{ err error }

func (f failingEngine) Index(context.Context, *domain.Course) error       { return f.err }
func (f failingEngine) Delete(context.Context, string) error              { return f.err }
func (f failingEngine) BulkIndex(context.Context, []domain.Course) error  { return f.err }
func (f failingEngine) DeleteAll(context.Context) error                   { return f.err }
func (f failingEngine) Search(context.Context, *query.Query) (*domain.SearchResult, error) {
	return nil, f.err
}

type listStore struct{ courses []domain.Course }

func (s listStore) ListCourses(context.Context) ([]domain.Course, error) { return s.courses, nil }

func scenarioCourses() []domain.Course {
	return []domain.Course{
		{
			ID: "c1", Title: "Math Basics", Description: "Numbers and shapes",
			Category: "Math", Type: "COURSE",
			MinAge: ptr(8), MaxAge: ptr(12), Price: 100,
			NextSessionDate: ptr(domain.NewDate(2030, 6, 10)),
		},
		{
			ID: "c2", Title: "Science Lab", Description: "Hands-on experiments",
			Category: "Science", Type: "CLUB",
			MinAge: ptr(10), MaxAge: ptr(15), Price: 150,
			NextSessionDate: ptr(domain.NewDate(2030, 6, 12)),
		},
	}
}

type testServer struct {
	engine  *memory.Engine
	handler http.Handler
}

func newTestServer(t *testing.T, store service.CourseStore) *testServer {
	t.Helper()
	eng := memory.New()
	require.NoError(t, eng.BulkIndex(context.Background(), scenarioCourses()))
	svc := service.NewSearchService(eng, store, 0, newTestLogger())
	router := NewRouter(svc, health.NewHandler(), newTestLogger(), RouterConfig{
		AdminJWTSecret: testJWTSecret,
		CORS:           middleware.DefaultCORSConfig(),
	})
	return &testServer{engine: eng, handler: router}
}

func (s *testServer) do(t *testing.T, method, target, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminToken(t))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) domain.SearchResult {
	t.Helper()
	var res domain.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func resultIDs(res domain.SearchResult) []string {
	ids := make([]string, 0, len(res.Courses))
	for _, c := range res.Courses {
		ids = append(ids, c.ID)
	}
	return ids
}

type errorBody struct {
	Error struct {
		Code      string            `json:"code"`
		Message   string            `json:"message"`
		Fields    map[string]string `json:"fields"`
		RequestID string            `json:"request_id"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSearch_Scenarios(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name    string
		target  string
		wantIDs []string
	}{
		{"no filters orders by next session", "/api/search", []string{"c1", "c2"}},
		{"keyword", "/api/search?q=math", []string{"c1"}},
		{"keyword matches description", "/api/search?q=experiments", []string{"c2"}},
		{"learner min age", "/api/search?minAge=13", []string{"c2"}},
		{"learner max age", "/api/search?maxAge=9", []string{"c1"}},
		{"category", "/api/search?category=Science", []string{"c2"}},
		{"type", "/api/search?type=COURSE", []string{"c1"}},
		{"price range", "/api/search?minPrice=120&maxPrice=200", []string{"c2"}},
		{"start date", "/api/search?startDate=2030-06-11", []string{"c2"}},
		{"start date time", "/api/search?startDate=2030-06-11T08:00:00Z", []string{"c2"}},
		{"price descending", "/api/search?sort=priceDesc", []string{"c2", "c1"}},
		{"price ascending", "/api/search?sort=priceAsc", []string{"c1", "c2"}},
		{"unknown sort falls back", "/api/search?sort=newest", []string{"c1", "c2"}},
		{"second page", "/api/search?page=1&size=1", []string{"c2"}},
		{"no match", "/api/search?q=history", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodGet, tt.target, "", false)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

			res := decodeResult(t, rec)
			assert.Equal(t, tt.wantIDs, resultIDs(res))
		})
	}
}

func TestSearch_TotalCountsAllMatches(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodGet, "/api/search?size=1", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeResult(t, rec)
	assert.Equal(t, int64(2), res.Total)
	assert.Len(t, res.Courses, 1)
}

func TestSearch_BadParameters(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name     string
		target   string
		wantCode string
	}{
		{"page not integer", "/api/search?page=abc", "INVALID_PARAMETER"},
		{"size not integer", "/api/search?size=1.5", "INVALID_PARAMETER"},
		{"min age not integer", "/api/search?minAge=ten", "INVALID_PARAMETER"},
		{"max price not number", "/api/search?maxPrice=cheap", "INVALID_PARAMETER"},
		{"start date malformed", "/api/search?startDate=June", "INVALID_PARAMETER"},
		{"price NaN", "/api/search?minPrice=NaN", "INVALID_INPUT"},
		{"price infinite", "/api/search?maxPrice=Inf", "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodGet, tt.target, "", false)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Error.Code)
		})
	}
}

func TestSearch_IndexUnavailable(t *testing.T) {
	svc := service.NewSearchService(failingEngine{err: domain.ErrIndexUnavailable}, nil, 0, newTestLogger())
	router := NewRouter(svc, health.NewHandler(), newTestLogger(), RouterConfig{})

	for _, target := range []string{"/api/search", "/api/search/suggest?q=ma", "/api/search/fuzzy?q=ma"} {
		t.Run(target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, rec).Error.Code)
		})
	}
}

func TestSuggest(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"prefix", "/api/search/suggest?q=ma", []string{"Math Basics"}},
		{"prefix is case insensitive", "/api/search/suggest?q=SCI", []string{"Science Lab"}},
		{"prefix does not match inside", "/api/search/suggest?q=lab", []string{}},
		{"empty query", "/api/search/suggest", []string{}},
		{"fuzzy matches inside", "/api/search/fuzzy?q=lab", []string{"Science Lab"}},
		{"fuzzy empty query", "/api/search/fuzzy?q=", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodGet, tt.target, "", false)
			require.Equal(t, http.StatusOK, rec.Code)

			var got []string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCourses_IndexAndDelete(t *testing.T) {
	srv := newTestServer(t, nil)

	body := `{"id":"c3","title":"Math Olympiad","category":"Math","type":"COURSE","minAge":12,"maxAge":16,"price":80,"nextSessionDate":"2030-07-01"}`
	rec := srv.do(t, http.MethodPost, "/api/courses", body, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"id":"c3","status":"indexed"}}`, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/search/suggest?q=math", "", false)
	assert.JSONEq(t, `["Math Basics","Math Olympiad"]`, rec.Body.String())

	rec = srv.do(t, http.MethodDelete, "/api/courses/c3", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/search?q=olympiad", "", false)
	assert.Equal(t, int64(0), decodeResult(t, rec).Total)
}

func TestCourses_IndexValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name      string
		body      string
		wantCode  string
		wantField string
	}{
		{"missing title", `{"id":"c9","price":10}`, "VALIDATION_ERROR", "title"},
		{"negative price", `{"id":"c9","title":"X","price":-1}`, "VALIDATION_ERROR", "price"},
		{"unknown field", `{"id":"c9","title":"X","colour":"red"}`, "INVALID_INPUT", ""},
		{"malformed json", `{"id":`, "INVALID_INPUT", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/api/courses", tt.body, true)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			if tt.wantField != "" {
				assert.Contains(t, body.Error.Fields, tt.wantField)
			}
		})
	}
}

func TestCourses_ReplaceAll(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodPost, "/api/courses/bulk",
		`{"courses":[{"id":"n1","title":"Art Studio","price":40}]}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"indexed":1,"status":"replaced"}}`, rec.Body.String())

	res := decodeResult(t, srv.do(t, http.MethodGet, "/api/search", "", false))
	assert.Equal(t, []string{"n1"}, resultIDs(res))
}

func TestCourses_ReplaceAll_InvalidBatch(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodPost, "/api/courses/bulk",
		`{"courses":[{"id":"n1","title":"Art Studio"},{"id":"n2"}]}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Contains(t, body.Error.Fields, "courses[1].title")

	res := decodeResult(t, srv.do(t, http.MethodGet, "/api/search", "", false))
	assert.Equal(t, int64(1), res.Total)
}

func TestCourses_Reindex(t *testing.T) {
	store := listStore{courses: []domain.Course{{ID: "s1", Title: "Chess Club", Price: 20}}}
	srv := newTestServer(t, store)

	rec := srv.do(t, http.MethodPost, "/api/courses/reindex", "", true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"indexed":1,"status":"reindexed"}}`, rec.Body.String())

	res := decodeResult(t, srv.do(t, http.MethodGet, "/api/search", "", false))
	assert.Equal(t, []string{"s1"}, resultIDs(res))
}

func TestCourses_Reindex_NoStore(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodPost, "/api/courses/reindex", "", true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCourses_AdminAuth(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodDelete, "/api/courses/c1", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/courses/c1", nil)
	req.Header.Set("Authorization", "Bearer "+testJWTSecret)
	rec = httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/api/courses/c1", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)

	res := decodeResult(t, srv.do(t, http.MethodGet, "/api/search", "", false))
	assert.Equal(t, int64(1), res.Total)
}

func TestCourses_AdminDisabled(t *testing.T) {
	svc := service.NewSearchService(memory.New(), nil, 0, newTestLogger())
	router := NewRouter(svc, health.NewHandler(), newTestLogger(), RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/courses/reindex", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSearch_RateLimited(t *testing.T) {
	svc := service.NewSearchService(memory.New(), nil, 0, newTestLogger())
	router := NewRouter(svc, health.NewHandler(), newTestLogger(), RouterConfig{
		SearchRateLimit: 1,
		SearchBurst:     2,
	})

	serve := func(target string) int {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, serve("/api/search/suggest?q=ma"))
	assert.Equal(t, http.StatusOK, serve("/api/search/fuzzy?q=ma"))
	assert.Equal(t, http.StatusTooManyRequests, serve("/api/search?q=ma"))
	assert.Equal(t, http.StatusOK, serve("/health/live"))
}

func TestContentTypeJSON(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/courses", strings.NewReader("id=c1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", decodeError(t, rec).Error.Code)
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodGet, "/health/live", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/health/ready", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)

	srv.do(t, http.MethodGet, "/api/search", "", false)
	rec = srv.do(t, http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestSearch_CorrelationIDEchoed(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/search?page=x", nil)
	req.Header.Set(middleware.CorrelationHeader, "corr-123")
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "corr-123", rec.Header().Get(middleware.CorrelationHeader))
	assert.Contains(t, rec.Body.String(), `"request_id":"corr-123"`)
}
