package elasticsearch_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/coursesearch/internal/domain"
	esengine "github.com/utafrali/coursesearch/internal/engine/elasticsearch"
	"github.com/utafrali/coursesearch/internal/query"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine creates an Elasticsearch engine for integration tests.
// It skips the test if ELASTICSEARCH_URL is not set.
func newTestEngine(t *testing.T) *esengine.Engine {
	t.Helper()

	esURL := os.Getenv("ELASTICSEARCH_URL")
	if esURL == "" {
		t.Skip("ELASTICSEARCH_URL not set, skipping Elasticsearch integration tests")
	}

	// Use a unique test index per test run to avoid data conflicts.
	indexName := fmt.Sprintf("test_courses_%d", time.Now().UnixNano())

	eng, err := esengine.New(esURL, indexName, testLogger())
	require.NoError(t, err, "failed to create Elasticsearch engine")

	t.Cleanup(func() {
		_ = eng.DeleteIndex(context.Background())
	})

	return eng
}

func intPtr(v int) *int { return &v }

func newTestCourse(title string, minAge, maxAge int, price float64, date domain.Date) domain.Course {
	return domain.Course{
		ID:              uuid.New().String(),
		Title:           title,
		Description:     "Learn " + title,
		Category:        "STEM",
		Type:            "COURSE",
		GradeRange:      "3rd-8th",
		MinAge:          intPtr(minAge),
		MaxAge:          intPtr(maxAge),
		Price:           price,
		NextSessionDate: &date,
	}
}

func mustSearch(t *testing.T, eng *esengine.Engine, p domain.SearchParams) *domain.SearchResult {
	t.Helper()
	q, err := query.Build(p)
	require.NoError(t, err)
	result, err := eng.Search(context.Background(), q)
	require.NoError(t, err)
	return result
}

func seed(t *testing.T, eng *esengine.Engine) domain.Date {
	t.Helper()
	today := domain.Today()
	require.NoError(t, eng.BulkIndex(context.Background(), []domain.Course{
		newTestCourse("Math Basics", 8, 12, 100, today.AddDays(1)),
		newTestCourse("Science Lab", 10, 15, 150, today.AddDays(2)),
	}))
	return today
}

func TestES_Ping(t *testing.T) {
	eng := newTestEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, eng.Ping(ctx))
}

func TestES_KeywordAndAgeSearch(t *testing.T) {
	eng := newTestEngine(t)
	seed(t, eng)

	result := mustSearch(t, eng, domain.SearchParams{Keyword: "math", MinAge: intPtr(10), Size: 10})
	require.Equal(t, int64(1), result.Total)
	assert.Equal(t, "Math Basics", result.Courses[0].Title)

	result = mustSearch(t, eng, domain.SearchParams{MinAge: intPtr(13), Size: 10})
	require.Equal(t, int64(1), result.Total)
	assert.Equal(t, "Science Lab", result.Courses[0].Title)
}

func TestES_SortAndPriceRange(t *testing.T) {
	eng := newTestEngine(t)
	seed(t, eng)

	result := mustSearch(t, eng, domain.SearchParams{Sort: domain.SortPriceDesc, Size: 10})
	require.Len(t, result.Courses, 2)
	assert.Equal(t, "Science Lab", result.Courses[0].Title)

	result = mustSearch(t, eng, domain.SearchParams{MinPrice: ptrF(90), MaxPrice: ptrF(120), Size: 10})
	require.Equal(t, int64(1), result.Total)
	assert.Equal(t, "Math Basics", result.Courses[0].Title)
}

func TestES_StartDate(t *testing.T) {
	eng := newTestEngine(t)
	today := seed(t, eng)

	start := today.AddDays(2)
	result := mustSearch(t, eng, domain.SearchParams{StartDate: &start, Size: 10})
	require.Equal(t, int64(1), result.Total)
	assert.Equal(t, "Science Lab", result.Courses[0].Title)
}

func TestES_TitleLookups(t *testing.T) {
	eng := newTestEngine(t)
	seed(t, eng)
	ctx := context.Background()

	prefix, err := eng.Search(ctx, query.TitlePrefix("ma", 50))
	require.NoError(t, err)
	require.Len(t, prefix.Courses, 1)
	assert.Equal(t, "Math Basics", prefix.Courses[0].Title)

	contains, err := eng.Search(ctx, query.TitleContains("LAB", 50))
	require.NoError(t, err)
	require.Len(t, contains.Courses, 1)
	assert.Equal(t, "Science Lab", contains.Courses[0].Title)
}

func TestES_DeleteAndDeleteAll(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	course := newTestCourse("Robotics", 9, 14, 200, domain.Today().AddDays(3))
	require.NoError(t, eng.Index(ctx, &course))
	assert.Equal(t, int64(1), mustSearch(t, eng, domain.SearchParams{Size: 10}).Total)

	require.NoError(t, eng.Delete(ctx, course.ID))
	assert.Equal(t, int64(0), mustSearch(t, eng, domain.SearchParams{Size: 10}).Total)

	seed(t, eng)
	require.NoError(t, eng.DeleteAll(ctx))
	assert.Equal(t, int64(0), mustSearch(t, eng, domain.SearchParams{Size: 10}).Total)
}

func ptrF(v float64) *float64 { return &v }
