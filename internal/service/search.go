package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/utafrali/coursesearch/internal/domain"
	"github.com/utafrali/coursesearch/internal/engine"
	"github.com/utafrali/coursesearch/internal/query"
	apperrors "github.com/utafrali/coursesearch/pkg/errors"
	"github.com/utafrali/coursesearch/pkg/tracing"
	"github.com/utafrali/coursesearch/pkg/validator"
)

// DefaultSuggestFetchSize is the number of documents a suggestion lookup
// fetches before duplicate titles are removed.
const DefaultSuggestFetchSize = 50

// ErrNoCourseStore is returned by Reindex when no source of truth is configured.
var ErrNoCourseStore = fmt.Errorf("course store not configured: %w", apperrors.ErrServiceUnavail)

// CourseStore is the source of truth a reindex reads from.
type CourseStore interface {
	ListCourses(ctx context.Context) ([]domain.Course, error)
}

// SearchService implements course search, title suggestions and index
// maintenance on top of a search engine.
type SearchService struct {
	engine    engine.SearchEngine
	store     CourseStore
	fetchSize int
	logger    *slog.Logger
}

// NewSearchService creates a new search service. store may be nil, in which
// case Reindex is unavailable. A fetchSize below domain.MaxSuggestions falls
// back to DefaultSuggestFetchSize.
func NewSearchService(eng engine.SearchEngine, store CourseStore, fetchSize int, logger *slog.Logger) *SearchService {
	if fetchSize < domain.MaxSuggestions {
		fetchSize = DefaultSuggestFetchSize
	}
	return &SearchService{
		engine:    eng,
		store:     store,
		fetchSize: fetchSize,
		logger:    logger,
	}
}

// Search builds a query from the parameters and returns the requested page of
// matching courses with the total match count.
func (s *SearchService) Search(ctx context.Context, params domain.SearchParams) (*domain.SearchResult, error) {
	q, err := query.Build(params)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, opSearch, q)
}

// SuggestPrefix returns up to domain.MaxSuggestions distinct titles starting
// with text. Empty text yields an empty list without a lookup.
func (s *SearchService) SuggestPrefix(ctx context.Context, text string) ([]string, error) {
	if text == "" {
		return []string{}, nil
	}
	result, err := s.execute(ctx, opSuggestPrefix, query.TitlePrefix(text, s.fetchSize))
	if err != nil {
		return nil, err
	}
	return distinctTitles(result.Courses, domain.MaxSuggestions), nil
}

// SuggestFuzzy returns up to domain.MaxSuggestions distinct titles containing
// text anywhere. Matching is substring containment, not edit distance.
func (s *SearchService) SuggestFuzzy(ctx context.Context, text string) ([]string, error) {
	if text == "" {
		return []string{}, nil
	}
	result, err := s.execute(ctx, opSuggestFuzzy, query.TitleContains(text, s.fetchSize))
	if err != nil {
		return nil, err
	}
	return distinctTitles(result.Courses, domain.MaxSuggestions), nil
}

// execute runs one query against the engine, recording a span and metrics.
// Errors are returned unchanged.
func (s *SearchService) execute(ctx context.Context, operation string, q *query.Query) (*domain.SearchResult, error) {
	ctx, span := tracing.Tracer("coursesearch/service").Start(ctx, "engine."+operation)
	defer span.End()
	span.SetAttributes(
		attribute.Int("query.clauses", len(q.Clauses())),
		attribute.Int("query.page", q.Page()),
		attribute.Int("query.size", q.Size()),
	)

	start := time.Now()
	result, err := s.engine.Search(ctx, q)
	observeEngineRequest(operation, start, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if result.Courses == nil {
		result.Courses = []domain.Course{}
	}
	span.SetAttributes(attribute.Int64("result.total", result.Total))
	return result, nil
}

// IndexCourse adds or replaces a single course in the index.
func (s *SearchService) IndexCourse(ctx context.Context, course *domain.Course) error {
	if err := validator.Validate(course); err != nil {
		return fmt.Errorf("index course: %w: %w", apperrors.ErrInvalidInput, err)
	}

	if err := s.engine.Index(ctx, course); err != nil {
		return fmt.Errorf("index course: %w", err)
	}

	s.logger.InfoContext(ctx, "course indexed",
		slog.String("course_id", course.ID),
		slog.String("title", course.Title),
	)
	return nil
}

// DeleteCourse removes a course from the index. Deleting an unknown id is not
// an error.
func (s *SearchService) DeleteCourse(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete course: %w: id is required", apperrors.ErrInvalidInput)
	}

	if err := s.engine.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}

	s.logger.InfoContext(ctx, "course deleted from index",
		slog.String("course_id", id),
	)
	return nil
}

// ReplaceAll empties the index and loads courses into it. Every course is
// validated before the index is touched.
func (s *SearchService) ReplaceAll(ctx context.Context, courses []domain.Course) error {
	for i := range courses {
		if err := validator.Validate(&courses[i]); err != nil {
			return fmt.Errorf("replace all: course %d: %w: %w", i, apperrors.ErrInvalidInput, err)
		}
	}

	if err := s.engine.DeleteAll(ctx); err != nil {
		return fmt.Errorf("replace all: %w", err)
	}
	if err := s.engine.BulkIndex(ctx, courses); err != nil {
		return fmt.Errorf("replace all: %w", err)
	}

	s.logger.InfoContext(ctx, "index replaced",
		slog.Int("count", len(courses)),
	)
	return nil
}

// Reindex reloads the index from the course store and returns the number of
// courses indexed.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("reindex: %w", ErrNoCourseStore)
	}

	courses, err := s.store.ListCourses(ctx)
	if err != nil {
		return 0, fmt.Errorf("reindex: list courses: %w", err)
	}

	if err := s.ReplaceAll(ctx, courses); err != nil {
		return 0, fmt.Errorf("reindex: %w", err)
	}

	s.logger.InfoContext(ctx, "reindex completed",
		slog.Int("count", len(courses)),
	)
	return len(courses), nil
}
