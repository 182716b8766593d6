package engine

import (
	"context"

	"github.com/utafrali/coursesearch/internal/domain"
	"github.com/utafrali/coursesearch/internal/query"
)

// SearchEngine defines the interface for indexing and searching courses.
// Implementations may use Elasticsearch, in-memory storage, or other backends.
type SearchEngine interface {
	// Search executes a query descriptor and returns the requested page of
	// matching courses along with the total match count. Failures to reach
	// the index, or queries it rejects, wrap domain.ErrIndexUnavailable.
	Search(ctx context.Context, q *query.Query) (*domain.SearchResult, error)

	// Index adds or updates a single course in the search index.
	Index(ctx context.Context, course *domain.Course) error

	// Delete removes a course from the search index by its ID.
	Delete(ctx context.Context, id string) error

	// BulkIndex adds or updates multiple courses in the search index.
	BulkIndex(ctx context.Context, courses []domain.Course) error

	// DeleteAll removes every course from the search index.
	DeleteAll(ctx context.Context) error
}
