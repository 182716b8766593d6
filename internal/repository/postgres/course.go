package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/coursesearch/internal/domain"
	"github.com/utafrali/coursesearch/pkg/database"
)

// CourseRepository reads and writes the courses table, the source of truth
// the search index is rebuilt from.
type CourseRepository struct {
	pool database.DBTX
}

// NewCourseRepository creates a new PostgreSQL-backed course repository.
func NewCourseRepository(pool database.DBTX) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// ListCourses returns every course ordered by id.
func (r *CourseRepository) ListCourses(ctx context.Context) (courses []domain.Course, err error) {
	query := `
		SELECT id, title, description, category, type, grade_range,
		       min_age, max_age, price, next_session_date
		FROM courses
		ORDER BY id`

	ctx, end := database.TraceQuery(ctx, "ListCourses", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	courses = []domain.Course{}
	for rows.Next() {
		var (
			c    domain.Course
			next *time.Time
		)
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Description, &c.Category, &c.Type, &c.GradeRange,
			&c.MinAge, &c.MaxAge, &c.Price, &next,
		); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		if next != nil {
			d := domain.DateOf(*next)
			c.NextSessionDate = &d
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}

	return courses, nil
}

// Upsert inserts a course or replaces the stored row with the same id.
func (r *CourseRepository) Upsert(ctx context.Context, c *domain.Course) (err error) {
	query := `
		INSERT INTO courses (id, title, description, category, type, grade_range,
		                     min_age, max_age, price, next_session_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			type = EXCLUDED.type,
			grade_range = EXCLUDED.grade_range,
			min_age = EXCLUDED.min_age,
			max_age = EXCLUDED.max_age,
			price = EXCLUDED.price,
			next_session_date = EXCLUDED.next_session_date,
			updated_at = NOW()`

	ctx, end := database.TraceQuery(ctx, "UpsertCourse", query)
	defer func() { end(err) }()

	var next *time.Time
	if c.NextSessionDate != nil {
		next = &c.NextSessionDate.Time
	}

	_, err = r.pool.Exec(ctx, query,
		c.ID,
		c.Title,
		c.Description,
		c.Category,
		c.Type,
		c.GradeRange,
		c.MinAge,
		c.MaxAge,
		c.Price,
		next,
	)
	if err != nil {
		return fmt.Errorf("upsert course %s: %w", c.ID, err)
	}

	return nil
}
