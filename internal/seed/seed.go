// Package seed reads course seed files: a JSON array of loosely typed course
// objects as exported by the course catalogue.
package seed

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/utafrali/coursesearch/internal/domain"
)

// rawCourse mirrors one seed entry. Numeric fields may hold any JSON number
// or be absent; nextSessionDate is an ISO-8601 date-time or a plain date.
type rawCourse struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	Type            string `json:"type"`
	GradeRange      string `json:"gradeRange"`
	MinAge          any    `json:"minAge"`
	MaxAge          any    `json:"maxAge"`
	Price           any    `json:"price"`
	NextSessionDate string `json:"nextSessionDate"`
}

// Load parses a seed document into courses, in file order.
func Load(r io.Reader) ([]domain.Course, error) {
	var raws []rawCourse
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	courses := make([]domain.Course, 0, len(raws))
	for i, raw := range raws {
		c, err := raw.toCourse()
		if err != nil {
			return nil, fmt.Errorf("seed entry %d (%s): %w", i, raw.ID, err)
		}
		courses = append(courses, c)
	}
	return courses, nil
}

// LoadFile opens path and parses it with Load.
func LoadFile(path string) ([]domain.Course, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Load(f)
}

func (raw rawCourse) toCourse() (domain.Course, error) {
	c := domain.Course{
		ID:          raw.ID,
		Title:       raw.Title,
		Description: raw.Description,
		Category:    raw.Category,
		Type:        raw.Type,
		GradeRange:  raw.GradeRange,
		MinAge:      intValue(raw.MinAge),
		MaxAge:      intValue(raw.MaxAge),
	}
	if price, ok := raw.Price.(float64); ok {
		c.Price = price
	}
	if raw.NextSessionDate != "" {
		d, err := domain.ParseDate(raw.NextSessionDate)
		if err != nil {
			return domain.Course{}, err
		}
		c.NextSessionDate = &d
	}
	return c, nil
}

// intValue truncates a JSON number to an int. Anything else is treated as
// absent.
func intValue(v any) *int {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}
