package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Indexed field names of a course document.
const (
	FieldID              = "id"
	FieldTitle           = "title"
	FieldDescription     = "description"
	FieldCategory        = "category"
	FieldType            = "type"
	FieldGradeRange      = "gradeRange"
	FieldMinAge          = "minAge"
	FieldMaxAge          = "maxAge"
	FieldPrice           = "price"
	FieldNextSessionDate = "nextSessionDate"
)

// Course represents a course document in the search index.
type Course struct {
	ID              string  `json:"id" validate:"required,max=128"`
	Title           string  `json:"title" validate:"required,max=256"`
	Description     string  `json:"description"`
	Category        string  `json:"category"`
	Type            string  `json:"type"`
	GradeRange      string  `json:"gradeRange"`
	MinAge          *int    `json:"minAge,omitempty" validate:"omitempty,gte=0"`
	MaxAge          *int    `json:"maxAge,omitempty" validate:"omitempty,gte=0"`
	Price           float64 `json:"price" validate:"gte=0"`
	NextSessionDate *Date   `json:"nextSessionDate,omitempty"`
}

// DateLayout is the wire and index format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time component. The zero Date is
// 0001-01-01.
type Date struct {
	time.Time
}

// NewDate returns the Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// Today returns the current UTC date.
func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate accepts either a plain date (2006-01-02) or an RFC 3339
// date-time, in which case the date in the value's own offset is kept.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	// Local date-time without offset, e.g. 2025-06-10T09:00:00.
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("parse date %q: expected YYYY-MM-DD or RFC 3339", s)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time.AddDate(0, 0, n))
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a date from any format accepted by ParseDate.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
