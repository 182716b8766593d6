package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	doc := `[
		{
			"id": "c1",
			"title": "Math Basics",
			"description": "Numbers and shapes",
			"category": "Math",
			"type": "COURSE",
			"gradeRange": "3rd-5th",
			"minAge": 8,
			"maxAge": 12.9,
			"price": 100.5,
			"nextSessionDate": "2025-06-10T15:00:00+02:00"
		},
		{
			"id": "c2",
			"title": "Open Studio",
			"minAge": "eight",
			"nextSessionDate": "2025-06-11"
		},
		{
			"id": "c3",
			"title": "Night Owls",
			"nextSessionDate": "2025-06-11T23:30:00-05:00"
		}
	]`

	courses, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, courses, 3)

	math := courses[0]
	assert.Equal(t, "Math Basics", math.Title)
	assert.Equal(t, "3rd-5th", math.GradeRange)
	require.NotNil(t, math.MinAge)
	assert.Equal(t, 8, *math.MinAge)
	require.NotNil(t, math.MaxAge)
	assert.Equal(t, 12, *math.MaxAge)
	assert.Equal(t, 100.5, math.Price)
	require.NotNil(t, math.NextSessionDate)
	assert.Equal(t, "2025-06-10", math.NextSessionDate.String())

	studio := courses[1]
	assert.Nil(t, studio.MinAge)
	assert.Nil(t, studio.MaxAge)
	assert.Equal(t, 0.0, studio.Price)
	assert.Equal(t, "2025-06-11", studio.NextSessionDate.String())

	// The date is taken in the value's own offset.
	assert.Equal(t, "2025-06-11", courses[2].NextSessionDate.String())
}

func TestLoad_MissingDate(t *testing.T) {
	courses, err := Load(strings.NewReader(`[{"id":"c1","title":"Undated"}]`))
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Nil(t, courses[0].NextSessionDate)
}

func TestLoad_BadDate(t *testing.T) {
	_, err := Load(strings.NewReader(`[{"id":"c9","title":"x","nextSessionDate":"next tuesday"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed entry 0 (c9)")
}

func TestLoad_NotAnArray(t *testing.T) {
	_, err := Load(strings.NewReader(`{"id":"c1"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode seed")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courses.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"c1","title":"Chess Club","price":20}]`), 0o600))

	courses, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Chess Club", courses[0].Title)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadFile_SampleData(t *testing.T) {
	courses, err := LoadFile(filepath.Join("..", "..", "data", "sample-courses.json"))
	require.NoError(t, err)
	assert.NotEmpty(t, courses)
	for _, c := range courses {
		assert.NotEmpty(t, c.ID)
		assert.NotEmpty(t, c.Title)
	}
}
