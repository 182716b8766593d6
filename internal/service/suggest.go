package service

import "github.com/utafrali/coursesearch/internal/domain"

// distinctTitles returns the titles of courses in order with repeats removed,
// stopping after limit entries.
func distinctTitles(courses []domain.Course, limit int) []string {
	titles := make([]string, 0, min(len(courses), limit))
	seen := make(map[string]struct{}, len(courses))
	for _, c := range courses {
		if len(titles) == limit {
			break
		}
		if _, ok := seen[c.Title]; ok {
			continue
		}
		seen[c.Title] = struct{}{}
		titles = append(titles, c.Title)
	}
	return titles
}
