// Package series partitions the flat multi-subject reading table into
// one ordered series per subject.
package series

import (
	"sort"

	"github.com/glyscope/glyscope/pkg/models"
)

// Group builds one Series per subject from the flat reading table.
// Subjects appear in first-seen order, which fixes the ordering of all
// downstream output. Readings within a subject are stably sorted by
// timestamp; the input table's row positions are preserved on each
// point so episode rows can reference the original table. A subject
// with a single reading is valid and simply produces no episodes.
func Group(readings []models.Reading) []*models.Series {
	byID := make(map[string]*models.Series)
	var order []*models.Series

	for row, r := range readings {
		s, ok := byID[r.SubjectID]
		if !ok {
			s = &models.Series{SubjectID: r.SubjectID, Timezone: r.Timezone}
			byID[r.SubjectID] = s
			order = append(order, s)
		}
		if s.Timezone == "" && r.Timezone != "" {
			s.Timezone = r.Timezone
		}
		p := models.Point{Time: r.Time, Row: row}
		if r.Glucose != nil {
			p.Value = *r.Glucose
			p.Valid = true
		}
		s.Points = append(s.Points, p)
	}

	for _, s := range order {
		pts := s.Points
		if !sort.SliceIsSorted(pts, func(i, j int) bool { return pts[i].Time < pts[j].Time }) {
			sort.SliceStable(pts, func(i, j int) bool { return pts[i].Time < pts[j].Time })
		}
	}

	return order
}
