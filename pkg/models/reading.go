// Package models contains the data structures shared across Glyscope:
// glucose readings, per-subject series, detected episodes, and the
// summary statistics rows assembled into the output tables.
package models

import "time"

// Reading is a single sensor glucose reading from the flat input table.
// A nil Glucose encodes a sensor dropout: the value is skipped by
// threshold tests but the timestamp still participates in gap detection.
type Reading struct {
	SubjectID string   `json:"id"`
	Time      float64  `json:"time"` // seconds since epoch
	Glucose   *float64 `json:"gl"`   // mg/dL, nil when missing
	Timezone  string   `json:"tz,omitempty"`
}

// Pos is an opaque, series-scoped position handle. Positions from one
// subject's series are never meaningful in another's.
type Pos int

// Point is one entry of a subject series: the reading's instant, its
// value when Valid, and the 0-based row of the original input table it
// came from.
type Point struct {
	Time  float64
	Value float64
	Valid bool
	Row   int
}

// Series is an immutable, subject-scoped, time-ordered sequence of
// readings produced by the grouper.
type Series struct {
	SubjectID string
	Points    []Point
	Timezone  string // display label only; computation is timezone-agnostic
}

// Len returns the number of points in the series.
func (s *Series) Len() int { return len(s.Points) }

// At returns the point at the given index.
func (s *Series) At(i int) Point { return s.Points[i] }

// MinutesBetween returns the elapsed minutes between two positions.
func (s *Series) MinutesBetween(from, to int) float64 {
	return (s.Points[to].Time - s.Points[from].Time) / 60.0
}

// ObservationDays is the subject's full observation span in days,
// computed from the first and last timestamps regardless of validity.
func (s *Series) ObservationDays() float64 {
	if len(s.Points) < 2 {
		return 0
	}
	return (s.Points[len(s.Points)-1].Time - s.Points[0].Time) / 86400.0
}

// TimeAt returns the point's instant as a time.Time in UTC.
func (s *Series) TimeAt(i int) time.Time {
	sec := int64(s.Points[i].Time)
	nsec := int64((s.Points[i].Time - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
