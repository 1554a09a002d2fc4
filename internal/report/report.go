// Package report renders analysis results as the detailed episode
// table and the per-subject summary table, in CSV form.
package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/glyscope/glyscope/pkg/models"
)

var episodeHeader = []string{
	"id", "type", "level", "start_time", "end_time",
	"start_gl", "end_gl", "start_index", "end_index",
	"duration_minutes", "avg_gl", "secondary_dwell_minutes",
}

var summaryHeader = []string{
	"id", "type", "level", "total_episodes",
	"avg_ep_per_day", "avg_ep_duration", "avg_ep_gl",
}

// WriteEpisodesCSV writes the detailed episode table. Timestamps are
// rendered as wall-clock times in each episode's own timezone label
// when it resolves, UTC otherwise.
func WriteEpisodesCSV(w io.Writer, episodes []models.Episode) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(episodeHeader); err != nil {
		return err
	}
	for _, e := range episodes {
		rec := []string{
			e.SubjectID,
			string(e.Type),
			string(e.Severity),
			formatTime(e.StartTime, e.Timezone),
			formatTime(e.EndTime, e.Timezone),
			formatFloat(e.StartValue),
			formatFloat(e.EndValue),
			strconv.Itoa(e.StartRow),
			strconv.Itoa(e.EndRow),
			formatFloat(e.DurationMinutes),
			formatFloat(e.AverageValue),
			formatFloat(e.SecondaryDwellMinutes),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes the per-subject summary table, one row per
// subject and band, already in canonical order.
func WriteSummaryCSV(w io.Writer, rows []models.SummaryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.SubjectID,
			string(r.Type),
			string(r.Severity),
			strconv.Itoa(r.TotalEpisodes),
			formatFloat(r.EpisodesPerDay),
			formatFloat(r.AvgDurationMinutes),
			formatFloat(r.AvgValue),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatTime renders epoch seconds as a wall-clock timestamp in the
// given IANA timezone, falling back to UTC when the label is empty or
// unknown.
func formatTime(epoch float64, tz string) string {
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	sec := int64(epoch)
	return time.Unix(sec, 0).In(loc).Format("2006-01-02 15:04:05")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
