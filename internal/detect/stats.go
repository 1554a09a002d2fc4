package detect

import (
	"math"

	"github.com/glyscope/glyscope/pkg/models"
)

// round1 and round2 round half away from zero to one and two decimals.
// Both normalize -0.0 to 0.0 so empty bands always print "0".
func round1(v float64) float64 { return roundTo(v, 10) }
func round2(v float64) float64 { return roundTo(v, 100) }

func roundTo(v, scale float64) float64 {
	r := math.Round(v*scale) / scale
	if r == 0 {
		return 0
	}
	return r
}

// bandStats are the raw (unrounded) per-band aggregates.
type bandStats struct {
	count  int
	avgDur float64
	avgVal float64
}

func aggregate(eps []models.Episode) bandStats {
	st := bandStats{count: len(eps)}
	if st.count == 0 {
		return st
	}
	var dur, val float64
	for _, e := range eps {
		dur += e.DurationMinutes
		val += e.AverageValue
	}
	st.avgDur = dur / float64(st.count)
	st.avgVal = val / float64(st.count)
	return st
}

// Summarize builds one summary row per band, in canonical band order,
// for a single subject. Observation days come from the subject's full
// timestamp span, computed once and shared by every band. All rates
// and averages resolve to exact 0.0 when a band is empty or the span
// is zero.
func Summarize(s *models.Series, byBand map[models.Band][]models.Episode, mode ExclusiveMode) []models.SummaryRow {
	days := s.ObservationDays()
	stats := make(map[models.Band]bandStats, len(models.Bands))
	for _, band := range models.Bands {
		if band.Severity == models.SeverityLevel1Excl && mode == ExclusiveSubtract {
			broad := stats[models.Band{Type: band.Type, Severity: models.SeverityLevel1}]
			narrow := stats[models.Band{Type: band.Type, Severity: models.SeverityLevel2}]
			var st bandStats
			st.count, st.avgDur, st.avgVal = subtractStats(
				broad.count, narrow.count, broad.avgDur, narrow.avgDur, broad.avgVal, narrow.avgVal)
			stats[band] = st
			continue
		}
		stats[band] = aggregate(byBand[band])
	}

	rows := make([]models.SummaryRow, 0, len(models.Bands))
	for _, band := range models.Bands {
		st := stats[band]
		perDay := 0.0
		if days > 0 {
			perDay = float64(st.count) / days
		}
		rows = append(rows, models.SummaryRow{
			SubjectID:          s.SubjectID,
			Type:               band.Type,
			Severity:           band.Severity,
			TotalEpisodes:      st.count,
			EpisodesPerDay:     round2(perDay),
			AvgDurationMinutes: round1(st.avgDur),
			AvgValue:           round1(st.avgVal),
		})
	}
	return rows
}
