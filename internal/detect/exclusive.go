package detect

import "github.com/glyscope/glyscope/pkg/models"

// ExclusiveMode selects how the lv1_excl bands are derived from the
// level-1 (broad) and level-2 (narrow) bands. The two strategies give
// different numbers when episodes overlap partially, so there is no
// implicit default: configs must choose one.
type ExclusiveMode string

const (
	// ExclusiveOverlap keeps each broad episode whose time interval does
	// not overlap any narrow episode. Produces real episode rows.
	ExclusiveOverlap ExclusiveMode = "overlap"
	// ExclusiveSubtract derives per-subject numbers arithmetically:
	// count = max(0, broad-narrow), averages as count-weighted
	// differences clamped at zero. Produces no episode rows.
	ExclusiveSubtract ExclusiveMode = "subtract"
)

// exclusiveEpisodes filters the broad band by overlap against the
// narrow band, relabeling survivors as the exclusive severity.
func exclusiveEpisodes(broad, narrow []models.Episode) []models.Episode {
	var out []models.Episode
	for _, b := range broad {
		overlapped := false
		for _, n := range narrow {
			if b.Overlaps(n) {
				overlapped = true
				break
			}
		}
		if overlapped {
			continue
		}
		b.Severity = models.SeverityLevel1Excl
		out = append(out, b)
	}
	return out
}

// subtractStats derives the exclusive band's per-subject summary from
// the broad and narrow bands' totals. With bc broad episodes averaging
// bAvg and nc narrow averaging nAvg, the surplus bc-nc episodes carry
// the count-weighted remainder, clamped at zero.
func subtractStats(bc, nc int, bDur, nDur, bAvg, nAvg float64) (count int, avgDur, avgVal float64) {
	count = bc - nc
	if count <= 0 {
		return 0, 0, 0
	}
	avgDur = (float64(bc)*bDur - float64(nc)*nDur) / float64(count)
	avgVal = (float64(bc)*bAvg - float64(nc)*nAvg) / float64(count)
	if avgDur < 0 {
		avgDur = 0
	}
	if avgVal < 0 {
		avgVal = 0
	}
	return count, avgDur, avgVal
}
