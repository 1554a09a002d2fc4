package detect

import "github.com/glyscope/glyscope/pkg/models"

// largeGap reports whether the elapsed time between two consecutive
// readings exceeds the sampling-gap cutoff. Missing-value readings
// still carry timestamps, so dropouts and true gaps are distinguished:
// a dropout keeps its cadence, a pulled sensor does not.
func (c Config) largeGap(s *models.Series, prev, cur int) bool {
	return s.MinutesBetween(prev, cur) > c.maxGap()+c.jitter()
}
