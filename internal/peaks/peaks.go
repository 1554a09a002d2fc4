// Package peaks implements rate-of-change excursion onset detection
// (GRID) and post-onset peak resolution for glucose series. An onset
// fires when consecutive rise rates exceed the mg/dL-per-hour cutoffs
// while glucose is already above a floor value; each onset is then
// paired with the best local maximum that follows it.
package peaks

import "github.com/glyscope/glyscope/pkg/models"

// Rate cutoffs in mg/dL per hour. The two-delta test uses the steeper
// cutoff, the three-delta tests the gentler one.
const (
	ratePrimary   = 95
	rateSecondary = 90
)

// Options tunes the onset and peak search windows.
type Options struct {
	// Threshold is the glucose floor an excursion must start from.
	Threshold float64
	// GapMinutes is the window marked as in-excursion after a trigger.
	GapMinutes float64
	// BacktrackHours is how far behind a trigger the true onset
	// minimum is searched, and the forward peak-search horizon.
	BacktrackHours float64
}

// DefaultOptions returns the conventional tuning for 5-minute data.
func DefaultOptions() Options {
	return Options{Threshold: 130, GapMinutes: 60, BacktrackHours: 2}
}

// Onset is a detected excursion start.
type Onset struct {
	SubjectID string
	Time      float64
	Value     float64
	Row       int // 1-based original table row
}

// Peak pairs an onset with its resolved glucose peak. HasPeak is false
// when no peak could be resolved for the onset.
type Peak struct {
	SubjectID         string
	OnsetTime         float64
	OnsetValue        float64
	OnsetRow          int // 1-based
	PeakTime          float64
	PeakValue         float64
	PeakRow           int // 1-based
	TimeToPeakSeconds float64
	HasPeak           bool
}

// Mask computes the per-reading excursion flags for one series. A
// trigger at reading j marks the gap window starting two readings
// back (steep two-delta trigger) or three back (three-delta trigger).
func Mask(s *models.Series, opts Options) []bool {
	n := s.Len()
	mask := make([]bool, n)
	for j := 3; j < n; j++ {
		if !validRun(s, j-3, j) {
			continue
		}
		dt1 := s.At(j).Time - s.At(j-1).Time
		dt2 := s.At(j-1).Time - s.At(j-2).Time
		dt3 := s.At(j-2).Time - s.At(j-3).Time
		if dt1 <= 0 || dt2 <= 0 || dt3 <= 0 {
			continue
		}
		rate1 := (s.At(j).Value - s.At(j-1).Value) / (dt1 / 3600)
		rate2 := (s.At(j-1).Value - s.At(j-2).Value) / (dt2 / 3600)
		rate3 := (s.At(j-2).Value - s.At(j-3).Value) / (dt3 / 3600)

		var back int
		switch {
		case rate1 >= ratePrimary && rate2 >= ratePrimary && opts.Threshold <= s.At(j-2).Value:
			back = 2
		case (rate2 >= rateSecondary && rate3 >= rateSecondary && opts.Threshold <= s.At(j-3).Value) ||
			(rate3 >= rateSecondary && rate1 >= rateSecondary && opts.Threshold <= s.At(j-3).Value):
			back = 3
		default:
			continue
		}
		gapSec := opts.GapMinutes * 60
		for k := j; k < n && s.At(k).Time-s.At(j).Time <= gapSec; k++ {
			if k >= back {
				mask[k-back] = true
			}
		}
	}
	return mask
}

// Onsets returns the excursion starts of one series: the leading
// reading of each contiguous masked stretch.
func Onsets(s *models.Series, opts Options) []Onset {
	var onsets []Onset
	for _, i := range starts(Mask(s, opts)) {
		p := s.At(i)
		onsets = append(onsets, Onset{
			SubjectID: s.SubjectID,
			Time:      p.Time,
			Value:     p.Value,
			Row:       p.Row + 1,
		})
	}
	return onsets
}

// BestPeaks runs the full onset-to-peak pipeline for one series.
func BestPeaks(s *models.Series, opts Options) []Peak {
	n := s.Len()
	if n < 4 {
		return nil
	}
	gridStarts := starts(Mask(s, opts))
	if len(gridStarts) == 0 {
		return nil
	}

	modStarts := starts(refineToMinima(s, gridStarts, opts))
	if len(modStarts) == 0 {
		return nil
	}
	windowMaxima := maximaAfterWindows(s, modStarts, opts)
	local := localMaxima(s)
	final := promoteToLocalMaxima(s, windowMaxima, local)

	pairs := pairOnsets(s, gridStarts, final)
	return resolveBetween(s, pairs)
}

// refineToMinima backtracks from each trigger to the lowest reading
// within the backtrack window and re-marks the gap window from there,
// locating the excursion's true start.
func refineToMinima(s *models.Series, gridStarts []int, opts Options) []bool {
	mask := make([]bool, s.Len())
	backSec := opts.BacktrackHours * 3600
	gapSec := opts.GapMinutes * 60
	for _, g := range gridStarts {
		windowStart := s.At(g).Time - backSec
		start := g
		for start > 0 && s.At(start-1).Time >= windowStart {
			start--
		}
		minIdx := start
		minVal := 0.0
		seen := false
		for j := start; j <= g; j++ {
			if p := s.At(j); p.Valid && (!seen || p.Value < minVal) {
				minVal, minIdx, seen = p.Value, j, true
			}
		}
		gapEnd := s.At(minIdx).Time + gapSec
		for k := minIdx; k < s.Len() && s.At(k).Time <= gapEnd; k++ {
			mask[k] = true
		}
	}
	return mask
}

// maximaAfterWindows finds, for each refined start, the highest reading
// in the forward window, cut short when the next start arrives sooner.
func maximaAfterWindows(s *models.Series, modStarts []int, opts Options) []int {
	windowSec := opts.BacktrackHours * 3600
	out := make([]int, 0, len(modStarts))
	for i, start := range modStarts {
		windowEnd := s.At(start).Time + windowSec
		end := 0
		if i+1 < len(modStarts) && s.At(modStarts[i+1]).Time-s.At(start).Time < windowSec {
			end = modStarts[i+1]
		} else {
			j := start
			for j < s.Len() && s.At(j).Time <= windowEnd {
				j++
			}
			end = j - 1
		}
		maxIdx := start
		maxVal := 0.0
		seen := false
		for j := start; j <= end && j < s.Len(); j++ {
			if p := s.At(j); p.Valid && (!seen || p.Value > maxVal) {
				maxVal, maxIdx, seen = p.Value, j, true
			}
		}
		out = append(out, maxIdx)
	}
	return out
}

// localMaxima finds readings with two non-negative deltas before and
// two non-positive deltas after.
func localMaxima(s *models.Series) []int {
	n := s.Len()
	if n < 5 {
		return nil
	}
	var out []int
	for i := 3; i < n-2; i++ {
		if !validRun(s, i-2, i+2) {
			continue
		}
		d1 := s.At(i-1).Value - s.At(i-2).Value
		d2 := s.At(i).Value - s.At(i-1).Value
		d3 := s.At(i+1).Value - s.At(i).Value
		d4 := s.At(i+2).Value - s.At(i+1).Value
		if d1 >= 0 && d2 >= 0 && d3 <= 0 && d4 <= 0 {
			out = append(out, i)
		}
	}
	return out
}

// promoteToLocalMaxima replaces each window maximum with the highest
// local maximum inside the two hours that follow it, when one beats it.
func promoteToLocalMaxima(s *models.Series, windowMaxima, local []int) []int {
	out := make([]int, 0, len(windowMaxima))
	for _, m := range windowMaxima {
		from, to := s.At(m).Time, s.At(m).Time+2*3600
		best := m
		bestVal := s.At(m).Value
		for _, l := range local {
			if t := s.At(l).Time; t >= from && t <= to && s.At(l).Value > bestVal {
				best, bestVal = l, s.At(l).Value
			}
		}
		out = append(out, best)
	}
	return out
}

// onsetPair joins an excursion onset with its candidate peak index.
type onsetPair struct {
	onset int
	peak  int
}

// pairOnsets assigns each onset the highest final maximum within four
// hours after it; onsets with no reachable maximum are dropped.
func pairOnsets(s *models.Series, gridStarts, final []int) []onsetPair {
	var pairs []onsetPair
	for _, g := range gridStarts {
		best := -1
		bestVal := -1.0
		for _, m := range final {
			delta := s.At(m).Time - s.At(g).Time
			if delta >= 0 && delta <= 4*3600 && s.At(m).Value > bestVal {
				best, bestVal = m, s.At(m).Value
			}
		}
		if best >= 0 {
			pairs = append(pairs, onsetPair{onset: g, peak: best})
		}
	}
	return pairs
}

// resolveBetween emits one Peak per onset pair. When two consecutive
// onsets resolved to the same peak, the earlier onset's peak is
// re-searched strictly between the two onset times so each excursion
// keeps its own maximum.
func resolveBetween(s *models.Series, pairs []onsetPair) []Peak {
	var out []Peak
	for i, pr := range pairs {
		onset := s.At(pr.onset)
		peakIdx := pr.peak
		if i+1 < len(pairs) && s.At(pairs[i+1].peak).Time == s.At(peakIdx).Time {
			if between := maxBetween(s, onset.Time, s.At(pairs[i+1].onset).Time); between >= 0 {
				peakIdx = between
			}
		}
		peak := s.At(peakIdx)
		out = append(out, Peak{
			SubjectID:         s.SubjectID,
			OnsetTime:         onset.Time,
			OnsetValue:        onset.Value,
			OnsetRow:          onset.Row + 1,
			PeakTime:          peak.Time,
			PeakValue:         peak.Value,
			PeakRow:           peak.Row + 1,
			TimeToPeakSeconds: peak.Time - onset.Time,
			HasPeak:           true,
		})
	}
	return out
}

// maxBetween returns the index of the highest valid reading strictly
// between two instants, or -1 when the open interval holds none.
func maxBetween(s *models.Series, from, to float64) int {
	best := -1
	bestVal := 0.0
	for j := 0; j < s.Len(); j++ {
		p := s.At(j)
		if !p.Valid || p.Time <= from || p.Time >= to {
			continue
		}
		if best < 0 || p.Value > bestVal {
			best, bestVal = j, p.Value
		}
	}
	return best
}

// starts returns the indices opening each contiguous true stretch.
func starts(mask []bool) []int {
	var out []int
	for i, m := range mask {
		if m && (i == 0 || !mask[i-1]) {
			out = append(out, i)
		}
	}
	return out
}

// validRun reports whether every reading in [from, to] is non-missing.
func validRun(s *models.Series, from, to int) bool {
	for i := from; i <= to; i++ {
		if !s.At(i).Valid {
			return false
		}
	}
	return true
}
