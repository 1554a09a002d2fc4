package detect

import "github.com/glyscope/glyscope/pkg/models"

// coreInterval is an accepted stretch of qualifying readings, not yet
// an episode: it still needs a confirmed recovery (or a finalize
// policy) to become one.
type coreInterval struct {
	start int // index of first qualifying reading
	end   int // index of last qualifying reading
	// terminal marks an interval cut off by a large gap under the
	// finalize policy: it closes at its own end without a recovery scan.
	terminal bool
}

// scanCores walks the series once and returns the accepted core
// intervals in time order. Missing values are skipped by the threshold
// test but their timestamps still count toward gap detection; a large
// gap resets any open interval without emitting it, except under the
// finalize policy where a passing interval is kept as terminal.
func (c Config) scanCores(s *models.Series) []coreInterval {
	var (
		cores       []coreInterval
		inCore      bool
		start       int
		lastQual    int
		accumulated float64 // minutes, span start..lastQual
		count       int
	)
	reset := func() {
		inCore = false
		accumulated = 0
		count = 0
	}
	finish := func(terminal bool) {
		if inCore && c.accept(accumulated, count) {
			cores = append(cores, coreInterval{start: start, end: lastQual, terminal: terminal})
		}
		reset()
	}

	for i := 0; i < s.Len(); i++ {
		if i > 0 && c.largeGap(s, i-1, i) {
			if c.EndOfData == EndOfDataFinalize {
				finish(true)
			} else {
				reset()
			}
		}
		p := s.At(i)
		if !p.Valid {
			continue
		}
		switch {
		case c.qualifies(p.Value):
			if !inCore {
				inCore = true
				start = i
			} else {
				accumulated += s.MinutesBetween(lastQual, i)
			}
			lastQual = i
			count++
		case inCore:
			finish(false)
		}
	}
	finish(false)
	return cores
}

// accept applies the duration and density gates to a closed interval.
// The extra nominal interval compensates for the half-open span: an
// interval of n readings covers n-1 deltas.
func (c Config) accept(accumulated float64, count int) bool {
	if accumulated+c.NominalSamplingMinutes < c.MinCoreMinutes-c.jitter() {
		return false
	}
	return count >= c.minRequiredReadings()
}
