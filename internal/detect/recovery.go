package detect

import "github.com/glyscope/glyscope/pkg/models"

// resolve turns accepted core intervals into episodes by scanning
// forward from each interval for a sustained recovery. A core interval
// whose start falls at or before the previous episode's end index is a
// continuation of that episode and is absorbed.
func (c Config) resolve(s *models.Series, cores []coreInterval) []models.Episode {
	var episodes []models.Episode
	prevEnd := -1
	for _, core := range cores {
		if prevEnd >= 0 && core.start <= prevEnd {
			continue
		}
		end, ok := c.resolveEnd(s, core)
		if !ok {
			continue
		}
		episodes = append(episodes, c.buildEpisode(s, core.start, end))
		prevEnd = end
	}
	return episodes
}

// resolveEnd finds the episode's closing index, or reports that the
// episode should not be emitted at all.
func (c Config) resolveEnd(s *models.Series, core coreInterval) (int, bool) {
	if core.terminal {
		return core.end, true
	}
	endOfData := func() (int, bool) {
		if c.EndOfData == EndOfDataFinalize {
			return core.end, true
		}
		return 0, false
	}

	candFirst := -1  // first reading of the open recovery candidate
	lastValid := core.end
	for i := core.end + 1; i < s.Len(); i++ {
		if c.largeGap(s, i-1, i) {
			return endOfData()
		}
		p := s.At(i)
		if !p.Valid {
			continue
		}
		if !c.recovered(p.Value) {
			// back on the excursion side: the candidate is dead, but
			// later candidates may still confirm
			candFirst = -1
			lastValid = i
			continue
		}
		if candFirst < 0 {
			candFirst = i
		}
		sustained := s.MinutesBetween(candFirst, i)
		if sustained+c.NominalSamplingMinutes >= c.MinRecoveryMinutes-c.jitter() {
			return lastValid, true
		}
	}
	return endOfData()
}

// buildEpisode computes the episode's metrics over [start, end].
func (c Config) buildEpisode(s *models.Series, start, end int) models.Episode {
	var (
		sum   float64
		n     int
		dwell float64
	)
	for i := start; i <= end; i++ {
		p := s.At(i)
		if !p.Valid {
			continue
		}
		sum += p.Value
		n++
		if c.beyondSecondary(p.Value) {
			if i+1 < s.Len() {
				dwell += s.MinutesBetween(i, i+1)
			} else {
				dwell += c.NominalSamplingMinutes
			}
		}
	}
	avg := 0.0
	if n > 0 {
		avg = sum / float64(n)
	}
	sp, ep := s.At(start), s.At(end)
	return models.Episode{
		SubjectID:             s.SubjectID,
		Type:                  c.Type,
		Severity:              c.Severity,
		Start:                 models.Pos(start),
		End:                   models.Pos(end),
		StartTime:             sp.Time,
		EndTime:               ep.Time,
		StartValue:            sp.Value,
		EndValue:              ep.Value,
		StartRow:              sp.Row + 1,
		EndRow:                ep.Row + 1,
		DurationMinutes:       s.MinutesBetween(start, end),
		AverageValue:          avg,
		SecondaryDwellMinutes: dwell,
		Timezone:              s.Timezone,
	}
}
