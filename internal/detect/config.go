// Package detect implements the threshold-crossing episode engine: a
// two-phase state machine that finds sustained glucose excursions
// (core intervals) and resolves each one to a confirmed episode by
// scanning forward for a sustained recovery.
package detect

import (
	"fmt"
	"math"

	"github.com/glyscope/glyscope/pkg/models"
)

// Direction states which side of the entry threshold qualifies.
type Direction int

const (
	// Below qualifies readings strictly under the entry threshold (hypo).
	Below Direction = iota
	// Above qualifies readings strictly over the entry threshold (hyper).
	Above
)

// EndOfDataPolicy controls what happens to an episode whose recovery is
// never confirmed because the series ends, or a large sampling gap
// occurs, first.
type EndOfDataPolicy int

const (
	// EndOfDataDiscard drops the unconfirmed episode entirely. This
	// under-reports rather than fabricating an unconfirmed recovery.
	EndOfDataDiscard EndOfDataPolicy = iota
	// EndOfDataFinalize closes the episode at the core interval's own
	// end instead of discarding it (legacy behavior).
	EndOfDataFinalize
)

// DefaultJitterToleranceMinutes compensates for timestamp jitter around
// the nominal sampling cadence when checking duration thresholds.
const DefaultJitterToleranceMinutes = 0.1

// Config parameterizes one detection pass. The eight type/severity
// presets are all instances of this one structure; the engine itself
// has no per-severity code paths.
type Config struct {
	Type     models.EventType
	Severity models.Severity

	Direction         Direction
	EntryThreshold    float64 // mg/dL, strict crossing per Direction
	RecoveryThreshold float64 // mg/dL, inclusive crossing opposite Direction

	MinCoreMinutes     float64
	MinRecoveryMinutes float64

	NominalSamplingMinutes float64
	JitterToleranceMinutes float64
	MaxGapMinutes          float64 // 0 means MinRecoveryMinutes

	// SecondaryThreshold, when non-zero, accumulates the in-episode time
	// spent beyond this stricter cutoff (same direction as entry).
	SecondaryThreshold float64

	EndOfData EndOfDataPolicy
}

// Validate checks the config for values the engine cannot run with.
func (c Config) Validate() error {
	if c.NominalSamplingMinutes <= 0 {
		return fmt.Errorf("detection config %s/%s: nominal sampling interval must be positive, got %v",
			c.Type, c.Severity, c.NominalSamplingMinutes)
	}
	if c.MinCoreMinutes <= 0 || c.MinRecoveryMinutes <= 0 {
		return fmt.Errorf("detection config %s/%s: duration thresholds must be positive", c.Type, c.Severity)
	}
	return nil
}

// jitter returns the configured jitter tolerance, defaulted.
func (c Config) jitter() float64 {
	if c.JitterToleranceMinutes > 0 {
		return c.JitterToleranceMinutes
	}
	return DefaultJitterToleranceMinutes
}

// maxGap returns the large-gap cutoff in minutes, conventionally tied
// to the recovery duration when unset.
func (c Config) maxGap() float64 {
	if c.MaxGapMinutes > 0 {
		return c.MaxGapMinutes
	}
	return c.MinRecoveryMinutes
}

// qualifies reports whether a value is strictly past the entry
// threshold in the excursion direction.
func (c Config) qualifies(v float64) bool {
	if c.Direction == Below {
		return v < c.EntryThreshold
	}
	return v > c.EntryThreshold
}

// recovered reports whether a value is at or past the recovery
// threshold on the recovered side.
func (c Config) recovered(v float64) bool {
	if c.Direction == Below {
		return v >= c.RecoveryThreshold
	}
	return v <= c.RecoveryThreshold
}

// beyondSecondary reports whether a value is past the secondary cutoff.
func (c Config) beyondSecondary(v float64) bool {
	if c.SecondaryThreshold == 0 {
		return false
	}
	if c.Direction == Below {
		return v < c.SecondaryThreshold
	}
	return v > c.SecondaryThreshold
}

// minRequiredReadings is the qualifying-reading floor for a core
// interval: 75% of the expected sample count over the (tolerance-
// adjusted) minimum duration. This is a clinical convention, reproduced
// exactly.
func (c Config) minRequiredReadings() int {
	effective := math.Max(0, c.MinCoreMinutes-c.jitter())
	return int(math.Ceil(effective / c.NominalSamplingMinutes / 4 * 3))
}
