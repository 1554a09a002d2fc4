package detect

import (
	"fmt"

	"github.com/glyscope/glyscope/pkg/models"
)

// Options carries per-run overrides shared by every preset in a run.
type Options struct {
	NominalSamplingMinutes float64
	JitterToleranceMinutes float64
	EndOfData              EndOfDataPolicy
	Exclusive              ExclusiveMode
}

// DefaultOptions is the conventional run shape for 5-minute CGM data.
func DefaultOptions() Options {
	return Options{
		NominalSamplingMinutes: 5,
		JitterToleranceMinutes: DefaultJitterToleranceMinutes,
		EndOfData:              EndOfDataDiscard,
		Exclusive:              ExclusiveOverlap,
	}
}

// directPresets are the six bands detected by scanning the series. The
// two lv1_excl bands are derived from these, not scanned directly.
// Hypo level 2 recovers at 70, not 54: a level-2 excursion only ends
// once glucose returns to the normal range.
func directPresets(opts Options) []Config {
	base := func(typ models.EventType, sev models.Severity, dir Direction, entry, recovery, core, rec, secondary float64) Config {
		return Config{
			Type:                   typ,
			Severity:               sev,
			Direction:              dir,
			EntryThreshold:         entry,
			RecoveryThreshold:      recovery,
			MinCoreMinutes:         core,
			MinRecoveryMinutes:     rec,
			NominalSamplingMinutes: opts.NominalSamplingMinutes,
			JitterToleranceMinutes: opts.JitterToleranceMinutes,
			SecondaryThreshold:     secondary,
			EndOfData:              opts.EndOfData,
		}
	}
	return []Config{
		base(models.TypeHypo, models.SeverityLevel1, Below, 70, 70, 15, 15, 54),
		base(models.TypeHypo, models.SeverityLevel2, Below, 54, 70, 15, 15, 0),
		base(models.TypeHypo, models.SeverityExtended, Below, 70, 70, 120, 15, 54),
		base(models.TypeHyper, models.SeverityLevel1, Above, 180, 180, 15, 15, 0),
		base(models.TypeHyper, models.SeverityLevel2, Above, 250, 250, 15, 15, 0),
		base(models.TypeHyper, models.SeverityExtended, Above, 250, 180, 120, 15, 0),
	}
}

// Presets returns the directly scanned band configurations under opts,
// in canonical order. The derived lv1_excl bands are not included.
func Presets(opts Options) []Config {
	return directPresets(opts)
}

// ValidateOptions rejects option sets the engine refuses to default.
// The exclusive mode in particular has no safe implicit value: its two
// behaviors produce different numbers and the caller must pick one.
func ValidateOptions(opts Options) error {
	if opts.Exclusive != ExclusiveOverlap && opts.Exclusive != ExclusiveSubtract {
		return fmt.Errorf("exclusive mode must be set to %q or %q", ExclusiveOverlap, ExclusiveSubtract)
	}
	if opts.NominalSamplingMinutes <= 0 {
		return fmt.Errorf("nominal sampling interval must be positive, got %v", opts.NominalSamplingMinutes)
	}
	return nil
}
