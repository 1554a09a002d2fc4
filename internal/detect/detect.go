package detect

import "github.com/glyscope/glyscope/pkg/models"

// Detect runs all configured bands over one subject's series and
// returns the per-band episode lists. The six direct bands are scanned;
// the two exclusive bands are derived from level 1 and level 2, as
// episode rows under the overlap mode only.
func Detect(s *models.Series, opts Options) (map[models.Band][]models.Episode, error) {
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}
	byBand := make(map[models.Band][]models.Episode, len(models.Bands))
	for _, cfg := range directPresets(opts) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		cores := cfg.scanCores(s)
		byBand[models.Band{Type: cfg.Type, Severity: cfg.Severity}] = cfg.resolve(s, cores)
	}
	if opts.Exclusive == ExclusiveOverlap {
		for _, typ := range []models.EventType{models.TypeHypo, models.TypeHyper} {
			broad := byBand[models.Band{Type: typ, Severity: models.SeverityLevel1}]
			narrow := byBand[models.Band{Type: typ, Severity: models.SeverityLevel2}]
			byBand[models.Band{Type: typ, Severity: models.SeverityLevel1Excl}] = exclusiveEpisodes(broad, narrow)
		}
	}
	return byBand, nil
}
