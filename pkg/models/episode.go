package models

// EventType is the direction of a glucose excursion.
type EventType string

const (
	TypeHypo  EventType = "hypo"
	TypeHyper EventType = "hyper"
)

// Severity identifies the clinical severity band of an excursion.
type Severity string

const (
	SeverityLevel1     Severity = "lv1"
	SeverityLevel2     Severity = "lv2"
	SeverityExtended   Severity = "extended"
	SeverityLevel1Excl Severity = "lv1_excl"
)

// Band is a (type, severity) pair, the key under which episodes and
// statistics are accumulated.
type Band struct {
	Type     EventType `json:"type"`
	Severity Severity  `json:"level"`
}

// Bands lists all reported type/severity combinations in canonical
// output order.
var Bands = []Band{
	{TypeHypo, SeverityLevel1},
	{TypeHypo, SeverityLevel2},
	{TypeHypo, SeverityExtended},
	{TypeHypo, SeverityLevel1Excl},
	{TypeHyper, SeverityLevel1},
	{TypeHyper, SeverityLevel2},
	{TypeHyper, SeverityExtended},
	{TypeHyper, SeverityLevel1Excl},
}

// Episode is one detected excursion for a subject under a particular
// band. Positions index the subject's Series; StartRow/EndRow are
// 1-based rows of the original input table. Immutable once emitted.
type Episode struct {
	SubjectID  string    `json:"id"`
	Type       EventType `json:"type"`
	Severity   Severity  `json:"level"`
	Start      Pos       `json:"-"`
	End        Pos       `json:"-"`
	StartTime  float64   `json:"start_time"`
	EndTime    float64   `json:"end_time"`
	StartValue float64   `json:"start_glucose"`
	EndValue   float64   `json:"end_glucose"`
	StartRow   int       `json:"start_index"`
	EndRow     int       `json:"end_index"`

	DurationMinutes float64 `json:"duration_minutes"`
	AverageValue    float64 `json:"average_glucose"`

	// SecondaryDwellMinutes is the time spent beyond a stricter secondary
	// cutoff within the episode (e.g. minutes below 54 mg/dL inside a
	// hypoglycemic episode). Zero when no secondary cutoff is configured.
	SecondaryDwellMinutes float64 `json:"secondary_dwell_minutes,omitempty"`

	Timezone string `json:"tz,omitempty"`
}

// Overlaps reports whether two episodes' time intervals intersect.
func (e Episode) Overlaps(other Episode) bool {
	return e.StartTime <= other.EndTime && other.StartTime <= e.EndTime
}

// SummaryRow is one row of the per-subject summary table.
type SummaryRow struct {
	SubjectID          string    `json:"id"`
	Type               EventType `json:"type"`
	Severity           Severity  `json:"level"`
	TotalEpisodes      int       `json:"total_episodes"`
	EpisodesPerDay     float64   `json:"avg_ep_per_day"`
	AvgDurationMinutes float64   `json:"avg_ep_duration"`
	AvgValue           float64   `json:"avg_ep_gl"`
}

// Result is the outcome of one analysis run: the detailed episode table
// and the summary table, both in deterministic first-seen subject order.
type Result struct {
	RunID    string       `json:"run_id"`
	Episodes []Episode    `json:"episodes"`
	Summary  []SummaryRow `json:"summary"`
}
