package analysis

import "github.com/prometheus/client_golang/prometheus"

var (
	episodesDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glyscope_episodes_detected_total",
			Help: "Episodes detected, by excursion type and severity band.",
		}, []string{"type", "severity"})
	subjectsAnalyzed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "glyscope_subjects_analyzed_total",
			Help: "Subject series analyzed across all runs.",
		})
	analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "glyscope_analysis_duration_seconds",
			Help:    "Wall time of full analysis runs.",
			Buckets: prometheus.DefBuckets,
		})
)

func init() {
	prometheus.MustRegister(episodesDetected)
	prometheus.MustRegister(subjectsAnalyzed)
	prometheus.MustRegister(analysisDuration)
}
