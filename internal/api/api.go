// Package api exposes the analysis operations over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/glyscope/glyscope/internal/analysis"
	"github.com/glyscope/glyscope/internal/detect"
	"github.com/glyscope/glyscope/internal/peaks"
	"github.com/glyscope/glyscope/internal/series"
	"github.com/glyscope/glyscope/internal/server"
	"github.com/glyscope/glyscope/pkg/models"
)

// Handler serves the analysis API.
type Handler struct {
	defaults detect.Options
	workers  int
	peakOpts peaks.Options
	events   analysis.Events
	logger   *zap.Logger
}

// New creates the API handler. defaults supplies the server-level
// detection options that requests may partially override; events may
// be nil to disable run streaming.
func New(defaults detect.Options, workers int, peakOpts peaks.Options, events analysis.Events, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		defaults: defaults,
		workers:  workers,
		peakOpts: peakOpts,
		events:   events,
		logger:   logger,
	}
}

// RegisterRoutes mounts the API endpoints.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/analyze", h.handleAnalyze)
	mux.HandleFunc("POST /api/v1/peaks", h.handlePeaks)
	mux.HandleFunc("GET /api/v1/presets", h.handlePresets)
}

// analyzeRequest is the analysis request body. Options left unset fall
// back to the server configuration.
type analyzeRequest struct {
	Readings []models.Reading `json:"readings"`
	Options  struct {
		SamplingMinutes float64              `json:"sampling_minutes,omitempty"`
		ExclusiveMode   detect.ExclusiveMode `json:"exclusive_mode,omitempty"`
		EndOfData       string               `json:"end_of_data,omitempty"`
		ReadingMinutes  []float64            `json:"reading_minutes,omitempty"`
	} `json:"options"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body: "+err.Error(), r.URL.Path)
		return
	}

	opts := h.defaults
	if req.Options.SamplingMinutes > 0 {
		opts.NominalSamplingMinutes = req.Options.SamplingMinutes
	}
	if req.Options.ExclusiveMode != "" {
		opts.Exclusive = req.Options.ExclusiveMode
	}
	switch req.Options.EndOfData {
	case "":
	case "discard":
		opts.EndOfData = detect.EndOfDataDiscard
	case "finalize":
		opts.EndOfData = detect.EndOfDataFinalize
	default:
		server.BadRequest(w, `end_of_data must be "discard" or "finalize"`, r.URL.Path)
		return
	}

	analyzer := analysis.New(analysis.Config{
		Workers:        h.workers,
		Detect:         opts,
		ReadingMinutes: req.Options.ReadingMinutes,
		Events:         h.events,
	}, h.logger)

	result, err := analyzer.Run(r.Context(), req.Readings)
	if err != nil {
		if errors.Is(err, analysis.ErrConfig) {
			server.BadRequest(w, err.Error(), r.URL.Path)
			return
		}
		h.logger.Error("analysis failed", zap.Error(err))
		server.InternalError(w, "analysis failed", r.URL.Path)
		return
	}

	writeJSON(w, result)
}

// peaksRequest is the peak detection request body.
type peaksRequest struct {
	Readings []models.Reading `json:"readings"`
	Options  struct {
		Threshold   float64 `json:"threshold,omitempty"`
		GapMinutes  float64 `json:"gap_minutes,omitempty"`
		WindowHours float64 `json:"window_hours,omitempty"`
	} `json:"options"`
}

// peaksResponse is the peak detection response body.
type peaksResponse struct {
	Onsets []onsetInfo `json:"onsets"`
	Peaks  []peakInfo  `json:"peaks"`
}

type onsetInfo struct {
	SubjectID string  `json:"id"`
	Time      float64 `json:"time"`
	Value     float64 `json:"gl"`
	Row       int     `json:"index"`
}

type peakInfo struct {
	SubjectID         string  `json:"id"`
	OnsetTime         float64 `json:"onset_time"`
	OnsetValue        float64 `json:"onset_gl"`
	OnsetRow          int     `json:"onset_index"`
	PeakTime          float64 `json:"peak_time,omitempty"`
	PeakValue         float64 `json:"peak_gl,omitempty"`
	PeakRow           int     `json:"peak_index,omitempty"`
	TimeToPeakSeconds float64 `json:"time_to_peak_seconds,omitempty"`
	HasPeak           bool    `json:"has_peak"`
}

func (h *Handler) handlePeaks(w http.ResponseWriter, r *http.Request) {
	var req peaksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body: "+err.Error(), r.URL.Path)
		return
	}

	opts := h.peakOpts
	if req.Options.Threshold > 0 {
		opts.Threshold = req.Options.Threshold
	}
	if req.Options.GapMinutes > 0 {
		opts.GapMinutes = req.Options.GapMinutes
	}
	if req.Options.WindowHours > 0 {
		opts.BacktrackHours = req.Options.WindowHours
	}

	resp := peaksResponse{Onsets: []onsetInfo{}, Peaks: []peakInfo{}}
	for _, s := range series.Group(req.Readings) {
		for _, o := range peaks.Onsets(s, opts) {
			resp.Onsets = append(resp.Onsets, onsetInfo{
				SubjectID: o.SubjectID,
				Time:      o.Time,
				Value:     o.Value,
				Row:       o.Row,
			})
		}
		for _, p := range peaks.BestPeaks(s, opts) {
			resp.Peaks = append(resp.Peaks, peakInfo{
				SubjectID:         p.SubjectID,
				OnsetTime:         p.OnsetTime,
				OnsetValue:        p.OnsetValue,
				OnsetRow:          p.OnsetRow,
				PeakTime:          p.PeakTime,
				PeakValue:         p.PeakValue,
				PeakRow:           p.PeakRow,
				TimeToPeakSeconds: p.TimeToPeakSeconds,
				HasPeak:           p.HasPeak,
			})
		}
	}

	writeJSON(w, resp)
}

// presetInfo describes one detection band in API responses. Derived
// bands carry no thresholds of their own.
type presetInfo struct {
	Type               models.EventType `json:"type"`
	Severity           models.Severity  `json:"level"`
	EntryThreshold     float64          `json:"entry_threshold,omitempty"`
	RecoveryThreshold  float64          `json:"recovery_threshold,omitempty"`
	MinCoreMinutes     float64          `json:"min_core_minutes,omitempty"`
	MinRecoveryMinutes float64          `json:"min_recovery_minutes,omitempty"`
	Derived            bool             `json:"derived,omitempty"`
}

func (h *Handler) handlePresets(w http.ResponseWriter, _ *http.Request) {
	direct := make(map[models.Band]detect.Config)
	for _, cfg := range detect.Presets(h.defaults) {
		direct[models.Band{Type: cfg.Type, Severity: cfg.Severity}] = cfg
	}

	out := make([]presetInfo, 0, len(models.Bands))
	for _, band := range models.Bands {
		if band.Severity == models.SeverityLevel1Excl {
			out = append(out, presetInfo{Type: band.Type, Severity: band.Severity, Derived: true})
			continue
		}
		cfg := direct[band]
		out = append(out, presetInfo{
			Type:               cfg.Type,
			Severity:           cfg.Severity,
			EntryThreshold:     cfg.EntryThreshold,
			RecoveryThreshold:  cfg.RecoveryThreshold,
			MinCoreMinutes:     cfg.MinCoreMinutes,
			MinRecoveryMinutes: cfg.MinRecoveryMinutes,
		})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
