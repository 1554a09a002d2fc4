package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glyscope/glyscope/internal/detect"
	"github.com/glyscope/glyscope/internal/peaks"
	"github.com/glyscope/glyscope/pkg/models"
)

func newTestHandler() http.Handler {
	h := New(detect.DefaultOptions(), 2, peaks.DefaultOptions(), nil, nil)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func dipReadings(id string) []models.Reading {
	values := []float64{80, 75, 65, 60, 55, 60, 72, 75, 80}
	readings := make([]models.Reading, len(values))
	for i, v := range values {
		gl := v
		readings[i] = models.Reading{SubjectID: id, Time: float64(i) * 300, Glucose: &gl}
	}
	return readings
}

func postJSON(t *testing.T, mux http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestAnalyzeEndpoint(t *testing.T) {
	mux := newTestHandler()
	w := postJSON(t, mux, "/api/v1/analyze", map[string]any{
		"readings": dipReadings("subj-1"),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var res models.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.RunID == "" {
		t.Error("run_id not set")
	}
	// Overlap mode relabels the lv1 episode as lv1_excl too (no lv2
	// episode overlaps it), so the dip yields two rows.
	if len(res.Episodes) != 2 {
		t.Fatalf("episodes = %d, want 2", len(res.Episodes))
	}
	ep := res.Episodes[0]
	if ep.Type != models.TypeHypo || ep.Severity != models.SeverityLevel1 {
		t.Errorf("episode band = %s/%s, want hypo/lv1", ep.Type, ep.Severity)
	}
	if res.Episodes[1].Severity != models.SeverityLevel1Excl {
		t.Errorf("second episode band = %s, want lv1_excl", res.Episodes[1].Severity)
	}
	if len(res.Summary) != len(models.Bands) {
		t.Errorf("summary rows = %d, want %d", len(res.Summary), len(models.Bands))
	}
}

func TestAnalyzeRejectsBadJSON(t *testing.T) {
	mux := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestAnalyzeRejectsBadEndOfData(t *testing.T) {
	mux := newTestHandler()
	body := map[string]any{
		"readings": dipReadings("subj-1"),
		"options":  map[string]any{"end_of_data": "truncate"},
	}
	w := postJSON(t, mux, "/api/v1/analyze", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAnalyzeRejectsReadingMinutesMismatch(t *testing.T) {
	mux := newTestHandler()
	body := map[string]any{
		"readings": dipReadings("subj-1"),
		"options":  map[string]any{"reading_minutes": []float64{5, 5}},
	}
	w := postJSON(t, mux, "/api/v1/analyze", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "reading_minutes") {
		t.Errorf("problem detail missing cause: %s", w.Body.String())
	}
}

func TestAnalyzeRequiresExclusiveMode(t *testing.T) {
	opts := detect.DefaultOptions()
	opts.Exclusive = ""
	h := New(opts, 1, peaks.DefaultOptions(), nil, nil)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	w := postJSON(t, mux, "/api/v1/analyze", map[string]any{
		"readings": dipReadings("subj-1"),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	body := map[string]any{
		"readings": dipReadings("subj-1"),
		"options":  map[string]any{"exclusive_mode": "subtract"},
	}
	w = postJSON(t, mux, "/api/v1/analyze", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status with explicit mode = %d, body %s", w.Code, w.Body.String())
	}
}

func TestPeaksEndpoint(t *testing.T) {
	values := []float64{120, 125, 135, 145, 155, 165, 175, 180, 178, 175, 170, 165, 160}
	readings := make([]models.Reading, len(values))
	for i, v := range values {
		gl := v
		readings[i] = models.Reading{SubjectID: "subj-1", Time: float64(i) * 300, Glucose: &gl}
	}

	mux := newTestHandler()
	w := postJSON(t, mux, "/api/v1/peaks", map[string]any{"readings": readings})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp peaksResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Onsets) != 1 {
		t.Fatalf("onsets = %d, want 1", len(resp.Onsets))
	}
	if resp.Onsets[0].Time != 600 || resp.Onsets[0].Value != 135 {
		t.Errorf("onset = %+v", resp.Onsets[0])
	}
	if len(resp.Peaks) != 1 || !resp.Peaks[0].HasPeak {
		t.Fatalf("peaks = %+v", resp.Peaks)
	}
	if resp.Peaks[0].PeakValue != 180 || resp.Peaks[0].PeakTime != 2100 {
		t.Errorf("peak = %+v", resp.Peaks[0])
	}
}

func TestPresetsEndpoint(t *testing.T) {
	mux := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/presets", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var out []presetInfo
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != len(models.Bands) {
		t.Fatalf("presets = %d, want %d", len(out), len(models.Bands))
	}

	first := out[0]
	if first.Type != models.TypeHypo || first.Severity != models.SeverityLevel1 {
		t.Errorf("first preset = %s/%s", first.Type, first.Severity)
	}
	if first.EntryThreshold != 70 || first.MinCoreMinutes != 15 {
		t.Errorf("hypo lv1 thresholds = %+v", first)
	}

	var derived int
	for _, p := range out {
		if p.Derived {
			derived++
			if p.Severity != models.SeverityLevel1Excl {
				t.Errorf("derived preset with level %s", p.Severity)
			}
		}
	}
	if derived != 2 {
		t.Errorf("derived presets = %d, want 2", derived)
	}
}
