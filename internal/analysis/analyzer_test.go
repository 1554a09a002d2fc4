package analysis

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/glyscope/glyscope/internal/detect"
	"github.com/glyscope/glyscope/pkg/models"
)

func ptr(v float64) *float64 { return &v }

// dipTable builds a reading table where each listed subject has one
// clean 15-minute hypoglycemic episode.
func dipTable(subjects ...string) []models.Reading {
	vals := []float64{80, 65, 60, 55, 60, 75, 78, 80, 82}
	var out []models.Reading
	for _, id := range subjects {
		for i, v := range vals {
			out = append(out, models.Reading{
				SubjectID: id, Time: float64(i) * 300, Glucose: ptr(v),
			})
		}
	}
	return out
}

func testAnalyzer(workers int) *Analyzer {
	return New(Config{Workers: workers, Detect: detect.DefaultOptions()}, nil)
}

func TestRunDeterministicSubjectOrder(t *testing.T) {
	table := dipTable("delta", "alpha", "echo", "bravo", "charlie")
	want := []string{"delta", "alpha", "echo", "bravo", "charlie"}

	var prev *models.Result
	for trial := 0; trial < 5; trial++ {
		res, err := testAnalyzer(4).Run(context.Background(), table)
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		var order []string
		for _, e := range res.Episodes {
			if len(order) == 0 || order[len(order)-1] != e.SubjectID {
				order = append(order, e.SubjectID)
			}
		}
		if !reflect.DeepEqual(order, want) {
			t.Fatalf("trial %d: episode subject order = %v, want %v", trial, order, want)
		}
		if prev != nil {
			if !reflect.DeepEqual(prev.Episodes, res.Episodes) {
				t.Fatalf("trial %d: episodes differ from previous run", trial)
			}
			if !reflect.DeepEqual(prev.Summary, res.Summary) {
				t.Fatalf("trial %d: summary differs from previous run", trial)
			}
		}
		prev = res
	}
}

func TestRunEmptyInput(t *testing.T) {
	res, err := testAnalyzer(2).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(res.Episodes) != 0 || len(res.Summary) != 0 {
		t.Errorf("got %d episodes, %d summary rows from empty input, want 0, 0",
			len(res.Episodes), len(res.Summary))
	}
	if res.RunID == "" {
		t.Error("empty run still needs a run ID")
	}
}

func TestRunSummaryRowsPerSubject(t *testing.T) {
	res, err := testAnalyzer(2).Run(context.Background(), dipTable("a", "b"))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got, want := len(res.Summary), 2*len(models.Bands); got != want {
		t.Fatalf("got %d summary rows, want %d", got, want)
	}
	if res.Summary[0].SubjectID != "a" || res.Summary[len(models.Bands)].SubjectID != "b" {
		t.Error("summary rows not grouped by subject in input order")
	}
}

func TestRunReadingMinutesMismatch(t *testing.T) {
	table := dipTable("a")
	a := New(Config{
		Detect:         detect.DefaultOptions(),
		ReadingMinutes: make([]float64, len(table)-1),
	}, nil)
	_, err := a.Run(context.Background(), table)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("Run() error = %v, want ErrConfig", err)
	}
}

func TestRunReadingMinutesOverride(t *testing.T) {
	// At a 15-minute cadence the same dip shape spans 45 minutes; the
	// override must reach the per-subject detection config.
	table := dipTable("a")
	for i := range table {
		table[i].Time = float64(i) * 900
	}
	override := make([]float64, len(table))
	for i := range override {
		override[i] = 15
	}
	a := New(Config{Detect: detect.DefaultOptions(), ReadingMinutes: override}, nil)
	res, err := a.Run(context.Background(), table)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	var lv1 []models.Episode
	for _, e := range res.Episodes {
		if e.Type == models.TypeHypo && e.Severity == models.SeverityLevel1 {
			lv1 = append(lv1, e)
		}
	}
	if len(lv1) != 1 {
		t.Fatalf("got %d hypo lv1 episodes, want 1", len(lv1))
	}
	if lv1[0].DurationMinutes != 45 {
		t.Errorf("duration = %v, want 45 at the overridden cadence", lv1[0].DurationMinutes)
	}
}

func TestRunRejectsUnsetExclusiveMode(t *testing.T) {
	opts := detect.DefaultOptions()
	opts.Exclusive = ""
	a := New(Config{Detect: opts}, nil)
	if _, err := a.Run(context.Background(), dipTable("a")); !errors.Is(err, ErrConfig) {
		t.Fatalf("Run() error = %v, want ErrConfig", err)
	}
}

type recordingEvents struct {
	mu        sync.Mutex
	started   int
	progress  int
	completed int
	failed    int
	runID     string
	episodes  int
}

func (r *recordingEvents) RunStarted(runID string, readings, subjects int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
	r.runID = runID
}

func (r *recordingEvents) RunProgress(runID string, done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress++
}

func (r *recordingEvents) RunCompleted(runID string, episodes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
	r.episodes = episodes
}

func (r *recordingEvents) RunError(runID, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
}

func TestRunNotifiesEvents(t *testing.T) {
	events := &recordingEvents{}
	a := New(Config{Workers: 1, Detect: detect.DefaultOptions(), Events: events}, nil)
	res, err := a.Run(context.Background(), dipTable("a", "b"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if events.started != 1 || events.completed != 1 || events.failed != 0 {
		t.Errorf("events = started %d completed %d failed %d",
			events.started, events.completed, events.failed)
	}
	if events.progress != 2 {
		t.Errorf("progress events = %d, want 2", events.progress)
	}
	if events.runID != res.RunID {
		t.Errorf("started run ID = %q, result has %q", events.runID, res.RunID)
	}
	if events.episodes != len(res.Episodes) {
		t.Errorf("completed episodes = %d, result has %d", events.episodes, len(res.Episodes))
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testAnalyzer(1).Run(ctx, dipTable("a", "b", "c"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}
