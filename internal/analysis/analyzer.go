// Package analysis orchestrates detection runs: it groups the input
// table into subject series, fans them out to a bounded worker pool,
// and merges per-subject results back into deterministic output order.
package analysis

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glyscope/glyscope/internal/detect"
	"github.com/glyscope/glyscope/internal/series"
	"github.com/glyscope/glyscope/pkg/models"
)

// ErrConfig marks fatal configuration errors: the run produces no
// partial output when one is raised.
var ErrConfig = fmt.Errorf("analysis configuration")

// Events receives run lifecycle notifications, for example to stream
// progress to connected clients. Implementations must be safe for
// concurrent use.
type Events interface {
	RunStarted(runID string, readings, subjects int)
	RunProgress(runID string, done, total int)
	RunCompleted(runID string, episodes int)
	RunError(runID, errMsg string)
}

// Config parameterizes one analysis run.
type Config struct {
	// Workers bounds the worker pool; 0 means runtime.NumCPU().
	Workers int
	Detect  detect.Options
	// ReadingMinutes optionally overrides the nominal sampling interval
	// per input row. When set, its length must equal the reading count;
	// each subject uses the value at its first row.
	ReadingMinutes []float64
	// Events is notified of run lifecycle transitions; nil disables it.
	Events Events
}

// Analyzer runs detection over multi-subject reading tables.
type Analyzer struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{cfg: cfg, logger: logger}
}

// subjectResult is one worker's output, slotted back by subject index
// so merge order never depends on worker scheduling.
type subjectResult struct {
	byBand  map[models.Band][]models.Episode
	summary []models.SummaryRow
	err     error
}

// Run analyzes the full reading table and returns the detailed episode
// list plus the per-subject summary, subjects in first-seen input
// order. An empty table yields an empty result, not an error.
func (a *Analyzer) Run(ctx context.Context, readings []models.Reading) (*models.Result, error) {
	start := time.Now()
	if err := detect.ValidateOptions(a.cfg.Detect); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if a.cfg.ReadingMinutes != nil && len(a.cfg.ReadingMinutes) != len(readings) {
		return nil, fmt.Errorf("%w: reading_minutes has %d entries for %d readings",
			ErrConfig, len(a.cfg.ReadingMinutes), len(readings))
	}

	runID := uuid.NewString()
	groups := series.Group(readings)
	a.logger.Info("analysis started",
		zap.String("run_id", runID),
		zap.Int("readings", len(readings)),
		zap.Int("subjects", len(groups)))
	if a.cfg.Events != nil {
		a.cfg.Events.RunStarted(runID, len(readings), len(groups))
	}

	results := make([]subjectResult, len(groups))
	jobs := make(chan int)
	workers := a.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(groups) {
		workers = len(groups)
	}

	var wg sync.WaitGroup
	var done atomic.Int64
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = a.analyzeSubject(groups[idx])
				if a.cfg.Events != nil {
					a.cfg.Events.RunProgress(runID, int(done.Add(1)), len(groups))
				}
			}
		}()
	}

dispatch:
	for idx := range groups {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, a.failRun(runID, err)
	}

	res := &models.Result{RunID: runID}
	for i, g := range groups {
		r := results[i]
		if r.err != nil {
			return nil, a.failRun(runID, fmt.Errorf("subject %s: %w", g.SubjectID, r.err))
		}
		for _, band := range models.Bands {
			for _, e := range r.byBand[band] {
				res.Episodes = append(res.Episodes, e)
				episodesDetected.WithLabelValues(string(e.Type), string(e.Severity)).Inc()
			}
		}
		res.Summary = append(res.Summary, r.summary...)
		subjectsAnalyzed.Inc()
	}
	analysisDuration.Observe(time.Since(start).Seconds())
	a.logger.Info("analysis finished",
		zap.String("run_id", runID),
		zap.Int("episodes", len(res.Episodes)),
		zap.Duration("elapsed", time.Since(start)))
	if a.cfg.Events != nil {
		a.cfg.Events.RunCompleted(runID, len(res.Episodes))
	}
	return res, nil
}

func (a *Analyzer) failRun(runID string, err error) error {
	if a.cfg.Events != nil {
		a.cfg.Events.RunError(runID, err.Error())
	}
	return err
}

func (a *Analyzer) analyzeSubject(s *models.Series) subjectResult {
	opts := a.cfg.Detect
	if a.cfg.ReadingMinutes != nil && s.Len() > 0 {
		opts.NominalSamplingMinutes = a.cfg.ReadingMinutes[s.At(0).Row]
	}
	byBand, err := detect.Detect(s, opts)
	if err != nil {
		return subjectResult{err: err}
	}
	return subjectResult{
		byBand:  byBand,
		summary: detect.Summarize(s, byBand, opts.Exclusive),
	}
}
