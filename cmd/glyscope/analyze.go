package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/glyscope/glyscope/internal/analysis"
	"github.com/glyscope/glyscope/internal/detect"
	"github.com/glyscope/glyscope/internal/report"
	"github.com/glyscope/glyscope/internal/source"
	"github.com/glyscope/glyscope/pkg/models"
)

// runAnalyze is the batch entry point: read a flat reading table from a
// CSV file or a SQLite database, run episode detection, and write the
// episode and summary CSVs.
func runAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	input := fs.String("input", "", "input CSV file with id,time,gl columns (\"-\" for stdin)")
	dbPath := fs.String("db", "", "input SQLite database file")
	table := fs.String("table", source.DefaultTable, "reading table name for -db")
	episodesOut := fs.String("episodes", "-", "episode CSV output path (\"-\" for stdout)")
	summaryOut := fs.String("summary", "", "summary CSV output path (\"-\" for stdout)")
	sampling := fs.Float64("sampling", 5, "nominal sampling interval in minutes")
	jitter := fs.Float64("jitter", detect.DefaultJitterToleranceMinutes, "timing jitter tolerance in minutes")
	endOfData := fs.String("end-of-data", "discard", "open episode policy at gaps and series end: discard or finalize")
	exclusive := fs.String("exclusive", "", "lv1_excl computation mode: overlap or subtract (required)")
	workers := fs.Int("workers", 0, "worker pool size, 0 for the CPU count")
	_ = fs.Parse(args)

	if (*input == "") == (*dbPath == "") {
		fatalf("analyze: exactly one of -input or -db is required")
	}
	if *exclusive == "" {
		fatalf("analyze: -exclusive is required (overlap or subtract)")
	}

	opts := detect.Options{
		NominalSamplingMinutes: *sampling,
		JitterToleranceMinutes: *jitter,
		Exclusive:              detect.ExclusiveMode(*exclusive),
	}
	switch *endOfData {
	case "discard":
		opts.EndOfData = detect.EndOfDataDiscard
	case "finalize":
		opts.EndOfData = detect.EndOfDataFinalize
	default:
		fatalf("analyze: -end-of-data must be discard or finalize, got %q", *endOfData)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	readings, minutes, err := loadReadings(ctx, *input, *dbPath, *table)
	if err != nil {
		fatalf("analyze: %v", err)
	}

	analyzer := analysis.New(analysis.Config{
		Workers:        *workers,
		Detect:         opts,
		ReadingMinutes: minutes,
	}, nil)
	result, err := analyzer.Run(ctx, readings)
	if err != nil {
		fatalf("analyze: %v", err)
	}

	if err := writeCSV(*episodesOut, func(w io.Writer) error {
		return report.WriteEpisodesCSV(w, result.Episodes)
	}); err != nil {
		fatalf("analyze: write episodes: %v", err)
	}
	if *summaryOut != "" {
		if err := writeCSV(*summaryOut, func(w io.Writer) error {
			return report.WriteSummaryCSV(w, result.Summary)
		}); err != nil {
			fatalf("analyze: write summary: %v", err)
		}
	}
}

// loadReadings returns the reading table plus the optional per-row
// sampling intervals when the source carries a reading_minutes column.
func loadReadings(ctx context.Context, input, dbPath, table string) ([]models.Reading, []float64, error) {
	if dbPath != "" {
		db, err := source.OpenSQLite(dbPath, table)
		if err != nil {
			return nil, nil, err
		}
		defer db.Close()
		return db.Readings(ctx)
	}
	if input == "-" {
		return source.ReadCSV(os.Stdin)
	}
	return source.ReadCSVFile(input)
}

func writeCSV(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
