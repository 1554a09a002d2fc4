package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/glyscope/glyscope/pkg/models"
)

// Required CSV columns; tz and reading_minutes are optional. Matching
// is case-insensitive.
const (
	colID      = "id"
	colTime    = "time"
	colGlucose = "gl"
	colTZ      = "tz"
	colMinutes = "reading_minutes"
)

// ReadCSV loads a reading table from a CSV stream. The header must
// name the id, time, and gl columns; extra columns are ignored. Rows
// with an empty or NA glucose cell become dropout readings and are
// kept, not skipped. When a reading_minutes column is present its
// per-row sampling intervals are returned alongside the readings;
// otherwise minutes is nil and the caller's nominal interval applies.
func ReadCSV(r io.Reader) (readings []models.Reading, minutes []float64, err error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%w: empty input, header row required", ErrConfig)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colID, colTime, colGlucose} {
		if _, ok := cols[required]; !ok {
			return nil, nil, fmt.Errorf("%w: missing required column %q", ErrConfig, required)
		}
	}
	tzIdx, hasTZ := cols[colTZ]
	minIdx, hasMinutes := cols[colMinutes]

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		ts, err := parseTime(rec[cols[colTime]])
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		gl, err := parseGlucose(rec[cols[colGlucose]])
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		reading := models.Reading{
			SubjectID: strings.TrimSpace(rec[cols[colID]]),
			Time:      ts,
			Glucose:   gl,
		}
		if hasTZ && tzIdx < len(rec) {
			reading.Timezone = strings.TrimSpace(rec[tzIdx])
		}
		if hasMinutes {
			m, err := strconv.ParseFloat(strings.TrimSpace(rec[minIdx]), 64)
			if err != nil || m <= 0 {
				return nil, nil, fmt.Errorf("line %d: invalid reading_minutes %q", line, rec[minIdx])
			}
			minutes = append(minutes, m)
		}
		readings = append(readings, reading)
	}
	return readings, minutes, nil
}

// ReadCSVFile loads a reading table from a CSV file on disk.
func ReadCSVFile(path string) ([]models.Reading, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()
	readings, minutes, err := ReadCSV(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return readings, minutes, nil
}
