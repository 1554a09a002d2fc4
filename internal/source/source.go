// Package source loads glucose reading tables from CSV files and
// SQLite databases into the flat in-memory form the analyzer consumes.
package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrConfig marks input-shape problems: missing required columns,
// unparseable schemas. These are fatal and produce no partial output.
// Row-level data quality (missing values, out-of-order timestamps) is
// not an error and is tolerated downstream.
var ErrConfig = fmt.Errorf("input configuration")

// timeLayouts are the accepted textual timestamp forms, tried in order
// after numeric epoch seconds.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// parseTime coerces a timestamp cell to epoch seconds. Numeric values
// are taken as epoch seconds directly; textual values are parsed as
// UTC wall-clock times.
func parseTime(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if v, err := strconv.ParseFloat(cell, 64); err == nil {
		return v, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, cell, time.UTC); err == nil {
			return float64(t.Unix()), nil
		}
	}
	return 0, fmt.Errorf("unparseable timestamp %q", cell)
}

// parseGlucose coerces a glucose cell to a value pointer, nil for the
// empty and NA spellings that encode sensor dropouts.
func parseGlucose(cell string) (*float64, error) {
	cell = strings.TrimSpace(cell)
	switch strings.ToUpper(cell) {
	case "", "NA", "NAN", "NULL":
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, fmt.Errorf("unparseable glucose %q", cell)
	}
	return &v, nil
}
