package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/glyscope/glyscope/pkg/models"
)

// DefaultTable is the reading table queried when none is configured.
const DefaultTable = "readings"

// SQLite loads reading tables from a SQLite database file. The table
// needs id, time, and gl columns; tz and reading_minutes columns are
// picked up when present.
type SQLite struct {
	db    *sql.DB
	table string
}

// OpenSQLite opens the database read-only and verifies the reading
// table has the required columns.
func OpenSQLite(path, table string) (*SQLite, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validIdent(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", ErrConfig, table)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}
	s := &SQLite{db: db, table: table}
	if err := s.checkSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Ping verifies the database connection is still usable.
func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// columns returns the table's column names.
func (s *SQLite) columns(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", s.table))
	if err != nil {
		return nil, fmt.Errorf("inspect table %q: %w", s.table, err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func (s *SQLite) checkSchema(ctx context.Context) error {
	cols, err := s.columns(ctx)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("%w: table %q does not exist", ErrConfig, s.table)
	}
	for _, required := range []string{colID, colTime, colGlucose} {
		if !cols[required] {
			return fmt.Errorf("%w: table %q missing required column %q", ErrConfig, s.table, required)
		}
	}
	return nil
}

// Readings loads the full reading table, preserving row order. When
// the table carries a reading_minutes column its per-row sampling
// intervals are returned alongside the readings; otherwise minutes is
// nil.
func (s *SQLite) Readings(ctx context.Context) (readings []models.Reading, minutes []float64, err error) {
	cols, err := s.columns(ctx)
	if err != nil {
		return nil, nil, err
	}
	selected := "id, time, gl"
	if cols[colTZ] {
		selected += ", tz"
	}
	if cols[colMinutes] {
		selected += ", " + colMinutes
	}
	query := fmt.Sprintf("SELECT %s FROM %q", selected, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query %q: %w", s.table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id      string
			rawTime any
			gl      sql.NullFloat64
			tz      sql.NullString
			mins    sql.NullFloat64
		)
		dest := []any{&id, &rawTime, &gl}
		if cols[colTZ] {
			dest = append(dest, &tz)
		}
		if cols[colMinutes] {
			dest = append(dest, &mins)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("scan %q: %w", s.table, err)
		}
		ts, err := coerceTime(rawTime)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", len(readings)+1, err)
		}
		if cols[colMinutes] {
			if !mins.Valid || mins.Float64 <= 0 {
				return nil, nil, fmt.Errorf("row %d: invalid reading_minutes", len(readings)+1)
			}
			minutes = append(minutes, mins.Float64)
		}
		r := models.Reading{SubjectID: id, Time: ts, Timezone: tz.String}
		if gl.Valid {
			v := gl.Float64
			r.Glucose = &v
		}
		readings = append(readings, r)
	}
	return readings, minutes, rows.Err()
}

// coerceTime accepts both numeric epoch seconds and textual timestamps
// from loosely typed SQLite columns.
func coerceTime(v any) (float64, error) {
	switch t := v.(type) {
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	case string:
		return parseTime(t)
	case []byte:
		return parseTime(string(t))
	default:
		return 0, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

// validIdent restricts table names to plain identifiers.
func validIdent(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
