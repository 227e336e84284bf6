package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	_ "modernc.org/sqlite" // Register the "sqlite" driver.
)

// timeFormat is fixed-width so that stored timestamps sort as strings.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

//go:embed schema.sql
var schemaSQL string

var _ Sink = (*SQLiteSink)(nil)

// SQLiteSink stores events in a SQLite database.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens, creating if needed, the events database at path. The
// special path ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteSink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}

	dsn := ":memory:"
	if path != dsn {
		cleanPath := filepath.Clean(path)

		err := os.MkdirAll(filepath.Dir(cleanPath), 0o700)
		if err != nil {
			return nil, fmt.Errorf("create directories: %w", err)
		}

		dsn = cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	_, err = db.ExecContext(ctx, schemaSQL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Write implements [Sink].
func (s *SQLiteSink) Write(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt.Data)
	if err != nil {
		return fmt.Errorf("%w: marshal data: %w", ErrLoggingFailure, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (id, user_id, event_type, version, created_at, data) VALUES (?, ?, ?, ?, ?, ?)`,
		evt.ID, evt.UserID, string(evt.Kind), evt.Version, evt.CreatedAt.UTC().Format(timeFormat), string(data),
	)
	if err != nil {
		return fmt.Errorf("%w: insert event: %w", ErrLoggingFailure, err)
	}

	return nil
}

// Usage is the time spent with one chip selected.
type Usage struct {
	ChipText   string
	ChipSource string
	Sessions   int
	Total      time.Duration
}

// Usage sums usage events recorded at or after since, grouped by chip, most
// used first.
func (s *SQLiteSink) Usage(ctx context.Context, since time.Time) ([]Usage, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT
    COALESCE(json_extract(data, '$.chip_text'), ''),
    COALESCE(json_extract(data, '$.chip_source'), ''),
    COUNT(*),
    SUM(COALESCE(json_extract(data, '$.duration_seconds'), 0))
FROM events
WHERE event_type = ? AND created_at >= ?
GROUP BY 1, 2
ORDER BY 4 DESC, 1`,
		string(KindUsage), since.UTC().Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var out []Usage

	for rows.Next() {
		var (
			u       Usage
			seconds float64
		)

		err := rows.Scan(&u.ChipText, &u.ChipSource, &u.Sessions, &seconds)
		if err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}

		u.Total = time.Duration(seconds * float64(time.Second))
		out = append(out, u)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("read usage: %w", err)
	}

	return out, nil
}

// Counts returns the number of events of each kind.
func (s *SQLiteSink) Counts(ctx context.Context) (map[Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT event_type, COUNT(*) FROM events GROUP BY event_type`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	out := map[Kind]int{}

	for rows.Next() {
		var (
			kind string
			n    int
		)

		err := rows.Scan(&kind, &n)
		if err != nil {
			return nil, fmt.Errorf("scan counts: %w", err)
		}

		out[Kind(kind)] = n
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("read counts: %w", err)
	}

	return out, nil
}
