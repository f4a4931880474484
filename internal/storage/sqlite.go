package storage

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"laptimer-ng/internal/lap"
)

// SQLiteSink keeps every lap of every session in a single laps table,
// keyed by a per-session UUID so sessions can be compared later.
type SQLiteSink struct {
	db      *sql.DB
	session string
}

func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS laps (
			session_id       TEXT,
			lap              BIGINT,
			duration_s       DOUBLE,
			top_speed_kmh    DOUBLE,
			fix_time         TEXT,
			timestamp        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteSink{db: db, session: uuid.NewString()}, nil
}

// SessionID identifies the current run in the laps table.
func (s *SQLiteSink) SessionID() string {
	return s.session
}

func (s *SQLiteSink) WriteRecord(rec lap.Record) error {
	ts := rec.Timestamp
	fixTime := fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute, ts.Second)
	_, err := s.db.Exec(
		"INSERT INTO laps (session_id, lap, duration_s, top_speed_kmh, fix_time) VALUES (?, ?, ?, ?, ?)",
		s.session, rec.Index, rec.Duration.Seconds(), rec.TopSpeedKmh, fixTime)
	if err != nil {
		return fmt.Errorf("insert lap: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
