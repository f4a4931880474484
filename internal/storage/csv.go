package storage

import (
	"fmt"
	"os"

	"laptimer-ng/internal/lap"
)

// csvHeader matches the append-only log format of the original device, so
// existing spreadsheets keep working.
const csvHeader = "LAPCount,LapTime,TopSpeed,YYYY/MM/DD/Hour:Minute:Second\n"

// CSVSink appends one row per completed lap to a text file. The header is
// written on every session start; the file itself is append-only across
// sessions.
type CSVSink struct {
	f *os.File
}

func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lap log: %w", err)
	}
	if _, err := f.WriteString(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write lap log header: %w", err)
	}
	return &CSVSink{f: f}, nil
}

func (c *CSVSink) WriteRecord(rec lap.Record) error {
	ts := rec.Timestamp
	row := fmt.Sprintf("%d,%.3f,%.1f,%d/%d/%d-%d:%d:%d,\n",
		rec.Index, rec.Duration.Seconds(), rec.TopSpeedKmh,
		ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute, ts.Second)
	if _, err := c.f.WriteString(row); err != nil {
		return fmt.Errorf("append lap row: %w", err)
	}
	return nil
}

func (c *CSVSink) Close() error {
	return c.f.Close()
}
