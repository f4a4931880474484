// Package replay feeds a recorded NMEA sentence log back through the
// decode pipeline at a configurable pace. Logs are line-oriented text:
// blank lines and lines starting with '#' are ignored, every other line
// is one sentence starting with '$'.
package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ReadAll parses an NMEA log into its sentences, framing stripped.
func ReadAll(r io.Reader) ([]string, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4*1024), 64*1024)

	lines := make([]string, 0, 1024)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "$") {
			return nil, fmt.Errorf("invalid log line (missing '$'): %q", line)
		}
		lines = append(lines, line)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// LoadFile reads and parses the NMEA log at path.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAll(f)
}

// Writer records incoming sentences to a log file for later replay.
type Writer struct {
	f      *os.File
	w      *bufio.Writer
	closed bool
}

// CreateWriter creates (or truncates) a log file at path.
func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer{f: f, w: bufio.NewWriterSize(f, 64*1024)}, nil
}

// WriteSentence appends one sentence to the log.
func (ww *Writer) WriteSentence(line string) error {
	if ww.closed {
		return errors.New("replay writer is closed")
	}
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "$") {
		return fmt.Errorf("not an NMEA sentence: %q", line)
	}
	_, err := fmt.Fprintf(ww.w, "%s\n", line)
	return err
}

// Flush writes buffered sentences to disk.
func (ww *Writer) Flush() error {
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

// Close flushes and closes the log file.
func (ww *Writer) Close() error {
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}

type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// Play invokes cb for each sentence with framing ("\r\n") restored,
// pacing playback at interval between sentences.
//
// speedMultiplier: 1.0 = real time, 2.0 = 2x speed (half waits).
func Play(lines []string, interval time.Duration, speedMultiplier float64, loop bool, sleeper Sleeper, cb func(line []byte) error) error {
	if speedMultiplier <= 0 {
		return fmt.Errorf("speedMultiplier must be > 0")
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be > 0")
	}
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if len(lines) == 0 {
		return errors.New("no sentences")
	}

	wait := time.Duration(float64(interval) / speedMultiplier)
	first := true
	for {
		for _, line := range lines {
			if !first && wait > 0 {
				sleeper.Sleep(wait)
			}
			first = false
			if err := cb([]byte(line + "\r\n")); err != nil {
				return err
			}
		}
		if !loop {
			return nil
		}
	}
}
