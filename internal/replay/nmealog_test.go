package replay

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeSleeper struct {
	waits []time.Duration
}

func (f *fakeSleeper) Sleep(d time.Duration) { f.waits = append(f.waits, d) }

func TestReadAll(t *testing.T) {
	in := strings.Join([]string{
		"# recorded 2024-05-01",
		"",
		"$GPRMC,123519,A,3522.1920,N,13932.1920,E,10.0,,100200,,*00",
		"  $GPGGA,123520,3522.1920,N,13932.1920,E,1,08,0.9,15.2,M,39.5,M,,*71  ",
		"",
	}, "\n")

	lines, err := ReadAll(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("len(lines)=%d want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "$GPRMC") || !strings.HasPrefix(lines[1], "$GPGGA") {
		t.Fatalf("unexpected sentences: %v", lines)
	}
}

func TestReadAll_RejectsUnframedLine(t *testing.T) {
	_, err := ReadAll(strings.NewReader("GPRMC,123519,A\n"))
	if err == nil {
		t.Fatalf("expected error for line without '$'")
	}
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.nmea")

	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	if err := w.WriteSentence("$GPRMC,123519,A,3522.1920,N,13932.1920,E,10.0,,100200,,*00\r\n"); err != nil {
		t.Fatalf("WriteSentence() error: %v", err)
	}
	if err := w.WriteSentence("$GPGGA,123520,3522.1920,N,13932.1920,E,1,08,0.9,15.2,M,39.5,M,,*71"); err != nil {
		t.Fatalf("WriteSentence() error: %v", err)
	}
	if err := w.WriteSentence("garbage"); err == nil {
		t.Fatalf("expected error for non-sentence")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := w.WriteSentence("$GPRMC*00"); err == nil {
		t.Fatalf("expected error writing after Close()")
	}

	lines, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("len(lines)=%d want 2", len(lines))
	}
	if strings.ContainsAny(lines[0], "\r\n") {
		t.Fatalf("stored sentence retains framing: %q", lines[0])
	}
}

func TestPlay_PacingAndFraming(t *testing.T) {
	lines := []string{"$A*00", "$B*00", "$C*00"}
	sleeper := &fakeSleeper{}

	var got []string
	err := Play(lines, 100*time.Millisecond, 2, false, sleeper, func(line []byte) error {
		got = append(got, string(line))
		return nil
	})
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("delivered %d sentences, want 3", len(got))
	}
	for _, l := range got {
		if !strings.HasSuffix(l, "\r\n") {
			t.Fatalf("sentence missing framing: %q", l)
		}
	}
	// Two waits between three sentences, halved at 2x speed.
	if len(sleeper.waits) != 2 {
		t.Fatalf("slept %d times, want 2", len(sleeper.waits))
	}
	for _, w := range sleeper.waits {
		if w != 50*time.Millisecond {
			t.Fatalf("wait=%s want 50ms", w)
		}
	}
}

func TestPlay_LoopStopsOnCallbackError(t *testing.T) {
	lines := []string{"$A*00"}
	calls := 0
	err := Play(lines, time.Millisecond, 1, true, &fakeSleeper{}, func([]byte) error {
		calls++
		if calls == 3 {
			return os.ErrClosed
		}
		return nil
	})
	if err == nil {
		t.Fatalf("expected callback error to propagate")
	}
	if calls != 3 {
		t.Fatalf("calls=%d want 3", calls)
	}
}

func TestPlay_Validation(t *testing.T) {
	cb := func([]byte) error { return nil }
	if err := Play([]string{"$A*00"}, time.Second, 0, false, nil, cb); err == nil {
		t.Fatalf("expected error for zero speed")
	}
	if err := Play([]string{"$A*00"}, 0, 1, false, nil, cb); err == nil {
		t.Fatalf("expected error for zero interval")
	}
	if err := Play(nil, time.Second, 1, false, nil, cb); err == nil {
		t.Fatalf("expected error for empty log")
	}
	if err := Play([]string{"$A*00"}, time.Second, 1, false, nil, nil); err == nil {
		t.Fatalf("expected error for nil callback")
	}
}
