package lap

import (
	"testing"
	"time"
)

func TestStats_FirstFireOnlyStartsTiming(t *testing.T) {
	s := NewStats()
	s.Observe(80)

	rec, ok := s.CompleteLap(42 * time.Second)
	if ok {
		t.Fatalf("first fire produced a record: %+v", rec)
	}
	if s.Laps() != 1 || s.Completed() != 0 {
		t.Fatalf("laps=%d completed=%d want 1,0", s.Laps(), s.Completed())
	}
	if s.TopSpeedKmh() != 0 {
		t.Fatalf("top speed not reset on first fire")
	}
	if len(s.History()) != 0 {
		t.Fatalf("history not empty after start")
	}
}

func TestStats_RecordsAndBest(t *testing.T) {
	s := NewStats()
	s.CompleteLap(0)

	s.Observe(120.5)
	rec, ok := s.CompleteLap(90 * time.Second)
	if !ok {
		t.Fatalf("expected record for completed lap")
	}
	if rec.Index != 1 || rec.Duration != 90*time.Second || rec.TopSpeedKmh != 120.5 {
		t.Fatalf("record=%+v", rec)
	}
	if best, n := s.Best(); best != 90*time.Second || n != 1 {
		t.Fatalf("best=%s lap=%d want 90s lap1", best, n)
	}

	// Faster lap takes over best.
	rec, _ = s.CompleteLap(80 * time.Second)
	if rec.Index != 2 {
		t.Fatalf("index=%d want 2", rec.Index)
	}
	if best, n := s.Best(); best != 80*time.Second || n != 2 {
		t.Fatalf("best=%s lap=%d want 80s lap2", best, n)
	}

	// Equal lap does not (strict less-than).
	s.CompleteLap(80 * time.Second)
	if _, n := s.Best(); n != 2 {
		t.Fatalf("best lap moved on equal duration")
	}

	// Slower lap never increases best.
	s.CompleteLap(200 * time.Second)
	if best, _ := s.Best(); best != 80*time.Second {
		t.Fatalf("best increased to %s", best)
	}
}

func TestStats_AverageDefinedFromSecondCompletedLap(t *testing.T) {
	s := NewStats()
	s.CompleteLap(0)

	s.CompleteLap(100 * time.Second)
	if s.Average() != 0 {
		t.Fatalf("average defined after a single lap: %s", s.Average())
	}

	// Running sum divided by the completed lap count, the source device's
	// formula: (100+80)/2.
	s.CompleteLap(80 * time.Second)
	if s.Average() != 90*time.Second {
		t.Fatalf("average=%s want 90s", s.Average())
	}

	s.CompleteLap(60 * time.Second)
	if s.Average() != 80*time.Second {
		t.Fatalf("average=%s want 80s", s.Average())
	}
}

func TestStats_HistoryRingOfFive(t *testing.T) {
	s := NewStats()
	s.CompleteLap(0)

	durations := []time.Duration{
		10 * time.Second, 20 * time.Second, 30 * time.Second,
		40 * time.Second, 50 * time.Second, 60 * time.Second,
	}
	for _, d := range durations {
		s.CompleteLap(d)
	}

	h := s.History()
	if len(h) != HistoryLen {
		t.Fatalf("history len=%d want %d", len(h), HistoryLen)
	}
	// Newest first; the oldest of the six is gone.
	want := []time.Duration{60 * time.Second, 50 * time.Second, 40 * time.Second, 30 * time.Second, 20 * time.Second}
	for i := range want {
		if h[i] != want[i] {
			t.Fatalf("history[%d]=%s want %s", i, h[i], want[i])
		}
	}
}

func TestStats_TopSpeedResetsEveryFire(t *testing.T) {
	s := NewStats()
	s.Observe(50)
	s.Observe(90)
	s.Observe(70)
	if s.TopSpeedKmh() != 90 {
		t.Fatalf("top speed=%v want 90", s.TopSpeedKmh())
	}

	s.CompleteLap(0)
	if s.TopSpeedKmh() != 0 {
		t.Fatalf("top speed survived the fire")
	}

	s.Observe(110)
	rec, _ := s.CompleteLap(60 * time.Second)
	if rec.TopSpeedKmh != 110 {
		t.Fatalf("record top speed=%v want 110", rec.TopSpeedKmh)
	}
	if s.TopSpeedKmh() != 0 {
		t.Fatalf("top speed not reset after record")
	}
}
