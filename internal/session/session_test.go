package session

import (
	"fmt"
	"math"
	"testing"
	"time"

	"laptimer-ng/internal/lap"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeButtons struct {
	origin bool
	radius bool
	lap    bool
}

func (b *fakeButtons) SetOriginHeld() bool { return b.origin }
func (b *fakeButtons) RadiusHeld() bool    { return b.radius }
func (b *fakeButtons) LapHeld() bool       { return b.lap }

type captureSink struct {
	records []lap.Record
}

func (c *captureSink) WriteRecord(rec lap.Record) error {
	c.records = append(c.records, rec)
	return nil
}

func nmeaLine(payload string) []byte {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return []byte(fmt.Sprintf("$%s*%02X\r\n", payload, ck))
}

// Raw NMEA positions around the reference gate at 3522.1920N 13932.1920E.
const (
	gateLat = "3522.1920"
	gateLon = "13932.1920"

	// ~1.85 m north of the gate: inside any radius in the 5..50 cycle,
	// and never exactly 0.
	insideLat = "3522.1930"

	// ~1852 m north: well outside.
	outsideLat = "3523.1920"
)

func rmc(latRaw string, knots float64) []byte {
	return nmeaLine(fmt.Sprintf("GPRMC,123519,A,%s,N,%s,E,%.1f,,100200,,", latRaw, gateLon, knots))
}

func testConfig(clk *fakeClock) Config {
	return Config{
		ReferenceLatDeg: 35 + 22.1920/60,
		ReferenceLonDeg: 139 + 32.1920/60,
		TriggerRadiusM:  5,
		UTCOffsetHours:  9,
		Now:             clk.Now,
	}
}

func feedAndCycle(s *Session, ch chan []byte, line []byte) {
	ch <- line
	s.Cycle()
}

func TestSession_EndToEndLapTiming(t *testing.T) {
	clk := newFakeClock()
	ch := make(chan []byte, 16)
	btns := &fakeButtons{}
	sink := &captureSink{}
	s := New(testConfig(clk), ch, btns, sink)

	// Start outside the gate.
	feedAndCycle(s, ch, rmc(outsideLat, 10.0))
	if len(sink.records) != 0 {
		t.Fatalf("unexpected record before any crossing")
	}

	// First crossing after the start-up debounce: starts timing, no record.
	clk.Advance(15 * time.Second)
	feedAndCycle(s, ch, rmc(insideLat, 10.0))
	if len(sink.records) != 0 {
		t.Fatalf("first crossing produced a record")
	}
	snap := s.Snapshot()
	if snap.Lap != 1 || snap.Completed != 0 {
		t.Fatalf("lap=%d completed=%d want 1,0", snap.Lap, snap.Completed)
	}

	// Out on track, then a 90 s lap.
	clk.Advance(45 * time.Second)
	feedAndCycle(s, ch, rmc(outsideLat, 54.0))
	clk.Advance(45 * time.Second)
	feedAndCycle(s, ch, rmc(insideLat, 10.0))

	if len(sink.records) != 1 {
		t.Fatalf("records=%d want 1", len(sink.records))
	}
	rec := sink.records[0]
	if rec.Index != 1 {
		t.Fatalf("index=%d want 1", rec.Index)
	}
	if rec.Duration != 90*time.Second {
		t.Fatalf("duration=%s want 90s", rec.Duration)
	}
	// Top speed of the lap: 54 knots = 100.008 km/h.
	if math.Abs(rec.TopSpeedKmh-100.008) > 1e-9 {
		t.Fatalf("top speed=%v want 100.008", rec.TopSpeedKmh)
	}
	// RMC 123519/100200 shifted UTC+9.
	want := lap.Timestamp{Year: 2000, Month: 2, Day: 10, Hour: 21, Minute: 35, Second: 19}
	if rec.Timestamp != want {
		t.Fatalf("timestamp=%+v want %+v", rec.Timestamp, want)
	}

	// Dip under the radius again within the debounce window: suppressed.
	clk.Advance(3 * time.Second)
	feedAndCycle(s, ch, rmc(outsideLat, 10.0))
	clk.Advance(3 * time.Second)
	feedAndCycle(s, ch, rmc(insideLat, 10.0))
	if len(sink.records) != 1 {
		t.Fatalf("debounce failed, records=%d", len(sink.records))
	}

	// A clean second lap.
	clk.Advance(30 * time.Second)
	feedAndCycle(s, ch, rmc(outsideLat, 10.0))
	clk.Advance(30 * time.Second)
	feedAndCycle(s, ch, rmc(insideLat, 10.0))
	if len(sink.records) != 2 {
		t.Fatalf("records=%d want 2", len(sink.records))
	}
	if sink.records[1].Index != 2 {
		t.Fatalf("second record index=%d want 2", sink.records[1].Index)
	}
}

func TestSession_ZeroFixNeverTriggers(t *testing.T) {
	clk := newFakeClock()
	btns := &fakeButtons{}
	sink := &captureSink{}
	cfg := testConfig(clk)
	// Reference at the zero fix: distance is exactly 0 until GPS locks.
	cfg.ReferenceLatDeg = 0
	cfg.ReferenceLonDeg = 0
	s := New(cfg, nil, btns, sink)

	for i := 0; i < 100; i++ {
		clk.Advance(time.Second)
		s.Cycle()
	}
	if len(sink.records) != 0 || s.Snapshot().Lap != 0 {
		t.Fatalf("zero fix triggered a lap")
	}
}

func TestSession_SetOriginFollowsFixWhileHeld(t *testing.T) {
	clk := newFakeClock()
	ch := make(chan []byte, 16)
	btns := &fakeButtons{}
	s := New(testConfig(clk), ch, btns, &captureSink{})

	feedAndCycle(s, ch, rmc(outsideLat, 0))
	if d := s.Snapshot().DistanceM; d < 1000 {
		t.Fatalf("distance=%v want ~1852", d)
	}

	btns.origin = true
	clk.Advance(time.Second)
	s.Cycle()
	snap := s.Snapshot()
	if snap.DistanceM != 0 {
		t.Fatalf("distance=%v want 0 after set-origin", snap.DistanceM)
	}
	if snap.RefLatDeg != snap.Fix.LatDeg || snap.RefLonDeg != snap.Fix.LonDeg {
		t.Fatalf("reference did not follow fix")
	}
}

func TestSession_RadiusButtonIsEdgeTriggered(t *testing.T) {
	clk := newFakeClock()
	btns := &fakeButtons{}
	s := New(testConfig(clk), nil, btns, &captureSink{})

	btns.radius = true
	s.Cycle()
	s.Cycle()
	s.Cycle()
	if r := s.Snapshot().RadiusM; r != 10 {
		t.Fatalf("radius=%v want 10 (held press must advance once)", r)
	}

	btns.radius = false
	s.Cycle()
	btns.radius = true
	s.Cycle()
	if r := s.Snapshot().RadiusM; r != 15 {
		t.Fatalf("radius=%v want 15 after second press", r)
	}
}

func TestSession_ManualLapTrigger(t *testing.T) {
	clk := newFakeClock()
	ch := make(chan []byte, 16)
	btns := &fakeButtons{}
	sink := &captureSink{}
	s := New(testConfig(clk), ch, btns, sink)

	// Fix far from the gate; laps driven purely by the button.
	feedAndCycle(s, ch, rmc(outsideLat, 20.0))

	clk.Advance(12 * time.Second)
	btns.lap = true
	s.Cycle()
	btns.lap = false

	clk.Advance(60 * time.Second)
	s.Cycle() // released: re-arms
	clk.Advance(time.Second)
	btns.lap = true
	s.Cycle()
	btns.lap = false

	if len(sink.records) != 1 {
		t.Fatalf("records=%d want 1", len(sink.records))
	}
	if sink.records[0].Duration != 61*time.Second {
		t.Fatalf("duration=%s want 61s", sink.records[0].Duration)
	}
}

func TestSession_PublishThrottled(t *testing.T) {
	clk := newFakeClock()
	cfg := testConfig(clk)
	cfg.PublishInterval = 100 * time.Millisecond
	s := New(cfg, nil, &fakeButtons{}, &captureSink{})

	var published int
	s.AddListener(func(Snapshot) { published++ })

	// 50 cycles at 10 ms: the first publishes immediately, then every 100 ms.
	for i := 0; i < 50; i++ {
		s.Cycle()
		clk.Advance(10 * time.Millisecond)
	}
	if published < 5 || published > 6 {
		t.Fatalf("published=%d want 5..6", published)
	}
}

func TestSession_OnLapCallbacks(t *testing.T) {
	clk := newFakeClock()
	ch := make(chan []byte, 16)
	sink := &captureSink{}
	s := New(testConfig(clk), ch, &fakeButtons{}, sink)

	var events []lap.Record
	s.OnLap(func(r lap.Record) { events = append(events, r) })

	clk.Advance(15 * time.Second)
	feedAndCycle(s, ch, rmc(insideLat, 10.0))
	clk.Advance(20 * time.Second)
	feedAndCycle(s, ch, rmc(outsideLat, 10.0))
	clk.Advance(20 * time.Second)
	feedAndCycle(s, ch, rmc(insideLat, 10.0))

	if len(events) != 1 || len(sink.records) != 1 {
		t.Fatalf("events=%d records=%d want 1,1", len(events), len(sink.records))
	}
	if events[0] != sink.records[0] {
		t.Fatalf("callback record differs from sink record")
	}
}
