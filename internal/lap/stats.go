package lap

import "time"

// HistoryLen caps the rolling lap history.
const HistoryLen = 5

// Timestamp is a local date/time attached to a lap record.
type Timestamp struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// Record is one completed lap, handed to the storage sinks exactly once.
type Record struct {
	Index       int           `json:"index"`
	Duration    time.Duration `json:"duration"`
	TopSpeedKmh float64       `json:"top_speed_kmh"`
	Timestamp   Timestamp     `json:"timestamp"`
}

// Stats aggregates lap events: best/average/history plus the top speed of
// the lap currently in progress.
//
// The lap counter counts trigger events: the first trigger of a session
// only starts the clock, so lap N completes on trigger N+1. The average
// divides the running sum by the completed lap count and is defined only
// once more than one lap has completed.
type Stats struct {
	laps int // trigger count; the lap currently in progress, 1-based

	lastDuration time.Duration
	history      []time.Duration // newest first, len <= HistoryLen

	best    time.Duration
	bestLap int

	sum     time.Duration
	average time.Duration

	topSpeedKmh float64
}

// NewStats returns an empty aggregator.
func NewStats() *Stats {
	return &Stats{}
}

// Observe folds one instantaneous speed sample into the current lap's
// top speed. Called once per cycle.
func (s *Stats) Observe(speedKmh float64) {
	if speedKmh > s.topSpeedKmh {
		s.topSpeedKmh = speedKmh
	}
}

// CompleteLap processes one detector fire. For the first fire of the
// session it only starts lap numbering and returns ok=false; afterwards it
// returns the finished lap's record (sans timestamp, which the session
// attaches from the fix clock).
//
// Every fire, first or not, advances the lap counter and resets the
// per-lap top speed.
func (s *Stats) CompleteLap(duration time.Duration) (Record, bool) {
	var rec Record
	ok := false

	if s.laps > 0 {
		s.lastDuration = duration

		s.history = append([]time.Duration{duration}, s.history...)
		if len(s.history) > HistoryLen {
			s.history = s.history[:HistoryLen]
		}

		if s.best == 0 || duration < s.best {
			s.best = duration
			s.bestLap = s.laps
		}

		rec = Record{Index: s.laps, Duration: duration, TopSpeedKmh: s.topSpeedKmh}
		ok = true

		s.sum += duration
		if s.laps > 1 {
			s.average = s.sum / time.Duration(s.laps)
		}
	}

	s.laps++
	s.topSpeedKmh = 0
	return rec, ok
}

// Laps is the number of the lap in progress (0 before timing starts).
func (s *Stats) Laps() int { return s.laps }

// Completed is the number of finished laps.
func (s *Stats) Completed() int {
	if s.laps == 0 {
		return 0
	}
	return s.laps - 1
}

// LastDuration is the most recently completed lap, 0 if none.
func (s *Stats) LastDuration() time.Duration { return s.lastDuration }

// Best returns the best lap duration and its 1-based index; 0,0 if none.
func (s *Stats) Best() (time.Duration, int) { return s.best, s.bestLap }

// Average is the running average, 0 until more than one lap has completed.
func (s *Stats) Average() time.Duration { return s.average }

// History returns the most recent lap durations, newest first.
func (s *Stats) History() []time.Duration {
	out := make([]time.Duration, len(s.history))
	copy(out, s.history)
	return out
}

// TopSpeedKmh is the highest speed seen in the lap in progress.
func (s *Stats) TopSpeedKmh() float64 { return s.topSpeedKmh }
