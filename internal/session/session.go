// Package session owns the lap-timing control cycle. All mutable timing
// state (fix, reference point, detector, statistics) lives here in one
// aggregate with a single logical thread of control; collaborators only
// ever see read-only snapshots.
package session

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"laptimer-ng/internal/geo"
	"laptimer-ng/internal/gps"
	"laptimer-ng/internal/lap"
)

// DefaultCycleInterval is the scheduler tick replacing the source device's
// busy loop. Input bytes buffer between ticks.
const DefaultCycleInterval = 10 * time.Millisecond

// Buttons is the sampled state of the three device inputs.
type Buttons interface {
	// SetOriginHeld moves the reference point to the current fix while held.
	SetOriginHeld() bool
	// RadiusHeld advances the trigger radius once per press (edge detection
	// is the session's job; this is a level read).
	RadiusHeld() bool
	// LapHeld is the manual lap trigger.
	LapHeld() bool
}

// RecordSink receives each completed lap exactly once. Failures are logged
// here and never affect the timing state machine.
type RecordSink interface {
	WriteRecord(rec lap.Record) error
}

// Snapshot is the read-only state handed to the display, web, and UDP
// collaborators. Date/time are in device-local time.
type Snapshot struct {
	Fix       gps.Fix       `json:"fix"`
	LocalTime lap.Timestamp `json:"local_time"`

	RefLatDeg float64 `json:"ref_lat_deg"`
	RefLonDeg float64 `json:"ref_lon_deg"`
	DistanceM float64 `json:"distance_m"`
	RadiusM   float64 `json:"radius_m"`
	Armed     bool    `json:"armed"`

	Lap        int             `json:"lap"`
	Completed  int             `json:"completed"`
	CurrentLap time.Duration   `json:"current_lap"`
	LastLap    time.Duration   `json:"last_lap"`
	PrevLap    time.Duration   `json:"prev_lap"`
	BestLap    time.Duration   `json:"best_lap"`
	BestLapNum int             `json:"best_lap_num"`
	AverageLap time.Duration   `json:"average_lap"`
	History    []time.Duration `json:"history"`

	TopSpeedKmh float64 `json:"top_speed_kmh"`
}

type Config struct {
	ReferenceLatDeg float64
	ReferenceLonDeg float64
	TriggerRadiusM  float64
	Debounce        time.Duration

	// UTCOffsetHours shifts fix time to device-local time. Only the
	// same-day hour rollover is adjusted; calendar math is out of scope.
	UTCOffsetHours int

	CycleInterval   time.Duration
	PublishInterval time.Duration

	// Now may be nil for the wall clock; tests inject a fake.
	Now func() time.Time
}

// Session drives one control cycle per tick: drain input bytes, sample
// buttons, recompute the geofence distance, run the detector, publish.
type Session struct {
	cfg Config
	now func() time.Time

	dec   gps.Decoder
	det   *lap.Detector
	stats *lap.Stats

	refLat float64
	refLon float64

	bytes   <-chan []byte
	buttons Buttons
	sink    RecordSink

	radiusHeld bool

	lastPublish time.Time
	listeners   []func(Snapshot)
	onLap       []func(lap.Record)

	// latest holds the most recent Snapshot for cross-goroutine reads.
	latest atomic.Value
}

func New(cfg Config, bytes <-chan []byte, buttons Buttons, sink RecordSink) *Session {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = DefaultCycleInterval
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 100 * time.Millisecond
	}
	return &Session{
		cfg:     cfg,
		now:     now,
		det:     lap.NewDetector(cfg.TriggerRadiusM, cfg.Debounce, now),
		stats:   lap.NewStats(),
		refLat:  cfg.ReferenceLatDeg,
		refLon:  cfg.ReferenceLonDeg,
		bytes:   bytes,
		buttons: buttons,
		sink:    sink,
	}
}

// AddListener registers a snapshot consumer, called at most once per
// publish interval. Listeners run on the session goroutine and must not
// block.
func (s *Session) AddListener(fn func(Snapshot)) {
	s.listeners = append(s.listeners, fn)
}

// OnLap registers a completed-lap consumer (telemetry, UDP events).
func (s *Session) OnLap(fn func(lap.Record)) {
	s.onLap = append(s.onLap, fn)
}

// Run executes cycles until the context is cancelled.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CycleInterval)
	defer ticker.Stop()

	log.Printf("session started ref=%.7f,%.7f radius=%.0fm offset=%+dh",
		s.refLat, s.refLon, s.det.RadiusM(), s.cfg.UTCOffsetHours)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cycle()
		}
	}
}

// Cycle runs one iteration of the control loop. The ordering is fixed:
// input drain, buttons, distance, detector, publish.
func (s *Session) Cycle() {
	now := s.now()

	s.drainInput()

	origin, radius, lapHeld := false, false, false
	if s.buttons != nil {
		origin = s.buttons.SetOriginHeld()
		radius = s.buttons.RadiusHeld()
		lapHeld = s.buttons.LapHeld()
	}

	fix := s.dec.Fix()

	// Set-origin is sampled, not edge-triggered: the reference follows the
	// fix for as long as the button is held.
	if origin {
		s.refLat = fix.LatDeg
		s.refLon = fix.LonDeg
	}

	// Radius advance is edge-triggered: once per press.
	if radius && !s.radiusHeld {
		s.det.AdvanceRadius()
		log.Printf("trigger radius=%.0fm", s.det.RadiusM())
	}
	s.radiusHeld = radius

	dist := geo.Distance(fix.LatDeg, fix.LonDeg, s.refLat, s.refLon)

	s.stats.Observe(fix.SpeedKmh)

	if fired, elapsed := s.det.Update(dist, lapHeld); fired {
		if rec, ok := s.stats.CompleteLap(elapsed); ok {
			rec.Timestamp = s.localTimestamp(fix)
			log.Printf("lap %d time=%.3fs top=%.1fkm/h", rec.Index, rec.Duration.Seconds(), rec.TopSpeedKmh)
			if s.sink != nil {
				if err := s.sink.WriteRecord(rec); err != nil {
					log.Printf("lap record write failed lap=%d: %v", rec.Index, err)
				}
			}
			for _, fn := range s.onLap {
				fn(rec)
			}
		} else {
			log.Printf("lap timing started")
		}
	}

	snap := s.buildSnapshot(fix, dist)
	s.latest.Store(snap)

	if now.Sub(s.lastPublish) >= s.cfg.PublishInterval {
		s.lastPublish = now
		for _, fn := range s.listeners {
			fn(snap)
		}
	}
}

// Snapshot returns the state captured by the most recent cycle. It is
// safe to call from other goroutines (status API, display refresh).
func (s *Session) Snapshot() Snapshot {
	if v := s.latest.Load(); v != nil {
		return v.(Snapshot)
	}
	fix := s.dec.Fix()
	dist := geo.Distance(fix.LatDeg, fix.LonDeg, s.refLat, s.refLon)
	return s.buildSnapshot(fix, dist)
}

func (s *Session) buildSnapshot(fix gps.Fix, dist float64) Snapshot {
	best, bestNum := s.stats.Best()
	hist := s.stats.History()

	var prev time.Duration
	if len(hist) > 1 {
		prev = hist[1]
	}

	return Snapshot{
		Fix:       fix,
		LocalTime: s.localTimestamp(fix),

		RefLatDeg: s.refLat,
		RefLonDeg: s.refLon,
		DistanceM: dist,
		RadiusM:   s.det.RadiusM(),
		Armed:     s.det.Armed(),

		Lap:        s.stats.Laps(),
		Completed:  s.stats.Completed(),
		CurrentLap: s.det.Elapsed(),
		LastLap:    s.stats.LastDuration(),
		PrevLap:    prev,
		BestLap:    best,
		BestLapNum: bestNum,
		AverageLap: s.stats.Average(),
		History:    hist,

		TopSpeedKmh: s.stats.TopSpeedKmh(),
	}
}

func (s *Session) drainInput() {
	if s.bytes == nil {
		return
	}
	for {
		select {
		case chunk := <-s.bytes:
			for _, b := range chunk {
				s.dec.Feed(b)
			}
		default:
			return
		}
	}
}

// localTimestamp applies the configured UTC offset with a same-day hour
// rollover only; month and year boundaries are deliberately untouched.
func (s *Session) localTimestamp(fix gps.Fix) lap.Timestamp {
	h := fix.Hour + s.cfg.UTCOffsetHours
	d := fix.Day
	if h >= 24 {
		d += h / 24
		h = h % 24
	} else if h < 0 {
		d -= 1 + (-h-1)/24
		h = (h%24 + 24) % 24
	}
	return lap.Timestamp{
		Year:   fix.Year,
		Month:  fix.Month,
		Day:    d,
		Hour:   h,
		Minute: fix.Minute,
		Second: fix.Second,
	}
}
