// Package sim generates a synthetic NMEA byte stream. A simulated
// vehicle drives a deterministic circular course through the lap gate,
// which exercises the full decode and lap-detection path without a GPS
// receiver attached.
package sim

import (
	"context"
	"log"
	"time"
)

// Config holds the simulator settings.
type Config struct {
	Enable   bool          `yaml:"enable"`
	RadiusM  float64       `yaml:"radius_m"`
	SpeedKmh float64       `yaml:"speed_kmh"`
	Interval time.Duration `yaml:"interval"`
}

// Source emits checksummed RMC and GGA sentences on a fixed interval.
type Source struct {
	cfg   Config
	track Track
	bytes chan []byte
	now   func() time.Time
}

// New creates a simulator source driving a course through the given gate.
func New(cfg Config, gateLatDeg, gateLonDeg float64) *Source {
	return &Source{
		cfg: cfg,
		track: Track{
			GateLatDeg: gateLatDeg,
			GateLonDeg: gateLonDeg,
			RadiusM:    cfg.RadiusM,
			SpeedKmh:   cfg.SpeedKmh,
		},
		bytes: make(chan []byte, 64),
		now:   time.Now,
	}
}

// Bytes returns the channel the simulator writes sentence bytes to.
func (s *Source) Bytes() <-chan []byte { return s.bytes }

// Run emits sentences until ctx is cancelled.
func (s *Source) Run(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	log.Printf("sim: started radius_m=%.0f speed_kmh=%.0f period=%s",
		s.track.RadiusM, s.track.SpeedKmh, s.track.Period().Round(time.Second))

	start := s.now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.emit(s.now().Sub(start))
		}
	}
}

func (s *Source) emit(elapsed time.Duration) {
	lat, lon := s.track.Position(elapsed)
	speed := s.track.SpeedKmh
	if speed <= 0 {
		speed = 60
	}
	utc := s.now().UTC()
	for _, line := range [][]byte{
		rmcSentence(utc, lat, lon, speed),
		ggaSentence(utc, lat, lon, 0),
	} {
		select {
		case s.bytes <- line:
		default:
		}
	}
}
