// Package buttons reads the three control buttons (set origin, cycle
// trigger radius, manual lap) through the Linux GPIO character device.
//
// Buttons are wired active-low with the internal pull-up enabled, so a
// pressed button reads level 0.
package buttons

import (
	"fmt"
	"log"
	"sync"
)

// Config holds the buttons settings.
type Config struct {
	Enable    bool   `yaml:"enable"`
	Chip      string `yaml:"chip"`
	OriginPin int    `yaml:"origin_pin"`
	RadiusPin int    `yaml:"radius_pin"`
	LapPin    int    `yaml:"lap_pin"`
}

// buttonLine is the subset of a requested GPIO line the service needs.
// It exists so tests can substitute a fake without hardware.
type buttonLine interface {
	Value() (int, error)
	Close() error
}

// Snapshot is the current state of the buttons service.
type Snapshot struct {
	Enabled   bool   `json:"enabled"`
	Chip      string `json:"chip"`
	LastError string `json:"last_error,omitempty"`
}

// Service samples button levels on demand. All three Held methods are
// level reads; edge semantics (press vs hold) are the caller's concern.
type Service struct {
	cfg Config

	mu      sync.Mutex
	origin  buttonLine
	radius  buttonLine
	lap     buttonLine
	lastErr string
}

// New creates a buttons service with the given configuration.
func New(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// Start requests the configured GPIO lines. It is a no-op when the
// service is disabled.
func (s *Service) Start() error {
	if !s.cfg.Enable {
		return nil
	}
	lines, err := openLines(s.cfg.Chip, []int{s.cfg.OriginPin, s.cfg.RadiusPin, s.cfg.LapPin})
	if err != nil {
		s.setError(err)
		return fmt.Errorf("buttons: %w", err)
	}
	s.mu.Lock()
	s.origin, s.radius, s.lap = lines[0], lines[1], lines[2]
	s.mu.Unlock()
	log.Printf("buttons: started chip=%s origin=%d radius=%d lap=%d",
		s.cfg.Chip, s.cfg.OriginPin, s.cfg.RadiusPin, s.cfg.LapPin)
	return nil
}

// Close releases the GPIO lines.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range []buttonLine{s.origin, s.radius, s.lap} {
		if l != nil {
			_ = l.Close()
		}
	}
	s.origin, s.radius, s.lap = nil, nil, nil
}

// SetOriginHeld reports whether the set-origin button is currently down.
func (s *Service) SetOriginHeld() bool { return s.held(func() buttonLine { return s.origin }) }

// RadiusHeld reports whether the radius-cycle button is currently down.
func (s *Service) RadiusHeld() bool { return s.held(func() buttonLine { return s.radius }) }

// LapHeld reports whether the manual-lap button is currently down.
func (s *Service) LapHeld() bool { return s.held(func() buttonLine { return s.lap }) }

func (s *Service) held(get func() buttonLine) bool {
	s.mu.Lock()
	line := get()
	s.mu.Unlock()
	if line == nil {
		return false
	}
	v, err := line.Value()
	if err != nil {
		s.setError(err)
		return false
	}
	// Active-low: pressed pulls the line to ground.
	return v == 0
}

// Snapshot returns the current buttons state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Enabled:   s.cfg.Enable,
		Chip:      s.cfg.Chip,
		LastError: s.lastErr,
	}
}

func (s *Service) setError(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	log.Printf("buttons: error: %v", err)
}
