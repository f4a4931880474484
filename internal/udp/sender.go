package udp

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"laptimer-ng/internal/lap"
	"laptimer-ng/internal/session"
)

// Config holds the UDP output settings.
type Config struct {
	Enable   bool          `yaml:"enable"`
	Dest     string        `yaml:"dest"`
	Interval time.Duration `yaml:"interval"`
}

// message is the wire envelope. Exactly one of Status or Lap is set.
type message struct {
	Type   string            `json:"type"`
	Status *session.Snapshot `json:"status,omitempty"`
	Lap    *lap.Record       `json:"lap,omitempty"`
}

// Sender forwards timing snapshots (rate limited to Interval) and lap
// records (immediately) to the configured destination.
type Sender struct {
	cfg Config
	b   *Broadcaster

	mu       sync.Mutex
	lastSent time.Time
	now      func() time.Time
}

// NewSender dials the destination and returns a ready sender.
func NewSender(cfg Config) (*Sender, error) {
	b, err := NewBroadcaster(cfg.Dest)
	if err != nil {
		return nil, err
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Sender{cfg: cfg, b: b, now: time.Now}, nil
}

// HandleSnapshot sends a status datagram, dropping snapshots that
// arrive faster than the configured interval.
func (s *Sender) HandleSnapshot(snap session.Snapshot) {
	s.mu.Lock()
	now := s.now()
	if now.Sub(s.lastSent) < s.cfg.Interval {
		s.mu.Unlock()
		return
	}
	s.lastSent = now
	s.mu.Unlock()

	s.send(message{Type: "status", Status: &snap})
}

// HandleLap sends a lap datagram. Lap records are never rate limited.
func (s *Sender) HandleLap(rec lap.Record) {
	s.send(message{Type: "lap", Lap: &rec})
}

func (s *Sender) send(msg message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("udp: marshal: %v", err)
		return
	}
	if err := s.b.Send(payload); err != nil {
		log.Printf("udp: send dest=%s: %v", s.cfg.Dest, err)
	}
}

// Close releases the socket.
func (s *Sender) Close() error { return s.b.Close() }
