package replay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// DefaultInterval is the pace between replayed sentences at 1x speed.
const DefaultInterval = 100 * time.Millisecond

// Config holds the replay settings.
type Config struct {
	Enable bool    `yaml:"enable"`
	Path   string  `yaml:"path"`
	Speed  float64 `yaml:"speed"`
	Loop   bool    `yaml:"loop"`
}

// Source plays a log file onto a byte channel, acting as a drop-in
// replacement for the serial GPS input.
type Source struct {
	cfg     Config
	bytes   chan []byte
	sleeper Sleeper
}

// NewSource creates a replay source for the configured log file.
func NewSource(cfg Config) *Source {
	return &Source{
		cfg:     cfg,
		bytes:   make(chan []byte, 64),
		sleeper: realSleeper{},
	}
}

// Bytes returns the channel replayed sentence bytes are written to.
func (s *Source) Bytes() <-chan []byte { return s.bytes }

// Run replays the log until it ends (or forever when looping) or ctx is
// cancelled.
func (s *Source) Run(ctx context.Context) error {
	lines, err := LoadFile(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	speed := s.cfg.Speed
	if speed <= 0 {
		speed = 1
	}
	log.Printf("replay: started path=%s sentences=%d speed=%.1fx loop=%t",
		s.cfg.Path, len(lines), speed, s.cfg.Loop)

	err = Play(lines, DefaultInterval, speed, s.cfg.Loop, s.sleeper, func(line []byte) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s.bytes <- line:
			return nil
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
