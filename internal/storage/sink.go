// Package storage persists completed lap records. Sinks are collaborators:
// a write failure is logged and dropped, never surfaced into the timing
// loop.
package storage

import (
	"log"

	"laptimer-ng/internal/lap"
)

// Sink receives each completed lap exactly once.
type Sink interface {
	WriteRecord(rec lap.Record) error
	Close() error
}

// Fanout writes every record to all sinks, logging per-sink failures.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) WriteRecord(rec lap.Record) error {
	for _, s := range f.sinks {
		if err := s.WriteRecord(rec); err != nil {
			log.Printf("storage write failed lap=%d: %v", rec.Index, err)
		}
	}
	return nil
}

func (f *Fanout) Close() error {
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			log.Printf("storage close failed: %v", err)
		}
	}
	return nil
}
