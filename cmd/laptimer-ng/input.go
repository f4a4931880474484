package main

import (
	"context"
	"log"

	"laptimer-ng/internal/config"
	"laptimer-ng/internal/gps"
	"laptimer-ng/internal/replay"
	"laptimer-ng/internal/sim"
)

// openInput starts the configured byte source: serial GPS receiver,
// the track simulator, or a replay log. Config validation guarantees
// at most one is enabled.
func openInput(ctx context.Context, cancel context.CancelFunc, cfg config.Config) (<-chan []byte, error) {
	switch {
	case cfg.Sim.Enable:
		src := sim.New(sim.Config(cfg.Sim), cfg.Lap.ReferenceLatDeg, cfg.Lap.ReferenceLonDeg)
		go src.Run(ctx)
		return src.Bytes(), nil

	case cfg.Replay.Enable:
		src := replay.NewSource(replay.Config(cfg.Replay))
		go func() {
			if err := src.Run(ctx); err != nil {
				log.Printf("replay stopped: %v", err)
			}
			// A finished (non-looping) replay ends the run.
			cancel()
		}()
		return src.Bytes(), nil

	case cfg.GPS.Enable:
		svc := gps.New(gps.Config(cfg.GPS))
		if err := svc.Start(ctx); err != nil {
			return nil, err
		}
		return svc.Bytes(), nil

	default:
		log.Printf("no input source enabled")
		return nil, nil
	}
}
