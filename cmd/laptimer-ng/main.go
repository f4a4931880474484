package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"laptimer-ng/internal/buttons"
	"laptimer-ng/internal/config"
	"laptimer-ng/internal/display"
	"laptimer-ng/internal/session"
	"laptimer-ng/internal/storage"
	"laptimer-ng/internal/telemetry"
	"laptimer-ng/internal/udp"
	"laptimer-ng/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./laptimer.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("laptimer-ng starting")

	bytes, err := openInput(ctx, cancel, cfg)
	if err != nil {
		log.Fatalf("input init failed: %v", err)
	}

	btns := buttons.New(buttons.Config(cfg.Buttons))
	if err := btns.Start(); err != nil {
		log.Fatalf("buttons init failed: %v", err)
	}
	defer btns.Close()

	sink, err := openSinks(cfg)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Printf("storage close: %v", err)
		}
	}()

	sess := session.New(session.Config{
		ReferenceLatDeg: cfg.Lap.ReferenceLatDeg,
		ReferenceLonDeg: cfg.Lap.ReferenceLonDeg,
		TriggerRadiusM:  cfg.Lap.TriggerRadiusM,
		Debounce:        cfg.Lap.Debounce,
		UTCOffsetHours:  *cfg.Clock.UTCOffsetHours,
		CycleInterval:   cfg.Lap.CycleInterval,
	}, bytes, btns, sink)

	var hub *web.Hub
	if cfg.Web.Enable {
		hub = web.NewHub()
		defer hub.Close()
		sess.AddListener(hub.HandleSnapshot)
		sess.OnLap(hub.HandleLap)
		go func() {
			if err := web.Serve(ctx, cfg.Web.Listen, sess, hub); err != nil && ctx.Err() == nil {
				log.Printf("web server stopped: %v", err)
				cancel()
			}
		}()
		log.Printf("web listening on %s", cfg.Web.Listen)
	}

	if cfg.UDP.Enable {
		sender, err := udp.NewSender(udp.Config(cfg.UDP))
		if err != nil {
			log.Fatalf("udp init failed: %v", err)
		}
		defer sender.Close()
		sess.AddListener(sender.HandleSnapshot)
		sess.OnLap(sender.HandleLap)
		log.Printf("udp dest=%s interval=%s", cfg.UDP.Dest, cfg.UDP.Interval)
	}

	if cfg.Telemetry.Enable {
		tel, err := telemetry.Connect(telemetry.Config(cfg.Telemetry))
		if err != nil {
			// The broker may simply not be up yet; timing works without it.
			log.Printf("telemetry disabled: %v", err)
		} else {
			defer tel.Close()
			sess.AddListener(tel.HandleSnapshot)
			sess.OnLap(tel.HandleLap)
		}
	}

	if cfg.Display.Enable {
		go func() {
			if err := display.Run(ctx, display.Config(cfg.Display), sess); err != nil {
				log.Printf("display stopped: %v", err)
			}
		}()
	}

	go sess.Run(ctx)

	<-ctx.Done()
	log.Printf("laptimer-ng stopping")
}

// openSinks builds the fanout of enabled lap record sinks. With nothing
// enabled laps are only logged.
func openSinks(cfg config.Config) (*storage.Fanout, error) {
	var sinks []storage.Sink
	if cfg.Storage.CSV.Enable {
		s, err := storage.NewCSVSink(cfg.Storage.CSV.Path)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
		log.Printf("storage csv path=%s", cfg.Storage.CSV.Path)
	}
	if cfg.Storage.SQLite.Enable {
		s, err := storage.NewSQLiteSink(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
		log.Printf("storage sqlite path=%s", cfg.Storage.SQLite.Path)
	}
	return storage.NewFanout(sinks...), nil
}
