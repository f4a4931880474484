package display

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"

	"laptimer-ng/internal/session"
)

// Config holds the display settings.
type Config struct {
	Enable         bool          `yaml:"enable"`
	I2CAddr        uint16        `yaml:"i2c_addr"`
	UpdateInterval time.Duration `yaml:"update_interval"`
}

// StatusSource provides the snapshot drawn on each refresh.
type StatusSource interface {
	Snapshot() session.Snapshot
}

// Run initializes the OLED and redraws it until ctx is cancelled.
func Run(ctx context.Context, cfg Config, status StatusSource) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("display: periph init: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("display: open i2c bus: %w", err)
	}
	defer bus.Close()

	// The ssd1306 driver always talks to the default 0x3C address.
	if cfg.I2CAddr != 0 && cfg.I2CAddr != 0x3C {
		log.Printf("display: i2c_addr=0x%02X unsupported by driver, using 0x3C", cfg.I2CAddr)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("display: init ssd1306: %w", err)
	}
	log.Printf("display: started interval=%s", cfg.UpdateInterval)

	if err := dev.Draw(dev.Bounds(), RenderSplash(), image.Point{}); err != nil {
		log.Printf("display: splash: %v", err)
	}

	interval := cfg.UpdateInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = dev.Halt()
			return nil
		case <-ticker.C:
			img := Render(status.Snapshot())
			if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
				log.Printf("display: draw: %v", err)
			}
		}
	}
}
