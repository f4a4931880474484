package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the reference gate: the start/finish line the device was
// originally set up for. Overridden in the field with the set-origin button.
const (
	DefaultReferenceLatDeg = 35.3698692322
	DefaultReferenceLonDeg = 138.9336547852
)

type Config struct {
	GPS       GPSConfig       `yaml:"gps"`
	Lap       LapConfig       `yaml:"lap"`
	Clock     ClockConfig     `yaml:"clock"`
	Buttons   ButtonsConfig   `yaml:"buttons"`
	Storage   StorageConfig   `yaml:"storage"`
	Display   DisplayConfig   `yaml:"display"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Web       WebConfig       `yaml:"web"`
	UDP       UDPConfig       `yaml:"udp"`
	Sim       SimConfig       `yaml:"sim"`
	Replay    ReplayConfig    `yaml:"replay"`
}

type GPSConfig struct {
	Enable bool   `yaml:"enable"`
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type LapConfig struct {
	ReferenceLatDeg float64       `yaml:"reference_lat_deg"`
	ReferenceLonDeg float64       `yaml:"reference_lon_deg"`
	TriggerRadiusM  float64       `yaml:"trigger_radius_m"`
	Debounce        time.Duration `yaml:"debounce"`
	CycleInterval   time.Duration `yaml:"cycle_interval"`
}

type ClockConfig struct {
	// UTCOffsetHours shifts GPS time to local time on the display and in
	// lap records. The original device ran in JST.
	UTCOffsetHours *int `yaml:"utc_offset_hours"`
}

type ButtonsConfig struct {
	Enable    bool   `yaml:"enable"`
	Chip      string `yaml:"chip"`
	OriginPin int    `yaml:"origin_pin"`
	RadiusPin int    `yaml:"radius_pin"`
	LapPin    int    `yaml:"lap_pin"`
}

type StorageConfig struct {
	CSV    CSVConfig    `yaml:"csv"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

type CSVConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type SQLiteConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type DisplayConfig struct {
	Enable         bool          `yaml:"enable"`
	I2CAddr        uint16        `yaml:"i2c_addr"`
	UpdateInterval time.Duration `yaml:"update_interval"`
}

type TelemetryConfig struct {
	Enable      bool   `yaml:"enable"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

type UDPConfig struct {
	Enable   bool          `yaml:"enable"`
	Dest     string        `yaml:"dest"`
	Interval time.Duration `yaml:"interval"`
}

type SimConfig struct {
	Enable   bool          `yaml:"enable"`
	RadiusM  float64       `yaml:"radius_m"`
	SpeedKmh float64       `yaml:"speed_kmh"`
	Interval time.Duration `yaml:"interval"`
}

type ReplayConfig struct {
	Enable bool    `yaml:"enable"`
	Path   string  `yaml:"path"`
	Speed  float64 `yaml:"speed"`
	Loop   bool    `yaml:"loop"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.GPS.Baud == 0 {
		cfg.GPS.Baud = 115200
	}

	if cfg.Lap.ReferenceLatDeg == 0 && cfg.Lap.ReferenceLonDeg == 0 {
		cfg.Lap.ReferenceLatDeg = DefaultReferenceLatDeg
		cfg.Lap.ReferenceLonDeg = DefaultReferenceLonDeg
	}
	if cfg.Lap.TriggerRadiusM == 0 {
		cfg.Lap.TriggerRadiusM = 5
	}
	r := cfg.Lap.TriggerRadiusM
	if r < 5 || r > 50 || r != float64(int(r)) || int(r)%5 != 0 {
		return fmt.Errorf("lap.trigger_radius_m must be one of 5,10,...,50")
	}
	if cfg.Lap.Debounce == 0 {
		cfg.Lap.Debounce = 10 * time.Second
	}
	if cfg.Lap.Debounce < 0 {
		return fmt.Errorf("lap.debounce must be > 0")
	}
	if cfg.Lap.CycleInterval <= 0 {
		cfg.Lap.CycleInterval = 10 * time.Millisecond
	}

	if cfg.Clock.UTCOffsetHours == nil {
		jst := 9
		cfg.Clock.UTCOffsetHours = &jst
	}
	if off := *cfg.Clock.UTCOffsetHours; off < -23 || off > 23 {
		return fmt.Errorf("clock.utc_offset_hours must be within -23..23")
	}

	if cfg.Buttons.Enable {
		if cfg.Buttons.OriginPin <= 0 || cfg.Buttons.RadiusPin <= 0 || cfg.Buttons.LapPin <= 0 {
			return fmt.Errorf("buttons.origin_pin, buttons.radius_pin and buttons.lap_pin are required when buttons.enable is true")
		}
	}

	if cfg.Storage.CSV.Enable && strings.TrimSpace(cfg.Storage.CSV.Path) == "" {
		cfg.Storage.CSV.Path = "laps.csv"
	}
	if cfg.Storage.SQLite.Enable && strings.TrimSpace(cfg.Storage.SQLite.Path) == "" {
		cfg.Storage.SQLite.Path = "laps.db"
	}

	if cfg.Display.Enable {
		if cfg.Display.I2CAddr == 0 {
			cfg.Display.I2CAddr = 0x3C
		}
		if cfg.Display.UpdateInterval <= 0 {
			cfg.Display.UpdateInterval = 100 * time.Millisecond
		}
	}

	if cfg.Telemetry.Enable {
		if cfg.Telemetry.Broker == "" {
			cfg.Telemetry.Broker = "tcp://127.0.0.1:1883"
		}
		if cfg.Telemetry.ClientID == "" {
			cfg.Telemetry.ClientID = "laptimer-ng"
		}
		if cfg.Telemetry.TopicPrefix == "" {
			cfg.Telemetry.TopicPrefix = "laptimer"
		}
	}

	if cfg.Web.Enable && cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	if cfg.UDP.Enable {
		if cfg.UDP.Dest == "" {
			return fmt.Errorf("udp.dest is required when udp.enable is true")
		}
		if cfg.UDP.Interval <= 0 {
			cfg.UDP.Interval = 1 * time.Second
		}
	}

	// Exactly one byte source can drive the decoder.
	sources := 0
	for _, on := range []bool{cfg.GPS.Enable, cfg.Sim.Enable, cfg.Replay.Enable} {
		if on {
			sources++
		}
	}
	if sources > 1 {
		return fmt.Errorf("gps, sim and replay are mutually exclusive input sources")
	}

	if cfg.Sim.Enable {
		if cfg.Sim.RadiusM <= 0 {
			cfg.Sim.RadiusM = 200
		}
		if cfg.Sim.SpeedKmh <= 0 {
			cfg.Sim.SpeedKmh = 60
		}
		if cfg.Sim.Interval <= 0 {
			cfg.Sim.Interval = 100 * time.Millisecond
		}
	}

	if cfg.Replay.Enable {
		if cfg.Replay.Path == "" {
			return fmt.Errorf("replay.path is required when replay.enable is true")
		}
		if cfg.Replay.Speed == 0 {
			cfg.Replay.Speed = 1
		}
		if cfg.Replay.Speed < 0 {
			return fmt.Errorf("replay.speed must be > 0")
		}
	}

	return nil
}
