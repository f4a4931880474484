package sim

import (
	"math"
	"time"
)

// Meters per degree of latitude (60 NM per degree).
const metersPerDegLat = 1852.0 * 60.0

// Track is a deterministic circular course. The circle is offset north of
// the gate so that every orbit passes exactly through the gate point,
// producing one lap crossing per period.
type Track struct {
	GateLatDeg float64
	GateLonDeg float64
	RadiusM    float64
	SpeedKmh   float64
}

// Period returns the time one orbit takes at the configured speed.
func (t Track) Period() time.Duration {
	radius := t.RadiusM
	if radius <= 0 {
		radius = 200
	}
	speed := t.SpeedKmh
	if speed <= 0 {
		speed = 60
	}
	circumferenceM := 2 * math.Pi * radius
	secs := circumferenceM / (speed / 3.6)
	return time.Duration(secs * float64(time.Second))
}

// Position returns the position at elapsed time since the start of the
// run. At elapsed 0 (and every Period() thereafter) the position is the
// gate itself.
func (t Track) Position(elapsed time.Duration) (latDeg, lonDeg float64) {
	radius := t.RadiusM
	if radius <= 0 {
		radius = 200
	}

	period := t.Period()
	phase := math.Mod(elapsed.Seconds(), period.Seconds()) / period.Seconds()
	w := 2 * math.Pi * phase

	radiusDeg := radius / metersPerDegLat
	centerLat := t.GateLatDeg + radiusDeg

	latDeg = centerLat - radiusDeg*math.Cos(w)
	lonDeg = t.GateLonDeg + (radiusDeg*math.Sin(w))/math.Cos(t.GateLatDeg*math.Pi/180.0)
	return latDeg, lonDeg
}
