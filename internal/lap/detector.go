// Package lap implements geofence lap detection and rolling lap statistics.
package lap

import "time"

// DefaultDebounce suppresses re-triggering on GPS jitter near the gate.
const DefaultDebounce = 10 * time.Second

// Radius cycle bounds for the radius-advance button: 5,10,...,50 then back to 5.
const (
	radiusStepM = 5.0
	radiusMaxM  = 50.0
)

// Detector is the lap trigger state machine.
//
// It is Armed when eligible to fire and in cooldown while inside the
// geofence after a trigger. A fire is suppressed for the debounce window
// after any prior trigger, and for the first window of the session: the
// trigger clock starts at construction, matching a device that boots at
// the pit wall.
type Detector struct {
	now func() time.Time

	armed       bool
	lastTrigger time.Time
	radiusM     float64
	debounce    time.Duration
}

// NewDetector returns an armed detector. now may be nil for the wall clock;
// tests inject a fake.
func NewDetector(radiusM float64, debounce time.Duration, now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Detector{
		now:         now,
		armed:       true,
		lastTrigger: now(),
		radiusM:     radiusM,
		debounce:    debounce,
	}
}

// Update runs one detection cycle against the current distance to the
// reference point. override is the sampled manual lap trigger; it both
// fires in place of a geofence entry and holds off re-arming while held.
//
// On a fire it returns true and the elapsed time since the previous
// trigger, and resets the trigger clock.
func (d *Detector) Update(distanceM float64, override bool) (bool, time.Duration) {
	now := d.now()

	// Re-arm once the geofence has been exited.
	if distanceM >= d.radiusM && !override && !d.armed {
		d.armed = true
	}

	// A distance of exactly 0 means "no valid fix yet", never "at the gate".
	inside := distanceM > 0 && distanceM <= d.radiusM
	if (inside || override) && d.armed && now.Sub(d.lastTrigger) > d.debounce {
		elapsed := now.Sub(d.lastTrigger)
		d.lastTrigger = now
		d.armed = false
		return true, elapsed
	}
	return false, 0
}

// Elapsed is the running time of the lap in progress.
func (d *Detector) Elapsed() time.Duration {
	return d.now().Sub(d.lastTrigger)
}

// Armed reports whether the detector is eligible to fire.
func (d *Detector) Armed() bool {
	return d.armed
}

// RadiusM returns the current trigger radius in meters.
func (d *Detector) RadiusM() float64 {
	return d.radiusM
}

// AdvanceRadius steps the trigger radius through the fixed
// 5,10,...,50-meter cycle, wrapping back to 5.
func (d *Detector) AdvanceRadius() {
	if d.radiusM == radiusMaxM {
		d.radiusM = 0
	}
	d.radiusM += radiusStepM
}
