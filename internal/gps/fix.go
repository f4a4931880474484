package gps

// Fix is the current position/velocity/time solution. It is owned by the
// Decoder and overwritten field-by-field as accepted sentences arrive:
// RMC and GGA each carry a disjoint subset, and fields absent from a
// sentence keep their previous value.
type Fix struct {
	LatDeg     float64 `json:"lat_deg"`
	LonDeg     float64 `json:"lon_deg"`
	AltitudeM  float64 `json:"altitude_m"`
	SpeedKmh   float64 `json:"speed_kmh"`
	Satellites int     `json:"satellites"`

	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`

	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`

	// Valid is set once an RMC sentence with status 'A' has been accepted.
	Valid bool `json:"valid"`
}
