// Package geo provides the great-circle distance used for geofence checks.
package geo

import "math"

// earthRadiusM is the mean Earth radius used by the haversine formula.
const earthRadiusM = 6371000.0

// Distance returns the haversine distance in meters between two
// latitude/longitude pairs given in decimal degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dp := (lat2 - lat1) * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180

	sinLat := math.Sin(dp / 2)
	sinLon := math.Sin(dl / 2)

	a := sinLat*sinLat + math.Cos(p1)*math.Cos(p2)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}
