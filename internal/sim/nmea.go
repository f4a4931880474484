package sim

import (
	"fmt"
	"math"
	"time"
)

// formatLat renders decimal degrees as ddmm.mmmm plus hemisphere.
func formatLat(deg float64) (string, string) {
	hemi := "N"
	if deg < 0 {
		hemi = "S"
		deg = -deg
	}
	d := math.Floor(deg)
	return fmt.Sprintf("%02.0f%07.4f", d, (deg-d)*60), hemi
}

// formatLon renders decimal degrees as dddmm.mmmm plus hemisphere.
func formatLon(deg float64) (string, string) {
	hemi := "E"
	if deg < 0 {
		hemi = "W"
		deg = -deg
	}
	d := math.Floor(deg)
	return fmt.Sprintf("%03.0f%07.4f", d, (deg-d)*60), hemi
}

// sentence wraps payload in $...*hh\r\n framing with the XOR checksum.
func sentence(payload string) []byte {
	var cs byte
	for i := 0; i < len(payload); i++ {
		cs ^= payload[i]
	}
	return []byte(fmt.Sprintf("$%s*%02X\r\n", payload, cs))
}

// rmcSentence builds a valid GPRMC sentence for the given UTC time.
func rmcSentence(now time.Time, latDeg, lonDeg, speedKmh float64) []byte {
	lat, ns := formatLat(latDeg)
	lon, ew := formatLon(lonDeg)
	payload := fmt.Sprintf("GPRMC,%02d%02d%02d,A,%s,%s,%s,%s,%.1f,,%02d%02d%02d,,",
		now.Hour(), now.Minute(), now.Second(),
		lat, ns, lon, ew,
		speedKmh/1.852,
		now.Day(), int(now.Month()), now.Year()%100)
	return sentence(payload)
}

// ggaSentence builds a valid GPGGA sentence for the given UTC time.
func ggaSentence(now time.Time, latDeg, lonDeg, altM float64) []byte {
	lat, ns := formatLat(latDeg)
	lon, ew := formatLon(lonDeg)
	payload := fmt.Sprintf("GPGGA,%02d%02d%02d,%s,%s,%s,%s,1,08,0.9,%.1f,M,,M,,",
		now.Hour(), now.Minute(), now.Second(),
		lat, ns, lon, ew, altM)
	return sentence(payload)
}
