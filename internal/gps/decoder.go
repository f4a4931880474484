package gps

import (
	"math"
	"strconv"
)

// bufCap bounds the line accumulator. NMEA sentences are at most 82 chars;
// anything longer is receiver chatter and will fail checksum anyway.
const bufCap = 160

// maxFields caps the comma split; excess fields are dropped, not an error.
const maxFields = 24

// Decoder turns a raw NMEA-0183 byte stream into Fix updates.
//
// Feed one byte at a time. A '$' restarts the accumulator, '\r' is ignored,
// '\n' terminates the line and triggers parsing. Every malformed line (bad
// delimiter, short or mismatched checksum, too few fields, unknown sentence
// type, void RMC status) is discarded silently with no partial Fix update;
// decoding resumes on the next '$'.
type Decoder struct {
	fix Fix

	buf [bufCap]byte
	n   int
}

// Fix returns the current fix. Fields hold their last accepted value; a
// zero fix means no sentence has ever validated.
func (d *Decoder) Fix() Fix {
	return d.fix
}

// Feed consumes one byte and returns true exactly when a complete,
// newline-terminated line was just processed, whether or not it updated
// the fix.
func (d *Decoder) Feed(c byte) bool {
	if c == '\r' {
		return false
	}

	if c == '$' {
		d.n = 0
		d.buf[d.n] = c
		d.n++
		return false
	}

	if c == '\n' {
		d.parseLine(d.buf[:d.n])
		d.n = 0
		return true
	}

	if d.n < bufCap {
		d.buf[d.n] = c
		d.n++
	}
	return false
}

func (d *Decoder) parseLine(line []byte) {
	if len(line) == 0 || line[0] != '$' {
		return
	}

	star := -1
	for i := 1; i < len(line); i++ {
		if line[i] == '*' {
			star = i
			break
		}
	}
	if star <= 1 {
		// No checksum delimiter, or an empty body.
		return
	}

	var cs byte
	for _, b := range line[1:star] {
		cs ^= b
	}
	if len(line) < star+3 {
		return
	}
	hi, ok1 := hexNibble(line[star+1])
	lo, ok2 := hexNibble(line[star+2])
	if !ok1 || !ok2 || cs != hi<<4|lo {
		return
	}

	fields := splitFields(line[1:star])
	if len(fields) == 0 {
		return
	}
	typ := fields[0]
	if len(typ) < 3 {
		return
	}

	// Talker-agnostic: GPRMC, GNRMC, ... all match on the suffix.
	switch typ[len(typ)-3:] {
	case "RMC":
		d.parseRMC(fields)
	case "GGA":
		d.parseGGA(fields)
	}
}

// RMC: $..RMC, time, status, lat, N/S, lon, E/W, speed(knots), course, date, ...
func (d *Decoder) parseRMC(f []string) {
	if len(f) < 10 {
		return
	}
	if f[2] != "A" {
		// Void fix: ignore the whole sentence, no partial update.
		return
	}

	d.parseTime(f[1])
	d.setLatLon(f[3], f[4], f[5], f[6])
	if f[7] != "" {
		if knots, err := strconv.ParseFloat(f[7], 64); err == nil {
			d.fix.SpeedKmh = knots * 1.852
		}
	}
	d.parseDate(f[9])
	d.fix.Valid = true
}

// GGA: $..GGA, time, lat, N/S, lon, E/W, fixq, sats, hdop, alt(m), ...
//
// GGA carries no validity flag in this design; empty fields simply leave
// the prior values in place.
func (d *Decoder) parseGGA(f []string) {
	if len(f) < 10 {
		return
	}

	d.parseTime(f[1])
	d.setLatLon(f[2], f[3], f[4], f[5])
	if f[7] != "" {
		if sats, err := strconv.Atoi(f[7]); err == nil {
			d.fix.Satellites = sats
		}
	}
	if f[9] != "" {
		if alt, err := strconv.ParseFloat(f[9], 64); err == nil {
			d.fix.AltitudeM = alt
		}
	}
}

// setLatLon updates the position only when both raw fields are present.
func (d *Decoder) setLatLon(lat, ns, lon, ew string) {
	if lat == "" || lon == "" {
		return
	}
	la, ok1 := nmeaToDeg(lat)
	lo, ok2 := nmeaToDeg(lon)
	if !ok1 || !ok2 {
		return
	}
	if ns == "S" {
		la = -la
	}
	if ew == "W" {
		lo = -lo
	}
	d.fix.LatDeg = la
	d.fix.LonDeg = lo
}

// parseTime reads fixed-width hhmmss; a sub-second fraction is ignored.
func (d *Decoder) parseTime(s string) {
	if len(s) < 6 {
		return
	}
	h, ok1 := atoi2(s[0:2])
	m, ok2 := atoi2(s[2:4])
	sec, ok3 := atoi2(s[4:6])
	if !ok1 || !ok2 || !ok3 {
		return
	}
	d.fix.Hour = h
	d.fix.Minute = m
	d.fix.Second = sec
}

// parseDate reads fixed-width ddmmyy with a 1980 century pivot.
func (d *Decoder) parseDate(s string) {
	if len(s) < 6 {
		return
	}
	dd, ok1 := atoi2(s[0:2])
	mm, ok2 := atoi2(s[2:4])
	yy, ok3 := atoi2(s[4:6])
	if !ok1 || !ok2 || !ok3 {
		return
	}
	if yy >= 80 {
		d.fix.Year = 1900 + yy
	} else {
		d.fix.Year = 2000 + yy
	}
	d.fix.Month = mm
	d.fix.Day = dd
}

// nmeaToDeg converts ddmm.mmmm / dddmm.mmmm to decimal degrees.
func nmeaToDeg(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	deg := math.Floor(v / 100)
	minutes := v - deg*100
	return deg + minutes/60, true
}

func splitFields(body []byte) []string {
	fields := make([]string, 0, maxFields)
	start := 0
	for i := 0; i <= len(body); i++ {
		if i == len(body) || body[i] == ',' {
			if len(fields) == maxFields {
				break
			}
			fields = append(fields, string(body[start:i]))
			start = i + 1
		}
	}
	return fields
}

func atoi2(s string) (int, bool) {
	v := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		v = v*10 + int(s[i]-'0')
	}
	return v, true
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
