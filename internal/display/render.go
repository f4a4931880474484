// Package display drives a 128x64 SSD1306 OLED over I2C with the live
// timing screen. Rendering is split from the device so the layout can
// be tested without hardware.
package display

import (
	"fmt"
	"image"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"laptimer-ng/internal/session"
)

const (
	width  = 128
	height = 64
)

// fmtLap renders a lap duration as m:ss.t, or dashes when unset.
func fmtLap(d time.Duration) string {
	if d <= 0 {
		return "-:--.-"
	}
	tenths := d.Round(100 * time.Millisecond)
	m := int(tenths / time.Minute)
	s := tenths % time.Minute
	return fmt.Sprintf("%d:%04.1f", m, s.Seconds())
}

// Render draws the timing screen for snap into a fresh 1-bit image.
func Render(snap session.Snapshot) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, width, height))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	line := func(y int, s string) {
		drawer.Dot = fixed.P(0, y)
		drawer.DrawBytes([]byte(s))
	}

	if !snap.Fix.Valid {
		line(26, "LAP TIMER")
		line(39, "Waiting for fix...")
		line(52, fmt.Sprintf("R:%2.0fm", snap.RadiusM))
		return img
	}

	line(13, fmt.Sprintf("LAP%3d  %s", snap.Lap, fmtLap(snap.CurrentLap)))
	line(26, fmt.Sprintf("LST %s  %s", fmtLap(snap.LastLap), fmtLap(snap.PrevLap)))
	line(39, fmt.Sprintf("BST %s #%d", fmtLap(snap.BestLap), snap.BestLapNum))
	line(52, fmt.Sprintf("%5.1fkm/h R:%2.0fm", snap.Fix.SpeedKmh, snap.RadiusM))
	return img
}

// RenderSplash draws the startup screen.
func RenderSplash() *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, width, height))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	drawer.Dot = fixed.P(25, 26)
	drawer.DrawBytes([]byte("laptimer-ng"))
	drawer.Dot = fixed.P(15, 43)
	drawer.DrawBytes([]byte("Looking for"))
	drawer.Dot = fixed.P(45, 56)
	drawer.DrawBytes([]byte("sats"))
	return img
}
