//go:build !linux

package buttons

import "fmt"

// Stub implementation for non-Linux platforms.
func openLines(chipPath string, pins []int) ([]buttonLine, error) {
	return nil, fmt.Errorf("gpio unsupported on this platform")
}
