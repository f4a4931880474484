//go:build linux

package buttons

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openLines requests the given BCM GPIO offsets as pulled-up inputs.
// When chipPath is empty every /dev/gpiochip* is tried in order.
func openLines(chipPath string, pins []int) ([]buttonLine, error) {
	for _, p := range pins {
		if p <= 0 {
			return nil, fmt.Errorf("invalid gpio pin %d", p)
		}
	}

	candidates := []string{}
	if chipPath != "" {
		candidates = append(candidates, chipPath)
	} else {
		candidates = append(candidates, "/dev/gpiochip0")
		entries, _ := os.ReadDir("/dev")
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, "gpiochip") {
				candidates = append(candidates, filepath.Join("/dev", name))
			}
		}
	}

	var lastErr error
	for _, path := range candidates {
		lines, err := requestAll(path, pins)
		if err == nil {
			return lines, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no usable gpiochip for pins %v: %w", pins, lastErr)
}

func requestAll(chipPath string, pins []int) ([]buttonLine, error) {
	chip, err := gpiocdev.NewChip(chipPath)
	if err != nil {
		return nil, err
	}
	defer chip.Close()

	lines := make([]buttonLine, 0, len(pins))
	for _, pin := range pins {
		line, err := chip.RequestLine(pin,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithConsumer("laptimer-ng-buttons"))
		if err != nil {
			for _, l := range lines {
				_ = l.Close()
			}
			return nil, fmt.Errorf("request line %d on %s: %w", pin, chipPath, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}
