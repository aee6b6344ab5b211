package button

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"air-analyzer/pkg/logger"
)

// SysfsPin reads a GPIO through its sysfs value file
type SysfsPin struct {
	path      string
	activeLow bool
}

// NewSysfsPin creates a pin for /sys/class/gpio/gpioN/value style paths
func NewSysfsPin(path string, activeLow bool) *SysfsPin {
	return &SysfsPin{path: path, activeLow: activeLow}
}

func (p *SysfsPin) Pressed() (bool, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return false, fmt.Errorf("read gpio %s: %w", p.path, err)
	}
	high := bytes.HasPrefix(bytes.TrimSpace(data), []byte("1"))
	return high != p.activeLow, nil
}

// RemotePin simulates a button from queued remote presses (MQTT commands or
// a device without a physical button). Each queued press is replayed as a
// level sequence: a short press is held for one sample, a long press until
// the hold time has passed.
type RemotePin struct {
	mu      sync.Mutex
	pending []Press
	holding Press
	samples int
	hold    int
}

// NewRemotePin creates a remote pin. holdSamples is how many samples a long
// press stays down; it must exceed the long-press time divided by the loop
// interval.
func NewRemotePin(holdSamples int) *RemotePin {
	return &RemotePin{hold: holdSamples}
}

// Push queues a press
func (p *RemotePin) Push(press Press) {
	if press == PressNone {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, press)
	logger.LogDebug("🔘 Remote %s press queued", press)
}

func (p *RemotePin) Pressed() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.holding == PressNone {
		if len(p.pending) == 0 {
			return false, nil
		}
		p.holding = p.pending[0]
		p.pending = p.pending[1:]
		p.samples = 0
	}

	limit := 1
	if p.holding == PressLong {
		limit = p.hold
	}
	if p.samples < limit {
		p.samples++
		return true, nil
	}

	// Release between presses
	p.holding = PressNone
	return false, nil
}

// MultiPin is pressed when any of its pins is. A failing pin does not hide
// the others; its error is returned only when no pin is pressed.
type MultiPin []Pin

func (m MultiPin) Pressed() (bool, error) {
	var firstErr error
	for _, pin := range m {
		down, err := pin.Pressed()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if down {
			return true, nil
		}
	}
	return false, firstErr
}
