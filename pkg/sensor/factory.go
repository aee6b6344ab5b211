package sensor

import (
	"fmt"
	"io"
	"time"

	"air-analyzer/pkg/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewDriver builds the configured driver. The returned closer releases the
// bus and is never nil.
func NewDriver(settings config.SensorSettings) (Driver, io.Closer, error) {
	switch settings.Driver {
	case "simulated":
		return NewSimulated(time.Now().UnixNano()), nopCloser{}, nil
	case "hdc1080", "shtc3":
	default:
		return nil, nil, fmt.Errorf("unknown sensor driver %q", settings.Driver)
	}

	bus, err := OpenI2C(settings.I2CBus)
	if err != nil {
		return nil, nil, err
	}
	if settings.Driver == "shtc3" {
		return NewSHTC3(bus), bus, nil
	}
	return NewHDC1080(bus, settings.Address), bus, nil
}
