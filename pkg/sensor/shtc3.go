package sensor

import (
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/shtc3"
)

// SHTC3 adapts the tinygo SHTC3 driver. The chip sleeps between reads.
type SHTC3 struct {
	dev shtc3.Device
}

// NewSHTC3 creates a driver on bus (fixed address 0x70)
func NewSHTC3(bus drivers.I2C) *SHTC3 {
	return &SHTC3{dev: shtc3.New(bus)}
}

func (d *SHTC3) Name() string { return "shtc3" }

// Configure wakes the chip once to check it answers
func (d *SHTC3) Configure() error {
	if err := d.dev.WakeUp(); err != nil {
		return err
	}
	return d.dev.Sleep()
}

// Read wakes, measures and puts the chip back to sleep
func (d *SHTC3) Read() (temperature, humidity float64, err error) {
	if err := d.dev.WakeUp(); err != nil {
		return 0, 0, err
	}
	defer func() { _ = d.dev.Sleep() }()

	milliC, rhx100, err := d.dev.ReadTemperatureHumidity()
	if err != nil {
		return 0, 0, err
	}
	return float64(milliC) / 1000.0, float64(rhx100) / 100.0, nil
}
