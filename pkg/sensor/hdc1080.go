package sensor

import (
	"encoding/binary"
	"fmt"
	"time"

	"tinygo.org/x/drivers"
)

// HDC1080 registers and identifiers
const (
	HDC1080Address = 0x40

	hdc1080RegTemperature   = 0x00
	hdc1080RegConfiguration = 0x02
	hdc1080RegManufacturer  = 0xFE

	// Acquire temperature and humidity in one conversion, 14-bit each
	hdc1080ConfigSequential = 0x1000
	hdc1080ManufacturerTI   = 0x5449

	hdc1080ConversionTime = 15 * time.Millisecond
)

// HDC1080 drives a TI HDC1080 over any tinygo-style I2C bus
type HDC1080 struct {
	bus     drivers.I2C
	address uint16
	sleep   func(time.Duration)
	buf     [4]byte
}

// NewHDC1080 creates a driver for the sensor at address on bus
func NewHDC1080(bus drivers.I2C, address uint16) *HDC1080 {
	if address == 0 {
		address = HDC1080Address
	}
	return &HDC1080{bus: bus, address: address, sleep: time.Sleep}
}

func (d *HDC1080) Name() string { return "hdc1080" }

// Configure checks the manufacturer id and selects sequential acquisition
func (d *HDC1080) Configure() error {
	if err := d.bus.Tx(d.address, []byte{hdc1080RegManufacturer}, d.buf[:2]); err != nil {
		return fmt.Errorf("read manufacturer id: %w", err)
	}
	if id := binary.BigEndian.Uint16(d.buf[:2]); id != hdc1080ManufacturerTI {
		return fmt.Errorf("unexpected manufacturer id 0x%04X", id)
	}

	config := []byte{hdc1080RegConfiguration, hdc1080ConfigSequential >> 8, hdc1080ConfigSequential & 0xFF}
	if err := d.bus.Tx(d.address, config, nil); err != nil {
		return fmt.Errorf("write configuration: %w", err)
	}
	return nil
}

// Read triggers a conversion and decodes both channels
func (d *HDC1080) Read() (temperature, humidity float64, err error) {
	if err := d.bus.Tx(d.address, []byte{hdc1080RegTemperature}, nil); err != nil {
		return 0, 0, fmt.Errorf("trigger conversion: %w", err)
	}
	d.sleep(hdc1080ConversionTime)
	if err := d.bus.Tx(d.address, nil, d.buf[:4]); err != nil {
		return 0, 0, fmt.Errorf("read conversion: %w", err)
	}

	rawT := binary.BigEndian.Uint16(d.buf[0:2])
	rawH := binary.BigEndian.Uint16(d.buf[2:4])
	temperature = float64(rawT)/65536.0*165.0 - 40.0
	humidity = float64(rawH) / 65536.0 * 100.0
	return temperature, humidity, nil
}
