//go:build !linux

package sensor

import "fmt"

// LinuxI2C is only available on Linux
type LinuxI2C struct{}

// OpenI2C always fails off Linux
func OpenI2C(path string) (*LinuxI2C, error) {
	return nil, fmt.Errorf("i2c bus %s: not supported on this platform", path)
}

func (b *LinuxI2C) Tx(addr uint16, w, r []byte) error {
	return fmt.Errorf("i2c not supported on this platform")
}

func (b *LinuxI2C) Close() error { return nil }
