//go:build linux

package sensor

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// I2C_SLAVE ioctl from linux/i2c-dev.h
const i2cSlave = 0x0703

// LinuxI2C is a /dev/i2c-N character device satisfying drivers.I2C
type LinuxI2C struct {
	mu      sync.Mutex
	file    *os.File
	address uint16
	bound   bool
}

// OpenI2C opens the bus device at path
func OpenI2C(path string) (*LinuxI2C, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %s: %w", path, err)
	}
	return &LinuxI2C{file: f}, nil
}

// Tx writes w then reads len(r) bytes from the device at addr
func (b *LinuxI2C) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.bound || b.address != addr {
		if err := unix.IoctlSetInt(int(b.file.Fd()), i2cSlave, int(addr)); err != nil {
			return fmt.Errorf("select i2c address 0x%02X: %w", addr, err)
		}
		b.address = addr
		b.bound = true
	}

	if len(w) > 0 {
		if _, err := b.file.Write(w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		if _, err := io.ReadFull(b.file, r); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the bus device
func (b *LinuxI2C) Close() error {
	return b.file.Close()
}
