//go:build !linux

package device

import (
	"errors"

	"kvaccel/regs"
)

// DefaultMemDevice is the physical memory device mapped by OpenMMIO.
const DefaultMemDevice = "/dev/mem"

var errNoMMIO = errors.New("device: memory mapped access is only supported on linux")

// MMIO is unavailable on this platform.
type MMIO struct{}

var _ Registers = (*MMIO)(nil)

// OpenMMIO always fails on this platform.
func OpenMMIO(string, uint64) (*MMIO, error) {
	return nil, errNoMMIO
}

func (m *MMIO) Read(regs.Register) uint32   { panic(errNoMMIO) }
func (m *MMIO) Write(regs.Register, uint32) { panic(errNoMMIO) }
func (m *MMIO) Base() uint64                { return 0 }
func (m *MMIO) Close() error                { return nil }
