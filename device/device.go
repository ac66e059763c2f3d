// Package device provides access to the register window of the key/value
// cache accelerator: memory mapped hardware, a simulated device and a tracing
// wrapper usable over either.
package device

import (
	"errors"

	"kvaccel/regs"
)

var (
	// ErrUnaligned is returned when a base address is not 32 bit aligned.
	ErrUnaligned = errors.New("device: base address is not 4-byte aligned")
	// ErrOutOfRange is returned when the register window does not fit the address space.
	ErrOutOfRange = errors.New("device: base address out of range")
)

//go:generate mockgen -destination=../mocks/mock_registers.go -package=mocks kvaccel/device Registers

// Registers is the capability to access the four device registers. Every
// call is exactly one full width 32 bit access; implementations never cache
// values between calls.
type Registers interface {
	Read(r regs.Register) uint32
	Write(r regs.Register, v uint32)
}

// Snapshot is a point in time copy of the register window, for display only.
type Snapshot struct {
	ValueLo uint32
	ValueHi uint32
	Key     uint32
	Ctrl    regs.Ctrl32
}
