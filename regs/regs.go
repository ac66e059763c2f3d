package regs

/**
Register layout of the key/value cache accelerator.
Four 32 bit registers at fixed byte offsets from the device base address.
*/

import "fmt"

// Register is a byte offset from the device base address.
type Register uint32

// register offsets
const (
	ValueLo Register = 0x00 // value, low word (RW)
	ValueHi Register = 0x04 // value, high word (RW)
	Key     Register = 0x08 // key (W)
	Ctrl    Register = 0x0C // op on write, status on read (RW)
)

// WindowSize is the size of the register window in bytes.
const WindowSize = 0x10

// All lists the registers in address order.
var All = [...]Register{ValueLo, ValueHi, Key, Ctrl}

// Valid reports whether r is one of the four device registers.
func (r Register) Valid() bool {
	switch r {
	case ValueLo, ValueHi, Key, Ctrl:
		return true
	}
	return false
}

func (r Register) String() string {
	switch r {
	case ValueLo:
		return "VALUE_LO"
	case ValueHi:
		return "VALUE_HI"
	case Key:
		return "KEY"
	case Ctrl:
		return "CTRL"
	default:
		return fmt.Sprintf("REG(%#02x)", uint32(r))
	}
}

// SplitValue splits a 64 bit value into the VALUE_LO and VALUE_HI words.
func SplitValue(v uint64) (lo, hi uint32) {
	return uint32(v & 0xFFFFFFFF), uint32(v >> 32)
}

// JoinValue reassembles a 64 bit value from its VALUE_LO and VALUE_HI words.
func JoinValue(lo, hi uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}
