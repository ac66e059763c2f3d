package regs

import "fmt"

// Op is the 3 bit command field of the control word.
type Op uint32

// op codes
const (
	OpNoop   Op = 0
	OpRead   Op = 1
	OpUpsert Op = 2
	OpDelete Op = 3
)

func (o Op) String() string {
	switch o {
	case OpNoop:
		return "NOOP"
	case OpRead:
		return "READ"
	case OpUpsert:
		return "UPSERT"
	case OpDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("OP(%d)", uint32(o))
	}
}

// control word layout. Values here are bits, not the
// powers of 2
const busyBit = 0
const opShift = 1
const hitBit = 4

// masks
const (
	BusyMask Ctrl32 = 1 << busyBit
	OpMask   Ctrl32 = 0x7 << opShift
	HitMask  Ctrl32 = 1 << hitBit

	// IdleMask covers the bits that must all be clear before a result may be read.
	IdleMask = BusyMask | OpMask
)

// Ctrl32 keeps a control/status word as read from or written to CTRL.
type Ctrl32 uint32

// Encode returns the word written to CTRL to issue op. Busy is set by the hardware.
func Encode(op Op) Ctrl32 {
	return Ctrl32(op&0x7) << opShift
}

// Busy returns the BUSY flag
func (c Ctrl32) Busy() bool {
	return c.getFlag(busyBit)
}

// Hit returns the HIT flag
func (c Ctrl32) Hit() bool {
	return c.getFlag(hitBit)
}

// Op returns the current or last op field
func (c Ctrl32) Op() Op {
	return Op((c >> opShift) & 0x7)
}

// Idle reports whether BUSY is clear and the op field reverted to NOOP.
func (c Ctrl32) Idle() bool {
	return c&IdleMask == 0
}

// With returns c with the given flags set or cleared.
func (c Ctrl32) With(busy bool, op Op, hit bool) Ctrl32 {
	c &^= BusyMask | OpMask | HitMask
	c |= Encode(op)
	c.setFlag(busyBit, busy)
	c.setFlag(hitBit, hit)
	return c
}

// generic get flag function
func (c Ctrl32) getFlag(flag uint) bool {
	return c&(1<<flag) != 0
}

// generic set flag function
func (c *Ctrl32) setFlag(flag uint, status bool) {
	if status {
		*c |= 1 << flag
	} else {
		*c &^= 1 << flag
	}
}

// String renders the decoded word, e.g. "busy op=READ hit".
func (c Ctrl32) String() string {
	var flags string
	switch {
	case c.Busy():
		flags = "busy"
	case c.Idle():
		flags = "idle"
	default:
		flags = "settling"
	}
	flags += " op=" + c.Op().String()
	if c.Hit() {
		flags += " hit"
	}
	return flags
}
