package exerciser

import (
	"fmt"

	"kvaccel/console"
	"kvaccel/device"
	"kvaccel/regs"
)

// Sanity test patterns
const (
	PatternLo  uint32 = 0xA5A5A5A5
	PatternHi  uint32 = 0x5A5A5A5A
	PatternKey uint32 = 0xCAFEBABE
)

// Sanity checks raw register access: it writes a pattern into every register,
// issues a NOOP and reads the window back. No command runs.
func Sanity(r device.Registers, out console.Console) (device.Snapshot, error) {
	var s device.Snapshot
	w := func(format string, args ...any) error {
		return out.WriteConsole(fmt.Sprintf(format, args...))
	}

	if err := w("MMIO sanity start"); err != nil {
		return s, err
	}
	writes := []struct {
		reg regs.Register
		val uint32
	}{
		{regs.ValueLo, PatternLo},
		{regs.ValueHi, PatternHi},
		{regs.Key, PatternKey},
		{regs.Ctrl, uint32(regs.Encode(regs.OpNoop))},
	}
	for _, wr := range writes {
		if err := w("Write %s...", wr.reg); err != nil {
			return s, err
		}
		r.Write(wr.reg, wr.val)
		if err := w("Write %s ok", wr.reg); err != nil {
			return s, err
		}
	}

	s.ValueLo = r.Read(regs.ValueLo)
	if err := w("Read %s=%#x", regs.ValueLo, s.ValueLo); err != nil {
		return s, err
	}
	s.ValueHi = r.Read(regs.ValueHi)
	if err := w("Read %s=%#x", regs.ValueHi, s.ValueHi); err != nil {
		return s, err
	}
	s.Key = r.Read(regs.Key)
	if err := w("Read %s=%#x", regs.Key, s.Key); err != nil {
		return s, err
	}
	s.Ctrl = regs.Ctrl32(r.Read(regs.Ctrl))
	busy := 0
	if s.Ctrl.Busy() {
		busy = 1
	}
	if err := w("Read %s busy=%d op=%#x", regs.Ctrl, busy, uint32(s.Ctrl.Op())); err != nil {
		return s, err
	}
	return s, w("MMIO sanity done")
}
