package device

import (
	"sync"

	"kvaccel/regs"
	"kvaccel/utils"
)

// Access is one recorded register access.
type Access struct {
	Write bool
	Reg   regs.Register
	Value uint32
}

// Trace forwards register accesses to another Registers implementation and
// logs each of them at debug level. With recording enabled it also keeps the
// accesses in order.
type Trace struct {
	next Registers
	log  utils.SimpleLogger

	mu       sync.Mutex
	record   bool
	accesses []Access
}

var _ Registers = (*Trace)(nil)

// NewTrace wraps next.
func NewTrace(next Registers, log utils.SimpleLogger, record bool) *Trace {
	return &Trace{next: next, log: log, record: record}
}

func (t *Trace) Read(r regs.Register) uint32 {
	v := t.next.Read(r)
	if r == regs.Ctrl {
		t.log.Debugw("MMIO read", "reg", r, "value", v, "ctrl", regs.Ctrl32(v))
	} else {
		t.log.Debugw("MMIO read", "reg", r, "value", v)
	}
	t.add(Access{Reg: r, Value: v})
	return v
}

func (t *Trace) Write(r regs.Register, v uint32) {
	t.log.Debugw("MMIO write", "reg", r, "value", v)
	t.add(Access{Write: true, Reg: r, Value: v})
	t.next.Write(r, v)
}

func (t *Trace) add(a Access) {
	if !t.record {
		return
	}
	t.mu.Lock()
	t.accesses = append(t.accesses, a)
	t.mu.Unlock()
}

// Accesses returns a copy of the recorded accesses.
func (t *Trace) Accesses() []Access {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Access(nil), t.accesses...)
}

// Clear drops the recorded accesses.
func (t *Trace) Clear() {
	t.mu.Lock()
	t.accesses = nil
	t.mu.Unlock()
}
