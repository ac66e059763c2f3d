package device

import (
	"fmt"
	"sync"

	"kvaccel/regs"
	"kvaccel/utils"
)

// DefaultLatency is the number of CTRL reads a simulated command reports busy.
const DefaultLatency = 2

// Sim is a register accurate model of the accelerator. Writing an op into
// CTRL latches the operands and sets BUSY; every following CTRL read is one
// device cycle. Once the latency has elapsed the command runs against the
// Store, BUSY clears, the op field reverts to NOOP and HIT reports the outcome.
type Sim struct {
	mu sync.Mutex

	// Registers -> see regs for the layout
	valueLo uint32
	valueHi uint32
	key     uint32
	ctrl    regs.Ctrl32

	// command in flight and cycles left until it completes
	pending   regs.Op
	countdown int
	settling  bool

	latency  int
	capacity int
	stuck    bool
	settle   bool

	store Store
	log   utils.SimpleLogger
}

var _ Registers = (*Sim)(nil)

// SimOption configures a simulated device.
type SimOption func(*Sim)

// WithLatency sets how many CTRL reads report BUSY before a command completes.
func WithLatency(n int) SimOption {
	return func(s *Sim) { s.latency = max(n, 0) }
}

// WithCapacity limits the number of entries; an upsert of a new key into a
// full device misses. Zero means unlimited.
func WithCapacity(n int) SimOption {
	return func(s *Sim) { s.capacity = max(n, 0) }
}

// WithStore replaces the default in-memory store.
func WithStore(st Store) SimOption {
	return func(s *Sim) { s.store = st }
}

// Stuck makes the device hold BUSY forever once a command is issued.
func Stuck() SimOption {
	return func(s *Sim) { s.stuck = true }
}

// WithSettle keeps the op field set for one extra CTRL read after BUSY clears.
func WithSettle() SimOption {
	return func(s *Sim) { s.settle = true }
}

// WithSimLogger sets the logger used for device side events.
func WithSimLogger(l utils.SimpleLogger) SimOption {
	return func(s *Sim) { s.log = l }
}

// NewSim returns a reset simulated device
func NewSim(opts ...SimOption) *Sim {
	s := &Sim{
		latency: DefaultLatency,
		log:     utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewMemStore()
	}
	return s
}

// Read returns the register value. A CTRL read advances the device one cycle.
func (s *Sim) Read(r regs.Register) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r {
	case regs.ValueLo:
		return s.valueLo
	case regs.ValueHi:
		return s.valueHi
	case regs.Key:
		return s.key
	case regs.Ctrl:
		s.step()
		return uint32(s.ctrl)
	default:
		panic(fmt.Sprintf("sim: invalid read at %s", r))
	}
}

// Write latches a register. Writes while the device is busy are dropped.
func (s *Sim) Write(r regs.Register, v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !r.Valid() {
		panic(fmt.Sprintf("sim: invalid write at %s", r))
	}
	if s.ctrl.Busy() {
		s.log.Warnw("Write while busy dropped", "reg", r, "value", v)
		return
	}

	switch r {
	case regs.ValueLo:
		s.valueLo = v
	case regs.ValueHi:
		s.valueHi = v
	case regs.Key:
		s.key = v
	case regs.Ctrl:
		s.issue(regs.Ctrl32(v).Op())
	}
}

// start a command: latch the op and go busy
func (s *Sim) issue(op regs.Op) {
	if op == regs.OpNoop {
		return
	}
	s.pending = op
	s.countdown = s.latency
	s.settling = false
	s.ctrl = s.ctrl.With(true, op, false)
}

// Step advances the device by one cycle without a register access.
func (s *Sim) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step()
}

func (s *Sim) step() {
	if s.settling {
		s.settling = false
		s.ctrl = s.ctrl.With(false, regs.OpNoop, s.ctrl.Hit())
		return
	}
	if !s.ctrl.Busy() || s.stuck {
		return
	}
	if s.countdown > 0 {
		s.countdown--
		return
	}

	hit := s.execute(s.pending)
	if s.settle {
		s.settling = true
		s.ctrl = s.ctrl.With(false, s.pending, hit)
	} else {
		s.ctrl = s.ctrl.With(false, regs.OpNoop, hit)
	}
	s.pending = regs.OpNoop
}

// execute runs a command against the store and reports the HIT outcome.
func (s *Sim) execute(op regs.Op) bool {
	switch op {
	case regs.OpRead:
		v, ok, err := s.store.Get(s.key)
		if err != nil {
			s.log.Errorw("Store read failed", "key", s.key, "err", err)
			return false
		}
		if ok {
			s.valueLo, s.valueHi = regs.SplitValue(v)
		}
		return ok
	case regs.OpUpsert:
		_, exists, err := s.store.Get(s.key)
		if err != nil {
			s.log.Errorw("Store read failed", "key", s.key, "err", err)
			return false
		}
		if !exists && s.capacity > 0 && s.store.Len() >= s.capacity {
			s.log.Debugw("Upsert rejected, device full", "key", s.key, "capacity", s.capacity)
			return false
		}
		if err := s.store.Put(s.key, regs.JoinValue(s.valueLo, s.valueHi)); err != nil {
			s.log.Errorw("Store write failed", "key", s.key, "err", err)
			return false
		}
		return true
	case regs.OpDelete:
		ok, err := s.store.Delete(s.key)
		if err != nil {
			s.log.Errorw("Store delete failed", "key", s.key, "err", err)
			return false
		}
		return ok
	default:
		// unknown op codes complete without effect
		return false
	}
}

// Reset clears the registers and drops any command in flight. Stored entries are kept.
func (s *Sim) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.valueLo, s.valueHi, s.key = 0, 0, 0
	s.ctrl = 0
	s.pending = regs.OpNoop
	s.countdown = 0
	s.settling = false
}

// Snapshot copies the register window without advancing the device.
func (s *Sim) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{ValueLo: s.valueLo, ValueHi: s.valueHi, Key: s.key, Ctrl: s.ctrl}
}

// Len returns the number of stored entries.
func (s *Sim) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Len()
}

// Close releases the backing store.
func (s *Sim) Close() error {
	return s.store.Close()
}
