// Package driver issues commands to the key/value cache accelerator and
// polls its control register until the command completes.
//
// A Driver holds no locks: exactly one command may be in flight on a device
// and callers must serialize access themselves (see Serialized).
package driver

import (
	"errors"
	"fmt"
	"time"

	"kvaccel/device"
	"kvaccel/regs"
	"kvaccel/utils"
)

// DefaultPollBudget is the number of CTRL reads before a command times out.
const DefaultPollBudget = 64

var (
	ErrTimeout         = errors.New("device did not go idle within the poll budget")
	ErrInvalidArgument = errors.New("invalid argument")
)

// TimeoutError reports a command whose completion was not observed.
// Whether the device eventually ran the command is unknown.
type TimeoutError struct {
	Op       regs.Op
	Key      uint32
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s key=%#x: %v after %d attempts", e.Op, e.Key, ErrTimeout, e.Attempts)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// Cache is the host facing command set. Driver and Serialized implement it.
type Cache interface {
	Upsert(key uint32, value uint64) (Status, error)
	Get(key uint32) (uint64, Status, error)
	Delete(key uint32) (Status, error)
}

// Driver sequences register accesses for one command at a time.
type Driver struct {
	regs      device.Registers
	budget    int
	unbounded bool

	log      utils.SimpleLogger
	listener EventListener
}

var _ Cache = (*Driver)(nil)

// Option configures a Driver.
type Option func(*Driver)

// WithPollBudget sets how many CTRL reads a command may take.
func WithPollBudget(n int) Option {
	return func(d *Driver) { d.budget = n }
}

// WithUnboundedPolling polls CTRL with no attempt limit. A device that never
// completes hangs the caller forever; only use it when the hardware is known
// to always finish.
func WithUnboundedPolling() Option {
	return func(d *Driver) { d.unbounded = true }
}

func WithLogger(l utils.SimpleLogger) Option {
	return func(d *Driver) { d.log = l }
}

func WithListener(l EventListener) Option {
	return func(d *Driver) { d.listener = l }
}

// New returns a driver issuing commands through r.
func New(r device.Registers, opts ...Option) (*Driver, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil registers", ErrInvalidArgument)
	}
	d := &Driver{
		regs:     r,
		budget:   DefaultPollBudget,
		log:      utils.NewNopLogger(),
		listener: &SelectiveListener{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if !d.unbounded && d.budget < 1 {
		return nil, fmt.Errorf("%w: poll budget %d", ErrInvalidArgument, d.budget)
	}
	return d, nil
}

// Upsert inserts or updates key. StatusMiss means the device declined the entry.
func (d *Driver) Upsert(key uint32, value uint64) (Status, error) {
	d.writeValue(value)
	d.writeKey(key)
	return d.run(regs.OpUpsert, key)
}

// Get reads the value stored under key. The value is only meaningful with StatusOK.
func (d *Driver) Get(key uint32) (uint64, Status, error) {
	var v uint64
	status, err := d.Read(key, &v)
	return v, status, err
}

// Read reads the value stored under key into dst. A nil dst is rejected
// before the device is touched. dst is zeroed unless the read hits.
func (d *Driver) Read(key uint32, dst *uint64) (Status, error) {
	if dst == nil {
		return StatusError, fmt.Errorf("%w: nil destination", ErrInvalidArgument)
	}

	d.writeKey(key)
	status, err := d.run(regs.OpRead, key)
	if status != StatusOK {
		*dst = 0
		return status, err
	}

	*dst = d.readValue()
	return StatusOK, nil
}

// Delete removes key. StatusMiss means the key was not present.
func (d *Driver) Delete(key uint32) (Status, error) {
	d.writeKey(key)
	return d.run(regs.OpDelete, key)
}

// run issues op, waits for the device and interprets HIT. Operand registers
// must already be written.
func (d *Driver) run(op regs.Op, key uint32) (Status, error) {
	start := time.Now()
	d.issue(op)

	ctrl, attempts, ok := d.waitIdle()
	took := time.Since(start)

	var (
		status Status
		err    error
	)
	switch {
	case !ok:
		status = StatusError
		err = &TimeoutError{Op: op, Key: key, Attempts: attempts}
		d.log.Warnw("Command timed out", "op", op, "key", key, "attempts", attempts)
	case ctrl.Hit():
		status = StatusOK
	default:
		status = StatusMiss
	}

	d.log.Debugw("Command done", "op", op, "key", key, "status", status, "attempts", attempts, "took", took)
	d.listener.OnCommand(op, status, attempts, took)
	return status, err
}

// waitIdle polls CTRL until BUSY is clear and the op field reads NOOP. It
// returns the final control word and the number of reads taken.
func (d *Driver) waitIdle() (regs.Ctrl32, int, bool) {
	if d.unbounded {
		for attempts := 1; ; attempts++ {
			if ctrl := d.readCtrl(); ctrl.Idle() {
				return ctrl, attempts, true
			}
		}
	}

	for attempt := 1; attempt <= d.budget; attempt++ {
		if ctrl := d.readCtrl(); ctrl.Idle() {
			return ctrl, attempt, true
		}
	}
	return 0, d.budget, false
}

func (d *Driver) writeValue(v uint64) {
	lo, hi := regs.SplitValue(v)
	d.regs.Write(regs.ValueLo, lo)
	d.regs.Write(regs.ValueHi, hi)
}

func (d *Driver) readValue() uint64 {
	lo := d.regs.Read(regs.ValueLo)
	hi := d.regs.Read(regs.ValueHi)
	return regs.JoinValue(lo, hi)
}

func (d *Driver) writeKey(key uint32) {
	d.regs.Write(regs.Key, key)
}

func (d *Driver) issue(op regs.Op) {
	d.regs.Write(regs.Ctrl, uint32(regs.Encode(op)))
}

func (d *Driver) readCtrl() regs.Ctrl32 {
	return regs.Ctrl32(d.regs.Read(regs.Ctrl))
}

// PollBudget returns the attempt budget, or 0 with unbounded polling.
func (d *Driver) PollBudget() int {
	if d.unbounded {
		return 0
	}
	return d.budget
}
