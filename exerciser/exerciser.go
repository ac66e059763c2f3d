// Package exerciser drives a cache through a fixed bring-up command sequence
// and an optional concurrent random workload.
package exerciser

import (
	"errors"
	"fmt"

	"kvaccel/console"
	"kvaccel/driver"
	"kvaccel/regs"
	"kvaccel/utils"
)

// DefaultRandom is the number of pseudo-random upserts after the fixed scenario.
const DefaultRandom = 8

const (
	Key1    uint32 = 0x11111111
	Value1  uint64 = 0x1122334455667788
	Update1 uint64 = 0xAABBCCDD00112233

	Key2    uint32 = 0x22222222
	Value2  uint64 = 0xDEADBEEFCAFEBABE
	Update2 uint64 = 0xFEEDFACE12345678
)

var ErrMismatch = errors.New("unexpected result")

type Config struct {
	Seed   uint32
	Random int
	// Verify compares every outcome of the fixed scenario with what a
	// healthy empty device returns.
	Verify bool
}

func DefaultConfig() Config {
	return Config{Seed: DefaultSeed, Random: DefaultRandom}
}

type Exerciser struct {
	cache driver.Cache
	out   console.Console
	cfg   Config
	stats *Stats
	log   utils.SimpleLogger

	mismatches []error
}

func New(cache driver.Cache, out console.Console, cfg Config, log utils.SimpleLogger) *Exerciser {
	if log == nil {
		log = utils.NewNopLogger()
	}
	return &Exerciser{
		cache: cache,
		out:   out,
		cfg:   cfg,
		stats: NewStats(),
		log:   log,
	}
}

func (e *Exerciser) Stats() *Stats {
	return e.stats
}

// Run executes the scenario. Device errors and timeouts are reported in the
// output and do not stop the run; with Verify set they are returned, joined
// with every other mismatch.
func (e *Exerciser) Run() error {
	e.mismatches = nil

	steps := []func() error{
		func() error { return e.printf("Key/value cache test") },
		func() error { return e.upsert("Upsert", fmt.Sprintf("key1=%#x", Key1), Key1, Value1) },
		func() error { return e.upsert("Upsert", fmt.Sprintf("key2=%#x", Key2), Key2, Value2) },
		func() error { return e.get(Key1, Value1, driver.StatusOK) },
		func() error { return e.get(Key2, Value2, driver.StatusOK) },
		func() error { return e.upsert("Update", fmt.Sprintf("key=%#x", Key1), Key1, Update1) },
		func() error { return e.upsert("Update", fmt.Sprintf("key=%#x", Key2), Key2, Update2) },
		func() error { return e.get(Key1, Update1, driver.StatusOK) },
		func() error { return e.get(Key2, Update2, driver.StatusOK) },
		func() error { return e.delete(Key1) },
		func() error { return e.delete(Key2) },
		func() error { return e.get(Key1, 0, driver.StatusMiss) },
		func() error { return e.get(Key2, 0, driver.StatusMiss) },
		e.random,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	if e.cfg.Verify {
		return errors.Join(e.mismatches...)
	}
	return nil
}

func (e *Exerciser) random() error {
	if e.cfg.Random <= 0 {
		return nil
	}
	if err := e.printf("Insert %d pseudo-random entries", e.cfg.Random); err != nil {
		return err
	}

	rng := NewXorShift32(e.cfg.Seed)
	for i := 0; i < e.cfg.Random; i++ {
		key := rng.Next()
		value := rng.Next64()
		if err := e.printf("Random upsert[%d] key=%#x val=%s", i, key, hex64(value)); err != nil {
			return err
		}

		status, err := e.cache.Upsert(key, value)
		e.stats.Record(regs.OpUpsert, status, err)
		// a full device may decline, only an error is a failure
		if status == driver.StatusError {
			e.mismatch(regs.OpUpsert, key, driver.StatusOK, status, err)
		}
		if err := e.printf("Random upsert status=%s", hex32(status)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exerciser) upsert(label, subject string, key uint32, value uint64) error {
	if err := e.printf("%s %s val=%s", label, subject, hex64(value)); err != nil {
		return err
	}
	status, err := e.cache.Upsert(key, value)
	e.stats.Record(regs.OpUpsert, status, err)
	if status != driver.StatusOK {
		e.mismatch(regs.OpUpsert, key, driver.StatusOK, status, err)
	}
	return e.printf("%s status=%s", label, hex32(status))
}

func (e *Exerciser) get(key uint32, want uint64, wantStatus driver.Status) error {
	value, status, err := e.cache.Get(key)
	e.stats.Record(regs.OpRead, status, err)

	switch {
	case status != wantStatus:
		e.mismatch(regs.OpRead, key, wantStatus, status, err)
	case status == driver.StatusOK && value != want:
		e.mismatches = append(e.mismatches, fmt.Errorf("%w: get key=%#x val=%s, want %s",
			ErrMismatch, key, hex64(value), hex64(want)))
	}

	switch status {
	case driver.StatusOK:
		return e.printf("Get key=%#x hit val=%s", key, hex64(value))
	case driver.StatusMiss:
		return e.printf("Get key=%#x miss", key)
	default:
		return e.printf("Get key=%#x error", key)
	}
}

func (e *Exerciser) delete(key uint32) error {
	if err := e.printf("Delete key=%#x", key); err != nil {
		return err
	}
	status, err := e.cache.Delete(key)
	e.stats.Record(regs.OpDelete, status, err)
	if status != driver.StatusOK {
		e.mismatch(regs.OpDelete, key, driver.StatusOK, status, err)
	}
	return e.printf("Delete status=%s", hex32(status))
}

func (e *Exerciser) mismatch(op regs.Op, key uint32, want, got driver.Status, cause error) {
	err := fmt.Errorf("%w: %s key=%#x status=%s, want %s", ErrMismatch, op, key, got, want)
	if cause != nil {
		err = fmt.Errorf("%w: %w", err, cause)
	}
	e.log.Warnw("Exerciser mismatch", "op", op, "key", key, "status", got, "want", want, "err", cause)
	e.mismatches = append(e.mismatches, err)
}

func (e *Exerciser) printf(format string, args ...any) error {
	return e.out.WriteConsole(fmt.Sprintf(format, args...))
}

// hex64 prints all 16 digits, upper case.
func hex64(v uint64) string {
	return fmt.Sprintf("0x%016X", v)
}

// hex32 prints a status as an unsigned 32-bit word, so Error reads 0xffffffff.
func hex32(s driver.Status) string {
	return fmt.Sprintf("%#x", uint32(s))
}
