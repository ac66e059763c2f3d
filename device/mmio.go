//go:build linux

package device

import (
	"fmt"
	"math"
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"kvaccel/regs"
)

// DefaultMemDevice is the physical memory device mapped by OpenMMIO.
const DefaultMemDevice = "/dev/mem"

// MMIO accesses the register window of real hardware through a shared
// mapping of a physical memory device. Loads and stores go through
// sync/atomic so each access is a single, untorn 32 bit bus cycle the
// compiler cannot elide or merge.
type MMIO struct {
	mem    []byte
	window unsafe.Pointer
	base   uint64
}

var _ Registers = (*MMIO)(nil)

// OpenMMIO maps the register window at physical address base of the memory
// device at path (normally /dev/mem).
func OpenMMIO(path string, base uint64) (*MMIO, error) {
	if base%4 != 0 {
		return nil, ErrUnaligned
	}
	if base > math.MaxInt64-regs.WindowSize {
		return nil, ErrOutOfRange
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	// the mapping outlives the descriptor
	defer f.Close()

	pageSize := uint64(os.Getpagesize())
	pageBase := base &^ (pageSize - 1)
	offset := base - pageBase
	length := (offset + regs.WindowSize + pageSize - 1) &^ (pageSize - 1)

	mem, err := unix.Mmap(int(f.Fd()), int64(pageBase), int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %s at %#x", path, pageBase)
	}

	return &MMIO{
		mem:    mem,
		window: unsafe.Pointer(&mem[offset]),
		base:   base,
	}, nil
}

func (m *MMIO) reg(r regs.Register) *uint32 {
	if !r.Valid() {
		panic(fmt.Sprintf("mmio: invalid register %s", r))
	}
	return (*uint32)(unsafe.Add(m.window, uintptr(r)))
}

func (m *MMIO) Read(r regs.Register) uint32 {
	return atomic.LoadUint32(m.reg(r))
}

func (m *MMIO) Write(r regs.Register, v uint32) {
	atomic.StoreUint32(m.reg(r), v)
}

// Base returns the physical base address of the register window.
func (m *MMIO) Base() uint64 {
	return m.base
}

// Close unmaps the register window. The MMIO must not be used afterwards.
func (m *MMIO) Close() error {
	if m.mem == nil {
		return nil
	}
	err := unix.Munmap(m.mem)
	m.mem, m.window = nil, nil
	return errors.Wrap(err, "munmap")
}
