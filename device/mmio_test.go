//go:build linux

package device

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvaccel/regs"
)

// a plain file stands in for /dev/mem; the shared mapping writes through to it
func memFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mem")
	require.NoError(t, os.WriteFile(path, make([]byte, 2*os.Getpagesize()), 0o600))
	return path
}

func TestOpenMMIO_Validation(t *testing.T) {
	tests := []struct {
		name string
		path string
		base uint64
		err  error
	}{
		{"unaligned", "", 0x40000002, ErrUnaligned},
		{"out of range", "", math.MaxUint64 &^ 3, ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenMMIO(tt.path, tt.base)
			require.ErrorIs(t, err, tt.err)
		})
	}

	t.Run("missing device", func(t *testing.T) {
		_, err := OpenMMIO(filepath.Join(t.TempDir(), "nope"), 0)
		require.Error(t, err)
	})
}

func TestMMIO_ReadWrite(t *testing.T) {
	path := memFile(t)
	base := uint64(os.Getpagesize()) + 0x20

	m, err := OpenMMIO(path, base)
	require.NoError(t, err)
	assert.Equal(t, base, m.Base())

	m.Write(regs.ValueLo, 0x55667788)
	m.Write(regs.ValueHi, 0x11223344)
	m.Write(regs.Key, 0x11111111)
	m.Write(regs.Ctrl, uint32(regs.Encode(regs.OpUpsert)))

	for _, r := range regs.All {
		assert.Equal(t, m.Read(r), m.Read(r), "reads are stable for %s", r)
	}
	assert.Equal(t, uint32(0x11111111), m.Read(regs.Key))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "second close is a no-op")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	window := data[base : base+regs.WindowSize]
	assert.Equal(t, uint32(0x55667788), binary.LittleEndian.Uint32(window[regs.ValueLo:]))
	assert.Equal(t, uint32(0x11223344), binary.LittleEndian.Uint32(window[regs.ValueHi:]))
	assert.Equal(t, uint32(0x11111111), binary.LittleEndian.Uint32(window[regs.Key:]))
	assert.Equal(t, uint32(0x4), binary.LittleEndian.Uint32(window[regs.Ctrl:]))
}
