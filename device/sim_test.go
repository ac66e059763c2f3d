package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvaccel/regs"
)

// issue writes the operands and the op, the way a driver would
func issue(s *Sim, op regs.Op, key uint32, value uint64) {
	lo, hi := regs.SplitValue(value)
	s.Write(regs.ValueLo, lo)
	s.Write(regs.ValueHi, hi)
	s.Write(regs.Key, key)
	s.Write(regs.Ctrl, uint32(regs.Encode(op)))
}

// pollIdle reads CTRL until idle and returns the number of reads it took
func pollIdle(t *testing.T, s *Sim) (regs.Ctrl32, int) {
	t.Helper()
	for n := 1; n <= 1000; n++ {
		c := regs.Ctrl32(s.Read(regs.Ctrl))
		if c.Idle() {
			return c, n
		}
	}
	t.Fatal("device never went idle")
	return 0, 0
}

func TestSim_Latency(t *testing.T) {
	tests := []struct {
		name      string
		latency   int
		wantReads int
	}{
		{"immediate", 0, 1},
		{"default", DefaultLatency, DefaultLatency + 1},
		{"slow", 63, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSim(WithLatency(tt.latency))
			issue(s, regs.OpUpsert, 1, 2)

			for i := 0; i < tt.latency; i++ {
				c := regs.Ctrl32(s.Read(regs.Ctrl))
				require.True(t, c.Busy(), "read %d", i)
				require.Equal(t, regs.OpUpsert, c.Op(), "op field reflects the command in flight")
			}
			c, n := pollIdle(t, s)
			assert.Equal(t, tt.wantReads, tt.latency+n)
			assert.True(t, c.Hit())
		})
	}
}

func TestSim_Commands(t *testing.T) {
	s := NewSim(WithLatency(1))

	issue(s, regs.OpRead, 7, 0)
	c, _ := pollIdle(t, s)
	assert.False(t, c.Hit(), "read of absent key")

	issue(s, regs.OpDelete, 7, 0)
	c, _ = pollIdle(t, s)
	assert.False(t, c.Hit(), "delete of absent key")

	issue(s, regs.OpUpsert, 7, 0xAABBCCDD00112233)
	c, _ = pollIdle(t, s)
	assert.True(t, c.Hit())
	assert.Equal(t, 1, s.Len())

	s.Write(regs.ValueLo, 0)
	s.Write(regs.ValueHi, 0)
	issue(s, regs.OpRead, 7, 0)
	c, _ = pollIdle(t, s)
	require.True(t, c.Hit())
	assert.Equal(t, uint32(0x00112233), s.Read(regs.ValueLo))
	assert.Equal(t, uint32(0xAABBCCDD), s.Read(regs.ValueHi))

	issue(s, regs.OpDelete, 7, 0)
	c, _ = pollIdle(t, s)
	assert.True(t, c.Hit())
	assert.Equal(t, 0, s.Len())
}

func TestSim_Capacity(t *testing.T) {
	s := NewSim(WithLatency(0), WithCapacity(2))

	for key, want := range []bool{true, true, false} {
		issue(s, regs.OpUpsert, uint32(key+1), uint64(key))
		c, _ := pollIdle(t, s)
		assert.Equal(t, want, c.Hit(), "key %d", key+1)
	}

	// updating an existing key still works when full
	issue(s, regs.OpUpsert, 1, 100)
	c, _ := pollIdle(t, s)
	assert.True(t, c.Hit())
	assert.Equal(t, 2, s.Len())
}

func TestSim_Stuck(t *testing.T) {
	s := NewSim(Stuck())
	issue(s, regs.OpRead, 1, 0)
	for i := 0; i < 500; i++ {
		require.True(t, regs.Ctrl32(s.Read(regs.Ctrl)).Busy())
	}
}

func TestSim_Settle(t *testing.T) {
	s := NewSim(WithLatency(0), WithSettle())
	issue(s, regs.OpUpsert, 1, 1)

	c := regs.Ctrl32(s.Read(regs.Ctrl))
	assert.False(t, c.Busy())
	assert.Equal(t, regs.OpUpsert, c.Op(), "op not settled yet")
	assert.False(t, c.Idle())

	c = regs.Ctrl32(s.Read(regs.Ctrl))
	assert.True(t, c.Idle())
	assert.True(t, c.Hit())
}

func TestSim_WriteWhileBusy(t *testing.T) {
	s := NewSim(WithLatency(3))
	issue(s, regs.OpUpsert, 1, 10)

	// a second command must not disturb the first
	issue(s, regs.OpDelete, 2, 20)
	c := regs.Ctrl32(s.Read(regs.Ctrl))
	assert.Equal(t, regs.OpUpsert, c.Op())

	_, _ = pollIdle(t, s)
	snap := s.Snapshot()
	assert.Equal(t, uint32(1), snap.Key)
	assert.Equal(t, uint32(10), snap.ValueLo)
}

func TestSim_Reset(t *testing.T) {
	s := NewSim(WithLatency(5))
	issue(s, regs.OpUpsert, 1, 10)
	s.Reset()

	assert.Equal(t, Snapshot{}, s.Snapshot())
	assert.True(t, regs.Ctrl32(s.Read(regs.Ctrl)).Idle())
}

func TestSim_StepAdvances(t *testing.T) {
	s := NewSim(WithLatency(2))
	issue(s, regs.OpUpsert, 1, 10)
	s.Step()
	s.Step()
	s.Step()
	assert.True(t, s.Snapshot().Ctrl.Idle())
}

func TestSim_InvalidRegister(t *testing.T) {
	s := NewSim()
	assert.Panics(t, func() { s.Read(regs.Register(0x10)) })
	assert.Panics(t, func() { s.Write(regs.Register(0x02), 1) })
}
