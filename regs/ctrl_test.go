package regs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		want Ctrl32
	}{
		{"noop", OpNoop, 0x0},
		{"read", OpRead, 0x2},
		{"upsert", OpUpsert, 0x4},
		{"delete", OpDelete, 0x6},
		{"only three bits", Op(0xF), 0xE},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.op)
			assert.Equal(t, tt.want, got)
			assert.False(t, got.Busy(), "issue never sets busy")
			assert.False(t, got.Hit(), "issue never sets hit")
		})
	}
}

func TestCtrl32_Decode(t *testing.T) {
	tests := []struct {
		name string
		word Ctrl32
		busy bool
		op   Op
		hit  bool
		idle bool
	}{
		{"all clear", 0x00, false, OpNoop, false, true},
		{"busy read", 0x03, true, OpRead, false, false},
		{"busy upsert", 0x05, true, OpUpsert, false, false},
		{"busy delete", 0x07, true, OpDelete, false, false},
		{"idle hit", 0x10, false, OpNoop, true, true},
		{"busy cleared, op not settled", 0x12, false, OpRead, true, false},
		{"busy, op noop", 0x01, true, OpNoop, false, false},
		{"upper bits ignored", 0xFFFFFF10, false, OpNoop, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.busy, tt.word.Busy())
			assert.Equal(t, tt.op, tt.word.Op())
			assert.Equal(t, tt.hit, tt.word.Hit())
			assert.Equal(t, tt.idle, tt.word.Idle())
		})
	}
}

func TestCtrl32_Idle(t *testing.T) {
	assert.True(t, Ctrl32(0).Idle())
	assert.True(t, Ctrl32(HitMask).Idle())
	assert.False(t, Ctrl32(BusyMask).Idle())
	assert.False(t, Encode(OpDelete).Idle())
}

func TestCtrl32_With(t *testing.T) {
	c := Ctrl32(0).With(true, OpUpsert, false)
	assert.Equal(t, Ctrl32(0x05), c)

	c = c.With(false, OpNoop, true)
	assert.Equal(t, Ctrl32(0x10), c)
	assert.True(t, c.Idle())
}

func TestCtrl32_String(t *testing.T) {
	assert.Equal(t, "busy op=READ", Ctrl32(0x03).String())
	assert.Equal(t, "idle op=NOOP hit", Ctrl32(0x10).String())
	assert.Equal(t, "settling op=DELETE", Ctrl32(0x06).String())
}

func TestValueSplitJoin(t *testing.T) {
	lo, hi := SplitValue(0x1122334455667788)
	assert.Equal(t, uint32(0x55667788), lo)
	assert.Equal(t, uint32(0x11223344), hi)
	assert.Equal(t, uint64(0x1122334455667788), JoinValue(lo, hi))
}

func TestRegister(t *testing.T) {
	for _, r := range All {
		assert.True(t, r.Valid(), r.String())
	}
	assert.False(t, Register(0x10).Valid())
	assert.False(t, Register(0x02).Valid())
	assert.Equal(t, "CTRL", Ctrl.String())
	assert.Equal(t, "REG(0x10)", Register(0x10).String())
}
