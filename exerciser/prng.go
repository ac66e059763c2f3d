package exerciser

// DefaultSeed is the default generator state.
const DefaultSeed uint32 = 0xC0FFEE42

// XorShift32 is Marsaglia's 13/17/5 xorshift generator.
type XorShift32 struct {
	state uint32
}

// NewXorShift32 returns a generator seeded with seed. Zero is a fixed point
// of xorshift and is replaced by DefaultSeed.
func NewXorShift32(seed uint32) *XorShift32 {
	if seed == 0 {
		seed = DefaultSeed
	}
	return &XorShift32{state: seed}
}

func (x *XorShift32) Next() uint32 {
	s := x.state
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	x.state = s
	return s
}

// Next64 draws the high word first.
func (x *XorShift32) Next64() uint64 {
	hi := uint64(x.Next())
	return hi<<32 | uint64(x.Next())
}
