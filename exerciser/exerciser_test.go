package exerciser_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvaccel/console"
	"kvaccel/device"
	"kvaccel/driver"
	"kvaccel/exerciser"
	"kvaccel/regs"
)

func TestXorShift32(t *testing.T) {
	rng := exerciser.NewXorShift32(exerciser.DefaultSeed)
	assert.Equal(t, uint32(0x9bc1abf9), rng.Next())
	assert.Equal(t, uint64(0x79654866DD55EA12), rng.Next64())
	assert.Equal(t, uint32(0x62e4d939), rng.Next())

	t.Run("zero seed", func(t *testing.T) {
		a := exerciser.NewXorShift32(0)
		b := exerciser.NewXorShift32(exerciser.DefaultSeed)
		assert.Equal(t, b.Next(), a.Next())
	})
}

func run(t *testing.T, r device.Registers, cfg exerciser.Config, opts ...driver.Option) ([]string, *exerciser.Exerciser, error) {
	t.Helper()
	d, err := driver.New(r, opts...)
	require.NoError(t, err)

	var buf bytes.Buffer
	e := exerciser.New(d, console.NewSimple(&buf), cfg, nil)
	err = e.Run()
	return strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n"), e, err
}

func TestRun_Output(t *testing.T) {
	cfg := exerciser.DefaultConfig()
	cfg.Random = 2
	cfg.Verify = true

	lines, e, err := run(t, device.NewSim(), cfg)
	require.NoError(t, err)

	expected := []string{
		"Key/value cache test",
		"Upsert key1=0x11111111 val=0x1122334455667788",
		"Upsert status=0x0",
		"Upsert key2=0x22222222 val=0xDEADBEEFCAFEBABE",
		"Upsert status=0x0",
		"Get key=0x11111111 hit val=0x1122334455667788",
		"Get key=0x22222222 hit val=0xDEADBEEFCAFEBABE",
		"Update key=0x11111111 val=0xAABBCCDD00112233",
		"Update status=0x0",
		"Update key=0x22222222 val=0xFEEDFACE12345678",
		"Update status=0x0",
		"Get key=0x11111111 hit val=0xAABBCCDD00112233",
		"Get key=0x22222222 hit val=0xFEEDFACE12345678",
		"Delete key=0x11111111",
		"Delete status=0x0",
		"Delete key=0x22222222",
		"Delete status=0x0",
		"Get key=0x11111111 miss",
		"Get key=0x22222222 miss",
		"Insert 2 pseudo-random entries",
		"Random upsert[0] key=0x9bc1abf9 val=0x79654866DD55EA12",
		"Random upsert status=0x0",
		"Random upsert[1] key=0x62e4d939 val=0xC1B33ED86B65D06C",
		"Random upsert status=0x0",
	}
	assert.Equal(t, expected, lines)

	stats := e.Stats()
	assert.Equal(t, 4, stats.Count(regs.OpRead, driver.StatusOK))
	assert.Equal(t, 2, stats.Count(regs.OpRead, driver.StatusMiss))
	assert.Equal(t, 6, stats.Count(regs.OpUpsert, driver.StatusOK))
	assert.Equal(t, 2, stats.Count(regs.OpDelete, driver.StatusOK))
	assert.Equal(t, 14, stats.Total())
	assert.Zero(t, stats.Timeouts())
}

func TestRun_NoRandom(t *testing.T) {
	cfg := exerciser.Config{Random: 0}
	lines, _, err := run(t, device.NewSim(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "Get key=0x22222222 miss", lines[len(lines)-1])
}

func TestRun_StuckDevice(t *testing.T) {
	cfg := exerciser.Config{Random: 1, Verify: true}
	lines, e, err := run(t, device.NewSim(device.Stuck()), cfg, driver.WithPollBudget(4))

	require.ErrorIs(t, err, exerciser.ErrMismatch)
	require.ErrorIs(t, err, driver.ErrTimeout)
	assert.Contains(t, lines, "Upsert status=0xffffffff")
	assert.Contains(t, lines, "Get key=0x11111111 error")
	assert.Contains(t, lines, "Random upsert status=0xffffffff")
	assert.Equal(t, 13, e.Stats().Timeouts())
}

func TestRun_StuckDeviceWithoutVerify(t *testing.T) {
	_, _, err := run(t, device.NewSim(device.Stuck()), exerciser.Config{}, driver.WithPollBudget(1))
	require.NoError(t, err)
}

func TestRun_FullDevice(t *testing.T) {
	cfg := exerciser.Config{Random: 3, Verify: true}
	lines, _, err := run(t, device.NewSim(device.WithCapacity(1)), cfg)

	// key2 is declined, so are its reads, update and delete
	require.ErrorIs(t, err, exerciser.ErrMismatch)
	assert.NotErrorIs(t, err, driver.ErrTimeout)
	assert.Equal(t, "Upsert status=0x1", lines[4])
	assert.Contains(t, lines, "Get key=0x22222222 miss")

	// random upserts into a full device only miss
	assert.NotContains(t, err.Error(), "UPSERT key=0x9bc1abf9")
}

func TestRun_WrongValue(t *testing.T) {
	d, err := driver.New(device.NewSim())
	require.NoError(t, err)

	var buf bytes.Buffer
	e := exerciser.New(corrupting{d}, console.NewSimple(&buf), exerciser.Config{Verify: true}, nil)
	err = e.Run()
	require.ErrorIs(t, err, exerciser.ErrMismatch)
	assert.Contains(t, err.Error(), "val=0x1122334455667789")
}

// corrupting flips the low bit of every value read
type corrupting struct {
	driver.Cache
}

func (c corrupting) Get(key uint32) (uint64, driver.Status, error) {
	v, s, err := c.Cache.Get(key)
	return v ^ 1, s, err
}

func TestStats_Render(t *testing.T) {
	s := exerciser.NewStats()
	s.Record(regs.OpUpsert, driver.StatusOK, nil)
	s.Record(regs.OpUpsert, driver.StatusMiss, nil)
	s.Record(regs.OpRead, driver.StatusError, driver.ErrTimeout)

	var buf bytes.Buffer
	s.Render(&buf)
	out := buf.String()
	for _, want := range []string{"UPSERT", "READ", "DELETE", "TIMEOUTS 1"} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, 3, s.Total())
}

func TestSanity(t *testing.T) {
	sim := device.NewSim()
	var buf bytes.Buffer

	snap, err := exerciser.Sanity(sim, console.NewSimple(&buf))
	require.NoError(t, err)
	assert.Equal(t, exerciser.PatternLo, snap.ValueLo)
	assert.Equal(t, exerciser.PatternHi, snap.ValueHi)
	assert.Equal(t, exerciser.PatternKey, snap.Key)
	assert.True(t, snap.Ctrl.Idle())

	out := buf.String()
	assert.Contains(t, out, "Read VALUE_LO=0xa5a5a5a5\n")
	assert.Contains(t, out, "Read CTRL busy=0 op=0x0\n")
	assert.True(t, strings.HasSuffix(out, "MMIO sanity done\n"))
	assert.Zero(t, sim.Len())
}

func TestStress(t *testing.T) {
	d, err := driver.New(device.NewSim(device.WithCapacity(0)))
	require.NoError(t, err)

	cfg := exerciser.StressConfig{Workers: 4, Ops: 300, Seed: 7}
	stats, err := exerciser.Stress(context.Background(), driver.Serialize(d), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1200, stats.Total())
	assert.Zero(t, stats.Timeouts())
	assert.Positive(t, stats.Count(regs.OpRead, driver.StatusOK))
}

func TestStress_Errors(t *testing.T) {
	t.Run("invalid workers", func(t *testing.T) {
		d, err := driver.New(device.NewSim())
		require.NoError(t, err)
		_, err = exerciser.Stress(context.Background(), d, exerciser.StressConfig{Workers: 0, Ops: 1}, nil)
		require.ErrorIs(t, err, driver.ErrInvalidArgument)
	})

	t.Run("timeout cancels", func(t *testing.T) {
		d, err := driver.New(device.NewSim(device.Stuck()), driver.WithPollBudget(2))
		require.NoError(t, err)
		_, err = exerciser.Stress(context.Background(), driver.Serialize(d),
			exerciser.StressConfig{Workers: 2, Ops: 10, Seed: 1}, nil)
		require.ErrorIs(t, err, driver.ErrTimeout)
	})

	t.Run("canceled context", func(t *testing.T) {
		d, err := driver.New(device.NewSim())
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		stats, err := exerciser.Stress(ctx, driver.Serialize(d),
			exerciser.StressConfig{Workers: 1, Ops: 10}, nil)
		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, stats.Total())
	})
}
