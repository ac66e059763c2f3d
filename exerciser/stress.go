package exerciser

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"kvaccel/driver"
	"kvaccel/regs"
	"kvaccel/utils"
)

type StressConfig struct {
	Workers int
	Ops     int // commands per worker
	Seed    uint32
}

func DefaultStressConfig() StressConfig {
	return StressConfig{Workers: 4, Ops: 1000, Seed: DefaultSeed}
}

// keys per worker, small enough that reads and deletes hit regularly
const stressKeys = 64

// Stress runs random upserts, gets and deletes from cfg.Workers goroutines.
// Each worker owns the keys with its index in the top byte and checks every
// hit against its own record of what it stored. The first timeout, device
// error or wrong value cancels the run. cache must be safe for concurrent use.
func Stress(ctx context.Context, cache driver.Cache, cfg StressConfig, log utils.SimpleLogger) (*Stats, error) {
	if cfg.Workers < 1 || cfg.Workers > 256 {
		return nil, fmt.Errorf("%w: workers %d", driver.ErrInvalidArgument, cfg.Workers)
	}
	if log == nil {
		log = utils.NewNopLogger()
	}

	stats := NewStats()
	p := pool.New().WithContext(ctx).WithMaxGoroutines(cfg.Workers).WithCancelOnError()
	for w := 0; w < cfg.Workers; w++ {
		w := w // per-iteration copy; go.mod targets go 1.21 (pre-1.22 loopvar semantics)
		p.Go(func(ctx context.Context) error {
			return stressWorker(ctx, cache, uint32(w), cfg, stats)
		})
	}
	err := p.Wait()
	log.Infow("Stress finished", "workers", cfg.Workers, "commands", stats.Total(), "err", err)
	return stats, err
}

func stressWorker(ctx context.Context, cache driver.Cache, w uint32, cfg StressConfig, stats *Stats) error {
	rng := NewXorShift32(cfg.Seed + w*0x9E3779B9)
	model := make(map[uint32]uint64)

	for i := 0; i < cfg.Ops; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		key := w<<24 | rng.Next()%stressKeys
		switch regs.Op(rng.Next()%3 + 1) {
		case regs.OpUpsert:
			value := rng.Next64()
			status, err := cache.Upsert(key, value)
			stats.Record(regs.OpUpsert, status, err)
			if err != nil {
				return err
			}
			if status == driver.StatusOK {
				model[key] = value
			}
		case regs.OpRead:
			value, status, err := cache.Get(key)
			stats.Record(regs.OpRead, status, err)
			if err != nil {
				return err
			}
			if want, ok := model[key]; ok && status == driver.StatusOK && value != want {
				return fmt.Errorf("%w: worker %d get key=%#x val=%s, want %s",
					ErrMismatch, w, key, hex64(value), hex64(want))
			}
		case regs.OpDelete:
			status, err := cache.Delete(key)
			stats.Record(regs.OpDelete, status, err)
			if err != nil {
				return err
			}
			delete(model, key)
		}
	}
	return nil
}
