// Package system assembles a device, optional tracing and a driver from a
// configuration.
package system

import (
	"github.com/pkg/errors"

	"kvaccel/config"
	"kvaccel/device"
	"kvaccel/driver"
	"kvaccel/utils"
)

// System definition.
type System struct {
	// Registers is the window the driver talks to, traced if configured.
	Registers device.Registers
	Driver    *driver.Driver
	// Cache serializes Driver for concurrent callers.
	Cache *driver.Serialized

	sim  *device.Sim
	mmio *device.MMIO
	log  utils.SimpleLogger
}

// New opens the configured device. listener may be nil.
func New(cfg *config.Config, log utils.SimpleLogger, listener driver.EventListener) (*System, error) {
	if log == nil {
		log = utils.NewNopLogger()
	}
	sys := &System{log: log}

	switch cfg.Device {
	case config.DeviceSim:
		sim, err := newSim(cfg, log)
		if err != nil {
			return nil, err
		}
		sys.sim = sim
		sys.Registers = sim
	case config.DeviceMMIO:
		m, err := device.OpenMMIO(cfg.MemDevice, uint64(cfg.BaseAddress))
		if err != nil {
			return nil, err
		}
		sys.mmio = m
		sys.Registers = m
		log.Infow("Mapped device registers", "mem", cfg.MemDevice, "base", cfg.BaseAddress)
	default:
		return nil, errors.Wrapf(config.ErrUnknownDevice, "device %q", cfg.Device)
	}

	if cfg.Trace {
		sys.Registers = device.NewTrace(sys.Registers, log, false)
	}

	opts := []driver.Option{driver.WithLogger(log)}
	if cfg.UnboundedPolling {
		opts = append(opts, driver.WithUnboundedPolling())
	} else {
		opts = append(opts, driver.WithPollBudget(cfg.PollBudget))
	}
	if listener != nil {
		opts = append(opts, driver.WithListener(listener))
	}
	d, err := driver.New(sys.Registers, opts...)
	if err != nil {
		_ = sys.Close()
		return nil, err
	}
	sys.Driver = d
	sys.Cache = driver.Serialize(d)
	return sys, nil
}

func newSim(cfg *config.Config, log utils.SimpleLogger) (*device.Sim, error) {
	opts := []device.SimOption{
		device.WithLatency(cfg.SimLatency),
		device.WithCapacity(cfg.SimCapacity),
		device.WithSimLogger(log),
	}
	if cfg.SimStuck {
		opts = append(opts, device.Stuck())
	}
	if cfg.SimDB != "" {
		st, err := device.OpenPebbleStore(cfg.SimDB, uint(max(cfg.SimCapacity, 1)))
		if err != nil {
			return nil, err
		}
		log.Infow("Opened simulator store", "path", cfg.SimDB, "entries", st.Len())
		opts = append(opts, device.WithStore(st))
	}
	return device.NewSim(opts...), nil
}

// Snapshot returns the simulated register window. The boolean is false for hardware.
func (sys *System) Snapshot() (device.Snapshot, bool) {
	if sys.sim == nil {
		return device.Snapshot{}, false
	}
	return sys.sim.Snapshot(), true
}

// Sim returns the simulated device, or nil.
func (sys *System) Sim() *device.Sim {
	return sys.sim
}

// Close releases the device.
func (sys *System) Close() error {
	switch {
	case sys.sim != nil:
		return sys.sim.Close()
	case sys.mmio != nil:
		return sys.mmio.Close()
	}
	return nil
}
