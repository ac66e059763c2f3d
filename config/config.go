// Package config holds the settings of a kvaccel host: which device to talk
// to, how to poll it and where to log.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"kvaccel/device"
	"kvaccel/driver"
	"kvaccel/utils"
)

const (
	DeviceSim  = "sim"
	DeviceMMIO = "mmio"
)

var ErrUnknownDevice = errors.New("unknown device (known: sim, mmio)")

// Address is a physical address. It parses from 0x prefixed hex or decimal text.
type Address uint64

var _ pflag.Value = (*Address)(nil)

func (a Address) String() string {
	return fmt.Sprintf("%#08x", uint64(a))
}

func (a *Address) Set(s string) error {
	v, err := ParseUint(s, 64)
	if err != nil {
		return fmt.Errorf("address %q: %w", s, err)
	}
	*a = Address(v)
	return nil
}

func (a *Address) Type() string {
	return "Address"
}

func (a *Address) UnmarshalText(text []byte) error {
	return a.Set(string(text))
}

func (a Address) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

// ParseUint parses 0x prefixed hex or plain decimal into an unsigned value of
// the given bit size.
func ParseUint(s string, bitSize int) (uint64, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		return strconv.ParseUint(strings.ReplaceAll(rest, "_", ""), 16, bitSize)
	}
	return strconv.ParseUint(s, 10, bitSize)
}

type Config struct {
	Device           string         `mapstructure:"device" yaml:"device" validate:"required,oneof=sim mmio"`
	BaseAddress      Address        `mapstructure:"base-address" yaml:"base-address" validate:"word_aligned"`
	MemDevice        string         `mapstructure:"mem-device" yaml:"mem-device" validate:"required"`
	PollBudget       int            `mapstructure:"poll-budget" yaml:"poll-budget" validate:"min=1"`
	UnboundedPolling bool           `mapstructure:"unbounded-polling" yaml:"unbounded-polling"`
	SimCapacity      int            `mapstructure:"sim-capacity" yaml:"sim-capacity" validate:"min=0"`
	SimLatency       int            `mapstructure:"sim-latency" yaml:"sim-latency" validate:"min=0"`
	SimStuck         bool           `mapstructure:"sim-stuck" yaml:"sim-stuck"`
	SimDB            string         `mapstructure:"sim-db" yaml:"sim-db"`
	Verbosity        utils.LogLevel `mapstructure:"verbosity" yaml:"verbosity"`
	LogFile          string         `mapstructure:"log-file" yaml:"log-file"`
	Metrics          bool           `mapstructure:"metrics" yaml:"metrics"`
	MetricsAddr      string         `mapstructure:"metrics-addr" yaml:"metrics-addr" validate:"omitempty,hostname_port"`
	Trace            bool           `mapstructure:"trace" yaml:"trace"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Device:      DeviceSim,
		BaseAddress: 0x40000000,
		MemDevice:   device.DefaultMemDevice,
		PollBudget:  driver.DefaultPollBudget,
		SimCapacity: 1024,
		SimLatency:  device.DefaultLatency,
		Verbosity:   utils.INFO,
		MetricsAddr: ":9090",
	}
}

// Load decodes the settings held by v and validates them.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var (
	once     sync.Once
	validate *validator.Validate
)

func validateWordAligned(fl validator.FieldLevel) bool {
	return fl.Field().Uint()%4 == 0
}

// Validator returns the singleton used to check configurations.
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		if err := validate.RegisterValidation("word_aligned", validateWordAligned); err != nil {
			panic("failed to register validation: " + err.Error())
		}
	})
	return validate
}

func (c *Config) Validate() error {
	if err := Validator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "Device" && fe.Tag() == "oneof" {
					return fmt.Errorf("device %q: %w", c.Device, ErrUnknownDevice)
				}
			}
		}
		return err
	}
	return nil
}
