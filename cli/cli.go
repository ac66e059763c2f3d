// Package cli implements the kvaccel command line.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kvaccel/config"
	"kvaccel/driver"
)

var Version string

const (
	configF           = "config"
	deviceF           = "device"
	baseAddressF      = "base-address"
	memDeviceF        = "mem-device"
	pollBudgetF       = "poll-budget"
	unboundedPollingF = "unbounded-polling"
	simCapacityF      = "sim-capacity"
	simLatencyF       = "sim-latency"
	simStuckF         = "sim-stuck"
	simDBF            = "sim-db"
	verbosityF        = "verbosity"
	logFileF          = "log-file"
	metricsF          = "metrics"
	metricsAddrF      = "metrics-addr"
	traceF            = "trace"

	envPrefix = "KVACCEL"

	configFlagUsage    = "The yaml configuration file."
	deviceUsage        = "Device backend. Options: sim, mmio."
	baseAddressUsage   = "Physical base address of the register window (mmio)."
	memDeviceUsage     = "Memory device mapped for register access (mmio)."
	pollBudgetUsage    = "Number of CTRL reads before a command times out."
	unboundedUsage     = "Poll CTRL without limit. A device that never completes hangs the command."
	simCapacityUsage   = "Maximum number of simulated entries, 0 for unlimited."
	simLatencyUsage    = "Number of CTRL reads a simulated command stays busy."
	simStuckUsage      = "Simulated device never completes a command."
	simDBUsage         = "Directory persisting simulated entries across runs."
	verbosityFlagUsage = "Verbosity of the logs. Options: debug, info, warn, error."
	logFileUsage       = "Write logs to this file instead of stderr."
	metricsUsage       = "Enables the metrics server."
	metricsAddrUsage   = "Listen address of the metrics server."
	traceUsage         = "Log every register access at debug level."
)

// NewCmd returns the root command with every subcommand attached.
func NewCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kvaccel",
		Short:         "Host driver and exerciser for the key/value cache accelerator.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaults := config.Default()
	baseAddress := defaults.BaseAddress
	verbosity := defaults.Verbosity

	pf := rootCmd.PersistentFlags()
	pf.String(configF, "", configFlagUsage)
	pf.String(deviceF, defaults.Device, deviceUsage)
	pf.Var(&baseAddress, baseAddressF, baseAddressUsage)
	pf.String(memDeviceF, defaults.MemDevice, memDeviceUsage)
	pf.Int(pollBudgetF, defaults.PollBudget, pollBudgetUsage)
	pf.Bool(unboundedPollingF, defaults.UnboundedPolling, unboundedUsage)
	pf.Int(simCapacityF, defaults.SimCapacity, simCapacityUsage)
	pf.Int(simLatencyF, defaults.SimLatency, simLatencyUsage)
	pf.Bool(simStuckF, defaults.SimStuck, simStuckUsage)
	pf.String(simDBF, defaults.SimDB, simDBUsage)
	pf.Var(&verbosity, verbosityF, verbosityFlagUsage)
	pf.String(logFileF, defaults.LogFile, logFileUsage)
	pf.Bool(metricsF, defaults.Metrics, metricsUsage)
	pf.String(metricsAddrF, defaults.MetricsAddr, metricsAddrUsage)
	pf.Bool(traceF, defaults.Trace, traceUsage)

	rootCmd.AddCommand(
		newUpsertCmd(),
		newGetCmd(),
		newDeleteCmd(),
		newExerciseCmd(),
		newStressCmd(),
		newSanityCmd(),
		newConsoleCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

// loadConfig merges, lowest first: defaults, the config file, KVACCEL_*
// environment variables and flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfgFile, err := cmd.Flags().GetString(configF)
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return config.Load(v)
}

func parseKey(s string) (uint32, error) {
	k, err := config.ParseUint(s, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: key %q: %v", driver.ErrInvalidArgument, s, err)
	}
	return uint32(k), nil
}

func parseValue(s string) (uint64, error) {
	v, err := config.ParseUint(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: value %q: %v", driver.ErrInvalidArgument, s, err)
	}
	return v, nil
}

// printStatus prints a hit as ok and anything else by name. Error always
// comes with a non-nil err.
func printStatus(cmd *cobra.Command, status driver.Status, err error) error {
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), status)
	return err
}
