package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"gopkg.in/yaml.v3"

	"kvaccel/config"
	"kvaccel/console"
	"kvaccel/driver"
	"kvaccel/exerciser"
)

const (
	verifyF  = "verify"
	randomF  = "random"
	seedF    = "seed"
	workersF = "workers"
	opsF     = "ops"
)

func newUpsertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upsert KEY VALUE",
		Short: "Insert or update an entry.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}
			value, err := parseValue(args[1])
			if err != nil {
				return err
			}
			return withSystem(cmd, false, func(a *app) error {
				status, err := a.sys.Cache.Upsert(key, value)
				return printStatus(cmd, status, err)
			})
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Read the value stored under a key.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}
			return withSystem(cmd, false, func(a *app) error {
				value, status, err := a.sys.Cache.Get(key)
				if err != nil || status != driver.StatusOK {
					return printStatus(cmd, status, err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "0x%016X\n", value)
				return err
			})
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY",
		Short: "Remove an entry.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}
			return withSystem(cmd, false, func(a *app) error {
				status, err := a.sys.Cache.Delete(key)
				return printStatus(cmd, status, err)
			})
		},
	}
}

func addExerciseFlags(cmd *cobra.Command) {
	cmd.Flags().Bool(verifyF, false, "Fail when an outcome differs from a healthy empty device.")
	cmd.Flags().Int(randomF, exerciser.DefaultRandom, "Number of pseudo-random upserts.")
	cmd.Flags().String(seedF, fmt.Sprintf("%#x", exerciser.DefaultSeed), "Seed of the pseudo-random generator.")
}

func exerciseConfig(cmd *cobra.Command) (exerciser.Config, error) {
	var cfg exerciser.Config
	var err error
	if cfg.Verify, err = cmd.Flags().GetBool(verifyF); err != nil {
		return cfg, err
	}
	if cfg.Random, err = cmd.Flags().GetInt(randomF); err != nil {
		return cfg, err
	}
	cfg.Seed, err = seedFlag(cmd)
	return cfg, err
}

func seedFlag(cmd *cobra.Command) (uint32, error) {
	s, err := cmd.Flags().GetString(seedF)
	if err != nil {
		return 0, err
	}
	seed, err := config.ParseUint(s, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: seed %q: %v", driver.ErrInvalidArgument, s, err)
	}
	return uint32(seed), nil
}

func newExerciseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exercise",
		Short: "Run the fixed upsert/get/update/delete scenario followed by random upserts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ecfg, err := exerciseConfig(cmd)
			if err != nil {
				return err
			}
			return withSystem(cmd, false, func(a *app) error {
				e := exerciser.New(a.sys.Cache, console.NewSimple(cmd.OutOrStdout()), ecfg, a.log)
				runErr := e.Run()
				e.Stats().Render(cmd.OutOrStdout())
				return runErr
			})
		},
	}
	addExerciseFlags(cmd)
	return cmd
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Issue random commands from concurrent workers and check the results.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scfg := exerciser.DefaultStressConfig()
			var err error
			if scfg.Workers, err = cmd.Flags().GetInt(workersF); err != nil {
				return err
			}
			if scfg.Ops, err = cmd.Flags().GetInt(opsF); err != nil {
				return err
			}
			if scfg.Seed, err = seedFlag(cmd); err != nil {
				return err
			}

			return withSystem(cmd, false, func(a *app) error {
				undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
					a.log.Debugw(fmt.Sprintf(format, args...))
				}))
				if err != nil {
					a.log.Warnw("Failed to set GOMAXPROCS", "err", err)
				}
				defer undo()

				stats, err := exerciser.Stress(cmd.Context(), a.sys.Cache, scfg, a.log)
				if stats != nil {
					stats.Render(cmd.OutOrStdout())
				}
				return err
			})
		},
	}
	cmd.Flags().Int(workersF, exerciser.DefaultStressConfig().Workers, "Number of concurrent workers.")
	cmd.Flags().Int(opsF, exerciser.DefaultStressConfig().Ops, "Commands issued by each worker.")
	cmd.Flags().String(seedF, fmt.Sprintf("%#x", exerciser.DefaultSeed), "Seed of the pseudo-random generator.")
	return cmd
}

func newSanityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sanity",
		Short: "Write a pattern into every register and read the window back.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSystem(cmd, false, func(a *app) error {
				_, err := exerciser.Sanity(a.sys.Registers, console.NewSimple(cmd.OutOrStdout()))
				return err
			})
		},
	}
}

func newConsoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Run the exerciser in a terminal UI with a live register view.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ecfg, err := exerciseConfig(cmd)
			if err != nil {
				return err
			}
			return withSystem(cmd, true, func(a *app) error {
				return console.RunGui(a.sys.Snapshot, func(out, status console.Console) error {
					e := exerciser.New(a.sys.Cache, out, ecfg, a.log)
					runErr := e.Run()

					var table bytes.Buffer
					e.Stats().Render(&table)
					if err := status.WriteConsole(table.String()); err != nil {
						return err
					}
					return runErr
				})
			})
		},
	}
	addExerciseFlags(cmd)
	return cmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as yaml.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
