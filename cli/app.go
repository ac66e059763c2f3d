package cli

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"kvaccel/config"
	"kvaccel/driver"
	"kvaccel/logger"
	"kvaccel/system"
	"kvaccel/utils"
)

// app is what every device command runs against.
type app struct {
	cfg *config.Config
	log utils.SimpleLogger
	sys *system.System
}

// withSystem loads the configuration, opens the device and runs fn. quiet
// discards logs unless a log file is configured.
func withSystem(cmd *cobra.Command, quiet bool, fn func(a *app) error) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var logw io.Writer = cmd.ErrOrStderr()
	if quiet {
		logw = io.Discard
	}
	log, closeLog, err := logger.New(cfg.LogFile, cfg.Verbosity, logw)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
		if closeErr := closeLog(); err == nil {
			err = closeErr
		}
	}()

	var listener driver.EventListener
	if cfg.Metrics {
		registry := prometheus.NewRegistry()
		l, err := driver.NewPrometheusListener(registry)
		if err != nil {
			return err
		}
		srv, err := startMetrics(cfg.MetricsAddr, registry, log)
		if err != nil {
			return err
		}
		defer srv.Close()
		listener = l
	}

	sys, err := system.New(cfg, log, listener)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sys.Close(); err == nil {
			err = closeErr
		}
	}()

	return fn(&app{cfg: cfg, log: log, sys: sys})
}
