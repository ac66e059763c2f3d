package driver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kvaccel/regs"
)

// NewPrometheusListener registers command metrics on reg and returns a
// listener that feeds them.
func NewPrometheusListener(reg prometheus.Registerer) (*SelectiveListener, error) {
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kvaccel",
		Subsystem: "driver",
		Name:      "commands",
	}, []string{"op", "status"})
	attempts := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kvaccel",
		Subsystem: "driver",
		Name:      "poll_attempts",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
	}, []string{"op"})
	latencies := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kvaccel",
		Subsystem: "driver",
		Name:      "command_latency_seconds",
		Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 10),
	}, []string{"op"})

	for _, c := range []prometheus.Collector{commands, attempts, latencies} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &SelectiveListener{
		OnCommandCb: func(op regs.Op, status Status, n int, took time.Duration) {
			commands.WithLabelValues(op.String(), status.String()).Inc()
			attempts.WithLabelValues(op.String()).Observe(float64(n))
			latencies.WithLabelValues(op.String()).Observe(took.Seconds())
		},
	}, nil
}
