package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc"

	"kvaccel/utils"
)

type metricsServer struct {
	srv      *http.Server
	listener net.Listener
	wg       conc.WaitGroup
	log      utils.SimpleLogger
}

// startMetrics serves registry on /metrics until Close.
func startMetrics(addr string, registry *prometheus.Registry, log utils.SimpleLogger) (*metricsServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	m := &metricsServer{
		srv: &http.Server{
			Addr:    listener.Addr().String(),
			Handler: mux,
			// ReadTimeout also sets ReadHeaderTimeout and IdleTimeout.
			ReadTimeout: 30 * time.Second,
		},
		listener: listener,
		log:      log,
	}
	m.wg.Go(func() {
		if err := m.srv.Serve(m.listener); !errors.Is(err, http.ErrServerClosed) {
			m.log.Errorw("Metrics server failed", "err", err)
		}
	})
	log.Infow("Metrics server listening", "addr", m.Addr())
	return m, nil
}

func (m *metricsServer) Addr() string {
	return m.listener.Addr().String()
}

func (m *metricsServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.srv.Shutdown(ctx)
	m.wg.Wait()
	return err
}
