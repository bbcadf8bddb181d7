package instrumentation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultMetricsAddr is the default address for the metrics server.
	DefaultMetricsAddr = ":9090"

	// DefaultMetricsReadTimeout is the default read timeout for the metrics server.
	DefaultMetricsReadTimeout = 10 * time.Second

	// DefaultMetricsWriteTimeout is the default write timeout for the metrics server.
	DefaultMetricsWriteTimeout = 10 * time.Second

	// DefaultMetricsIdleTimeout is the default idle timeout for the metrics server.
	DefaultMetricsIdleTimeout = 60 * time.Second
)

// MetricsServer serves Prometheus metrics on a dedicated port, separate from
// anything else the process does.
type MetricsServer struct {
	httpServer *http.Server
	addr       string
	handler    http.Handler
}

// NewMetricsServer creates a metrics server backed by the provider's
// Prometheus registry. The server exposes /metrics for scraping and a
// /healthz endpoint.
func NewMetricsServer(addr string, provider *Provider) (*MetricsServer, error) {
	if addr == "" {
		addr = DefaultMetricsAddr
	}
	if provider == nil {
		return nil, fmt.Errorf("instrumentation provider is required for metrics server")
	}

	return &MetricsServer{
		addr:    addr,
		handler: provider.Handler(),
	}, nil
}

// Start starts the metrics server in a blocking manner.
// Call this in a goroutine if you need non-blocking operation.
func (s *MetricsServer) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: DefaultMetricsReadTimeout,
		WriteTimeout:      DefaultMetricsWriteTimeout,
		IdleTimeout:       DefaultMetricsIdleTimeout,
	}

	slog.Info("starting metrics server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		slog.Info("shutting down metrics server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the configured address for the metrics server.
func (s *MetricsServer) Addr() string {
	return s.addr
}
