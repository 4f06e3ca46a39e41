package observability

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulseline/pulseline-go/internal/logging"
)

// Endpoint serves the metrics registry over HTTP.
type Endpoint struct {
	server *http.Server
	log    *slog.Logger
}

// NewEndpoint builds an HTTP server exposing m on /metrics at addr.
func NewEndpoint(addr string, m *Metrics) *Endpoint {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	return &Endpoint{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logging.ForService("observability"),
	}
}

// Start serves in the background until Shutdown is called.
func (e *Endpoint) Start() {
	go func() {
		e.log.Info("metrics endpoint listening", "addr", e.server.Addr)
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.log.Error("metrics endpoint failed", "error", err)
		}
	}()
}

// Shutdown stops the server, waiting up to the context deadline for
// in-flight scrapes.
func (e *Endpoint) Shutdown(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}
