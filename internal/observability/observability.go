// Package observability wires Prometheus metrics and the HTTP endpoint
// that exposes them.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pulseline/pulseline-go/internal/errors"
	"github.com/pulseline/pulseline-go/internal/observability/metrics"
)

// Metrics bundles every collector group behind a single registry.
type Metrics struct {
	registry *prometheus.Registry

	Pipeline *metrics.PipelineMetrics
}

// NewMetrics builds the registry with process and Go runtime collectors
// plus the pipeline collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	pipeline, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, errors.New(err).
			Component("observability").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return &Metrics{
		registry: registry,
		Pipeline: pipeline,
	}, nil
}

// Registry exposes the underlying registry for the HTTP endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
