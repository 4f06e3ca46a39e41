// Package metrics holds the Prometheus collectors for the detection
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks the hot path: windows analyzed, events emitted
// and dropped, processing latency, and the current tempo estimates.
type PipelineMetrics struct {
	registry *prometheus.Registry

	windowsProcessed   prometheus.Counter
	eventsTotal        *prometheus.CounterVec
	droppedEvents      prometheus.Gauge
	processingDuration prometheus.Histogram
	currentBPM         prometheus.Gauge
	averageBPM         prometheus.Gauge
	validationErrors   *prometheus.CounterVec
	mqttPublishErrors  prometheus.Counter
}

// NewPipelineMetrics creates and registers the pipeline collectors.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() error {
	m.windowsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulseline_windows_processed_total",
		Help: "Total number of analysis windows processed.",
	})

	m.eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pulseline_events_total",
		Help: "Total number of detection events by type.",
	}, []string{"type"})

	m.droppedEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulseline_events_dropped_total",
		Help: "Events discarded because the queue was full.",
	})

	m.processingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulseline_processing_duration_ms",
		Help:    "Per-capture processing time in milliseconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
	})

	m.currentBPM = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulseline_bpm",
		Help: "Most recent tempo estimate.",
	})

	m.averageBPM = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulseline_bpm_average",
		Help: "Rolling average tempo over the recent beat history.",
	})

	m.validationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pulseline_capture_validation_errors_total",
		Help: "Capture buffers rejected before analysis, by reason.",
	}, []string{"reason"})

	m.mqttPublishErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulseline_mqtt_publish_errors_total",
		Help: "MQTT publish attempts that failed.",
	})

	collectors := []prometheus.Collector{
		m.windowsProcessed,
		m.eventsTotal,
		m.droppedEvents,
		m.processingDuration,
		m.currentBPM,
		m.averageBPM,
		m.validationErrors,
		m.mqttPublishErrors,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// AddWindowsProcessed records n analyzed windows.
func (m *PipelineMetrics) AddWindowsProcessed(n int) {
	m.windowsProcessed.Add(float64(n))
}

// IncEvent records one emitted event of the given type ("beat" or "onset").
func (m *PipelineMetrics) IncEvent(eventType string) {
	m.eventsTotal.WithLabelValues(eventType).Inc()
}

// SetDroppedEvents publishes the queue's cumulative drop counter.
func (m *PipelineMetrics) SetDroppedEvents(n uint64) {
	m.droppedEvents.Set(float64(n))
}

// ObserveProcessing records one capture's processing time in milliseconds.
func (m *PipelineMetrics) ObserveProcessing(ms float64) {
	m.processingDuration.Observe(ms)
}

// SetBPM publishes the latest and rolling-average tempo estimates.
func (m *PipelineMetrics) SetBPM(current, average float32) {
	m.currentBPM.Set(float64(current))
	m.averageBPM.Set(float64(average))
}

// IncValidationError records one rejected capture buffer.
func (m *PipelineMetrics) IncValidationError(reason string) {
	m.validationErrors.WithLabelValues(reason).Inc()
}

// IncMQTTPublishError records one failed MQTT publish.
func (m *PipelineMetrics) IncMQTTPublishError() {
	m.mqttPublishErrors.Inc()
}
