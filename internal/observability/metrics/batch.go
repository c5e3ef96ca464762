package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

type BatchMetrics struct {
	*generationCollectors

	registry *prometheus.Registry

	rowTotal      *prometheus.CounterVec
	rowDuration   *prometheus.HistogramVec
	rowInFlight   prometheus.Gauge
	lastRunFinish prometheus.Gauge
}

func NewBatchMetrics(service string) *BatchMetrics {
	registry := prometheus.NewRegistry()

	rowTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ws",
			Subsystem: "batch",
			Name:      "rows_total",
			Help:      "Total processed batch rows by status.",
		},
		[]string{"service", "status"},
	)
	rowDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ws",
			Subsystem: "batch",
			Name:      "row_duration_seconds",
			Help:      "Batch row processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	rowInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ws",
			Subsystem: "batch",
			Name:      "rows_in_flight",
			Help:      "Number of batch rows being rendered.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	lastRunFinish := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ws",
			Subsystem: "batch",
			Name:      "last_run_finished_timestamp_seconds",
			Help:      "Unix time the last batch run finished.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	generation := newGenerationCollectors(service)

	registry.MustRegister(rowTotal, rowDuration, rowInFlight, lastRunFinish)
	registry.MustRegister(generation.collectors()...)

	return &BatchMetrics{
		generationCollectors: generation,
		registry:             registry,
		rowTotal:             rowTotal,
		rowDuration:          rowDuration,
		rowInFlight:          rowInFlight,
		lastRunFinish:        lastRunFinish,
	}
}

func (m *BatchMetrics) StartRow() {
	m.rowInFlight.Inc()
}

func (m *BatchMetrics) FinishRow(duration time.Duration, err error) {
	m.rowInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.rowTotal.WithLabelValues(m.service, status).Inc()
	m.rowDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

// Push sends the collected metrics to a Prometheus Pushgateway. An empty url is a no-op.
func (m *BatchMetrics) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	m.lastRunFinish.SetToCurrentTime()
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push batch metrics: %w", err)
	}
	return nil
}
