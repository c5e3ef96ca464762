package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/witness-statement/internal/core/domain"
)

// generationCollectors record statement generation outcomes. They satisfy
// ports.GenerationObserver for both the API and the batch command.
type generationCollectors struct {
	service string

	total          *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	narrativeItems *prometheus.HistogramVec
	documentBytes  *prometheus.HistogramVec
}

func newGenerationCollectors(service string) *generationCollectors {
	return &generationCollectors{
		service: service,
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ws",
				Subsystem: "statement",
				Name:      "generations_total",
				Help:      "Total statement generation attempts by outcome.",
			},
			[]string{"service", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ws",
				Subsystem: "statement",
				Name:      "generation_duration_seconds",
				Help:      "Statement generation duration in seconds by outcome.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"service", "outcome"},
		),
		narrativeItems: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ws",
				Subsystem: "statement",
				Name:      "narrative_items",
				Help:      "Distribution of narrative items per generated statement.",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
			[]string{"service"},
		),
		documentBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ws",
				Subsystem: "statement",
				Name:      "document_bytes",
				Help:      "Size of generated documents in bytes.",
				Buckets:   prometheus.ExponentialBuckets(8<<10, 2, 10),
			},
			[]string{"service"},
		),
	}
}

func (g *generationCollectors) collectors() []prometheus.Collector {
	return []prometheus.Collector{g.total, g.duration, g.narrativeItems, g.documentBytes}
}

func (g *generationCollectors) ObserveGeneration(narrativeItems, documentBytes int, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = domain.KindLabel(err)
	}
	g.total.WithLabelValues(g.service, outcome).Inc()
	g.duration.WithLabelValues(g.service, outcome).Observe(duration.Seconds())
	if err != nil {
		return
	}
	g.narrativeItems.WithLabelValues(g.service).Observe(float64(narrativeItems))
	g.documentBytes.WithLabelValues(g.service).Observe(float64(documentBytes))
}
