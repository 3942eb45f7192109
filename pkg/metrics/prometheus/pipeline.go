// Package prometheus implements the metrics interfaces on top of the global
// Prometheus registry.
package prometheus

import (
	"time"

	"github.com/marmos91/wormfs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// pipelineMetrics is the Prometheus implementation of metrics.PipelineMetrics.
type pipelineMetrics struct {
	opensTotal        *prometheus.CounterVec
	openDuration      *prometheus.HistogramVec
	decisionsTotal    *prometheus.CounterVec
	activeConnections *prometheus.GaugeVec
}

// NewPipelineMetrics registers the pipeline collectors with the global
// registry. It returns a no-op implementation when metrics are disabled.
func NewPipelineMetrics() metrics.PipelineMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopPipelineMetrics()
	}
	return newPipelineMetrics(metrics.GetRegistry())
}

func newPipelineMetrics(reg prometheus.Registerer) *pipelineMetrics {
	return &pipelineMetrics{
		opensTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wormfs_opens_total",
				Help: "Total number of open/create requests by share and outcome",
			},
			[]string{"share", "status", "error_code"},
		),
		openDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "wormfs_open_duration_milliseconds",
				Help: "Duration of open/create requests in milliseconds",
				Buckets: []float64{
					0.1,  // 100us
					1,    // 1ms
					10,   // 10ms
					100,  // 100ms
					1000, // 1s
				},
			},
			[]string{"share"},
		),
		decisionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wormfs_layer_decisions_total",
				Help: "Terminal decisions taken by pipeline layers",
			},
			[]string{"layer", "share", "decision"},
		),
		activeConnections: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wormfs_active_connections",
				Help: "Current number of connections per share",
			},
			[]string{"share"},
		),
	}
}

func (m *pipelineMetrics) RecordOpen(share string, duration time.Duration, errorCode string) {
	status := "success"
	if errorCode != "" {
		status = "error"
	}

	m.opensTotal.WithLabelValues(share, status, errorCode).Inc()
	m.openDuration.WithLabelValues(share).Observe(float64(duration) / float64(time.Millisecond))
}

func (m *pipelineMetrics) RecordDecision(layer, share, decision string) {
	m.decisionsTotal.WithLabelValues(layer, share, decision).Inc()
}

func (m *pipelineMetrics) RecordConnect(share string) {
	m.activeConnections.WithLabelValues(share).Inc()
}

func (m *pipelineMetrics) RecordDisconnect(share string) {
	m.activeConnections.WithLabelValues(share).Dec()
}
