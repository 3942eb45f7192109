package prometheus

import (
	"time"

	"github.com/marmos91/wormfs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metadataMetrics is the Prometheus implementation of metrics.MetadataMetrics.
type metadataMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewMetadataMetrics registers the metadata store collectors with the
// global registry. It returns a no-op implementation when metrics are
// disabled.
func NewMetadataMetrics() metrics.MetadataMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopMetadataMetrics()
	}
	return newMetadataMetrics(metrics.GetRegistry())
}

func newMetadataMetrics(reg prometheus.Registerer) *metadataMetrics {
	return &metadataMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wormfs_metadata_operations_total",
				Help: "Total number of metadata operations by store, operation, and status",
			},
			[]string{"store", "store_type", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "wormfs_metadata_operation_duration_seconds",
				Help: "Duration of metadata operations in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
				},
			},
			[]string{"store", "store_type", "operation"},
		),
	}
}

func (m *metadataMetrics) RecordOperation(store, storeType, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(store, storeType, operation, status).Inc()
	m.operationDuration.WithLabelValues(store, storeType, operation).Observe(duration.Seconds())
}
