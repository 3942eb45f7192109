package config

import (
	"github.com/marmos91/wormfs/pkg/metrics"
	promMetrics "github.com/marmos91/wormfs/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// PipelineMetrics records opens and layer decisions (never nil, uses noop if disabled)
	PipelineMetrics metrics.PipelineMetrics

	// MetadataMetrics records store calls (nil if disabled, stores are not wrapped)
	MetadataMetrics metrics.MetadataMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed pipeline and metadata store metrics
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			PipelineMetrics: metrics.NewNoopPipelineMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Host: cfg.Metrics.Host,
		Port: cfg.Metrics.Port,
	})

	return &MetricsResult{
		Server:          server,
		PipelineMetrics: promMetrics.NewPipelineMetrics(),
		MetadataMetrics: promMetrics.NewMetadataMetrics(),
	}
}
