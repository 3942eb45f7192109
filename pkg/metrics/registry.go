// Package metrics provides Prometheus metrics collection for wormfs.
//
// Metrics are optional. Until InitRegistry is called, constructors in the
// prometheus subpackage return no-op implementations, so the pipeline can
// run with or without collection enabled.
//
// Usage:
//
//	metrics.InitRegistry()
//	m := prometheus.NewPipelineMetrics()
//	pipeline := vfs.NewPipeline(backend, layers, vfs.WithMetrics(m))
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// registry is written once by InitRegistry and read many times
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry with the Go
// runtime and process collectors. Subsequent calls are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// GetRegistry returns the global registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
