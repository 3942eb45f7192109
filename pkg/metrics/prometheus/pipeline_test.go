package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPipelineMetrics_RecordOpen(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newPipelineMetrics(reg)

	m.RecordOpen("/archive", 3*time.Millisecond, "")
	m.RecordOpen("/archive", time.Millisecond, "access denied")
	m.RecordOpen("/archive", time.Millisecond, "access denied")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.opensTotal.WithLabelValues("/archive", "success", "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.opensTotal.WithLabelValues("/archive", "error", "access denied")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.openDuration))
}

func TestPipelineMetrics_Decisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newPipelineMetrics(reg)

	m.RecordDecision("worm", "/archive", "static_deny")
	m.RecordDecision("worm", "/archive", "post_open_deny")
	m.RecordDecision("worm", "/archive", "static_deny")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisionsTotal.WithLabelValues("worm", "/archive", "static_deny")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisionsTotal.WithLabelValues("worm", "/archive", "post_open_deny")))
}

func TestPipelineMetrics_Connections(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newPipelineMetrics(reg)

	m.RecordConnect("/archive")
	m.RecordConnect("/archive")
	m.RecordDisconnect("/archive")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeConnections.WithLabelValues("/archive")))
}
