package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServer_DefaultPort(t *testing.T) {
	s := NewServer(ServerConfig{})
	assert.Equal(t, 9090, s.Port())
}

func TestServer_Healthz(t *testing.T) {
	s := NewServer(ServerConfig{Port: 9191})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestNoopPipelineMetrics(t *testing.T) {
	m := NewNoopPipelineMetrics()
	assert.NotPanics(t, func() {
		m.RecordOpen("/s", 0, "")
		m.RecordDecision("worm", "/s", "success")
		m.RecordConnect("/s")
		m.RecordDisconnect("/s")
	})
}
