package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNew(t *testing.T) {
	config := Config{Host: "127.0.0.1", Port: 8080, ReadTimeout: 15 * time.Second}

	m := New(config)

	require.NotNil(t, m)
	assert.Equal(t, config, m.config)
	assert.NotNil(t, m.registry)
	assert.Equal(t, "127.0.0.1:8080", m.server.Addr)
	assert.Equal(t, 15*time.Second, m.server.ReadTimeout)
}

func TestNewHttpServer_ServesRegistry(t *testing.T) {
	registry := prom.NewRegistry()
	counter := prom.NewCounter(prom.CounterOpts{Name: "tickets_sent_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()

	srv := httptest.NewServer(NewHttpServer(Config{}, registry).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "tickets_sent_total 1")

	resp, err = http.Get(srv.URL + "/other")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetrics_StartExportsOtelInstruments(t *testing.T) {
	m := New(Config{Host: "127.0.0.1", Port: 0})
	require.NoError(t, m.Start())
	defer m.Close()

	counter, err := otel.Meter("test").Int64Counter("mailer.invocations")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	m.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mailer_invocations_total")
	assert.Contains(t, rec.Body.String(), "go_")
}

func TestMetrics_CloseBeforeStart(t *testing.T) {
	m := New(Config{Host: "127.0.0.1", Port: 0})

	assert.NoError(t, m.Close())
}
