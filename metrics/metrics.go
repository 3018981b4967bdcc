package metrics

import (
	"context"
	stdErr "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Config struct {
	Host        string        `envconfig:"METRICS_HOST" default:"0.0.0.0"`
	Port        int           `envconfig:"METRICS_PORT" default:"9090"`
	ReadTimeout time.Duration `envconfig:"METRICS_READ_TIMEOUT" default:"30s"`
}

// Metrics serves /metrics for the otel meter provider it installs.
type Metrics struct {
	config   Config
	registry *prom.Registry
	server   *http.Server
	provider *sdkmetric.MeterProvider
}

func InitDefault(config Config) (io.Closer, error) {
	provider := New(config)
	if err := provider.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to start metrics server")
	}

	return provider, nil
}

func New(config Config) *Metrics {
	registry := prom.NewRegistry()
	return &Metrics{
		config:   config,
		registry: registry,
		server:   NewHttpServer(config, registry),
	}
}

func (s *Metrics) Start() error {
	provider, err := InitPrometheus(s.registry)
	if err != nil {
		return errors.Wrap(err, "failed to init prometheus")
	}
	s.provider = provider

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Default().Warn("metrics server failed", "error", err.Error())
		}
	}()

	return nil
}

func (s *Metrics) Close() error {
	err := errors.Wrap(s.server.Close(), "failed to close metrics server")
	if s.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = stdErr.Join(err, errors.Wrap(s.provider.Shutdown(ctx), "failed to shutdown meter provider"))
	}
	return err
}

func NewHttpServer(conf Config, gatherer prom.Gatherer) *http.Server {
	r := http.NewServeMux()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Handler:           r,
		ReadTimeout:       conf.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
