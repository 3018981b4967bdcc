package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/ticket-mailer/logger"
)

var (
	meter = otel.GetMeterProvider().Meter("github.com/pure-golang/ticket-mailer/httpserver/middleware")
	// nolint:errcheck // Sync OpenTelemetry instruments never return errors
	requestsCount, _       = meter.Int64Counter("http.request_count")
	requestTimeHist, _     = meter.Int64Histogram("http.request_time", metric.WithUnit("ms"))
	requestBodyLenHist, _  = meter.Int64Histogram("http.request_body_len", metric.WithUnit("KB"))
	responseBodyLenHist, _ = meter.Int64Histogram("http.response_body_len", metric.WithUnit("KB"))
	tracer                 = otel.Tracer("github.com/pure-golang/ticket-mailer/httpserver/middleware")
)

// Monitoring traces incoming requests, records request metrics and attaches a
// logger carrying the trace id to the request context. Bodies are measured,
// never recorded: they carry documents and addresses.
func Monitoring(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqTime := time.Now()
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		path := strings.Split(r.RequestURI, "?")[0]
		ctx, span := tracer.Start(ctx, path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		metricLabels := []attribute.KeyValue{
			attribute.String("http.route", path),
			attribute.String("http.method", r.Method),
		}

		traceID := span.SpanContext().TraceID().String()

		log := logger.FromContext(ctx).With("method", r.Method, "path", path)
		if span.SpanContext().IsValid() {
			log = log.With("trace_id", traceID)
		}

		attrs := semconv.NetAttributesFromHTTPRequest("tcp", r)
		attrs = append(attrs, semconv.HTTPServerAttributesFromHTTPRequest("webserver", path, r)...)
		attrs = append(attrs, attribute.String("http.request.header.User-Agent", r.Header.Get("User-Agent")))

		body := &countingReader{ReadCloser: r.Body}
		r.Body = body

		w.Header().Set("X-Trace-Id", traceID)

		ctx = logger.NewContext(ctx, log)
		srw := newStatefulRespWriter(w)

		next.ServeHTTP(srw, r.WithContext(ctx))

		attrs = append(attrs,
			attribute.Int("http.response.status", srw.status),
			attribute.Int64("http.request.body_len", body.n),
			attribute.Int64("http.response.body_len", srw.written),
		)
		span.SetAttributes(attrs...)

		requestsCount.Add(ctx, 1, metric.WithAttributes(append(metricLabels,
			attribute.Int("http.response.code", srw.status))...))
		requestTimeHist.Record(ctx, time.Since(reqTime).Milliseconds(), metric.WithAttributes(metricLabels...))
		requestBodyLenHist.Record(ctx, body.n/1024, metric.WithAttributes(metricLabels...))
		responseBodyLenHist.Record(ctx, srw.written/1024, metric.WithAttributes(metricLabels...))

		log.Debug("request served", slog.Int("status", srw.status), slog.Duration("elapsed", time.Since(reqTime)))
		if srw.status >= 500 {
			span.SetStatus(codes.Error, "")
			return
		}

		span.SetStatus(codes.Ok, "")
	})
}

type countingReader struct {
	io.ReadCloser
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	c.n += int64(n)
	return n, err
}

// statefulRespWriter keeps the sent status and body size
type statefulRespWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func newStatefulRespWriter(w http.ResponseWriter) *statefulRespWriter {
	return &statefulRespWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *statefulRespWriter) WriteHeader(status int) {
	w.ResponseWriter.WriteHeader(status)
	w.status = status
}

func (w *statefulRespWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

func (w *statefulRespWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
