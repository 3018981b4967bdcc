// Package httpfetch downloads documents over HTTP and HTTPS.
package httpfetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/ticket-mailer/document"
)

var _ document.Fetcher = (*Fetcher)(nil)

var tracer = otel.Tracer("github.com/pure-golang/ticket-mailer/document/httpfetch")

type Config struct {
	Timeout            time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	InsecureSkipVerify bool          `envconfig:"FETCH_INSECURE_SKIP_VERIFY" default:"false"`
}

type Options struct {
	Logger *slog.Logger
	// RootCAs overrides the system pool for the TLS client.
	RootCAs *x509.CertPool
}

// Fetcher GETs a URL and returns the whole body. It keeps two clients and
// picks one from the URL prefix: plain for http, TLS for https.
type Fetcher struct {
	plain  *http.Client
	secure *http.Client
	logger *slog.Logger
}

func New(cfg Config, opts *Options) *Fetcher {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	plainTransport := http.DefaultTransport.(*http.Transport).Clone()
	secureTransport := http.DefaultTransport.(*http.Transport).Clone()
	secureTransport.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		RootCAs:            opts.RootCAs,
		InsecureSkipVerify: cfg.InsecureSkipVerify, // #nosec G402 -- controlled by config
	}

	return &Fetcher{
		plain:  newClient(plainTransport, cfg.Timeout),
		secure: newClient(secureTransport, cfg.Timeout),
		logger: opts.Logger.WithGroup("httpfetch"),
	}
}

// newClient builds a client that does not follow redirects: a 3xx answer is
// a non-200 status like any other.
func newClient(transport http.RoundTripper, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "HTTP.Fetch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	client, transport := f.plain, "plain"
	if strings.HasPrefix(strings.ToLower(rawURL), "https") {
		client, transport = f.secure, "tls"
	}
	span.SetAttributes(
		attribute.String("http.url", rawURL),
		attribute.String("http.transport", transport),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.WithStack(err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.WithStack(err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		// nolint:errcheck // drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		err := &document.StatusError{Code: resp.StatusCode}
		f.logger.Warn("document download rejected", "url", rawURL, "status", resp.StatusCode)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.WithStack(err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrap(err, "failed to read body")
	}

	span.SetAttributes(attribute.Int("http.response.body_len", len(body)))
	span.SetStatus(codes.Ok, "")
	f.logger.Debug("document downloaded", "url", rawURL, "transport", transport, "size", len(body))
	return body, nil
}
