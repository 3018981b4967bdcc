package main

import (
	"context"
	stdErr "errors"
	"io"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/pure-golang/ticket-mailer/document"
	"github.com/pure-golang/ticket-mailer/document/httpfetch"
	"github.com/pure-golang/ticket-mailer/document/objectfetch"
	"github.com/pure-golang/ticket-mailer/env"
	"github.com/pure-golang/ticket-mailer/function"
	"github.com/pure-golang/ticket-mailer/mail"
	"github.com/pure-golang/ticket-mailer/mail/noop"
	"github.com/pure-golang/ticket-mailer/mail/smtp"
	"github.com/pure-golang/ticket-mailer/mailer"
	"github.com/pure-golang/ticket-mailer/metrics"
	"github.com/pure-golang/ticket-mailer/storage/minio"
	"github.com/pure-golang/ticket-mailer/tracing"
	"github.com/pure-golang/ticket-mailer/tracing/otlp"
)

type app struct {
	cfg     Config
	handler *mailer.Handler
	invoker function.Invoker
	closers []io.Closer
}

// newApp loads component configs for the enabled features and builds the
// long-lived clients shared by all invocations.
func newApp(ctx context.Context, cfg Config) (*app, error) {
	a := &app{cfg: cfg}

	if cfg.MetricsEnabled {
		var metricsCfg metrics.Config
		if err := env.InitConfig(&metricsCfg); err != nil {
			return nil, err
		}
		closer, err := metrics.InitDefault(metricsCfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closer)
	}

	var flusher interface{ ForceFlush(context.Context) error }
	if cfg.TracingEnabled {
		var tracingCfg otlp.Config
		if err := env.InitConfig(&tracingCfg); err != nil {
			return nil, a.fail(err)
		}
		provider, err := tracing.Init(otlp.NewProviderBuilder(tracingCfg))
		if err != nil {
			slog.Default().Warn("tracing disabled", "error", err.Error())
		}
		a.closers = append(a.closers, provider)
		flusher, _ = provider.(interface{ ForceFlush(context.Context) error })
	}

	var mailerCfg mailer.Config
	var fetchCfg httpfetch.Config
	if err := env.InitConfig(&mailerCfg, &fetchCfg); err != nil {
		return nil, a.fail(err)
	}

	sender, from, err := a.newSender(cfg)
	if err != nil {
		return nil, a.fail(err)
	}
	if mailerCfg.From == "" {
		mailerCfg.From = from
	}

	fetcher, err := a.newFetcher(ctx, cfg, fetchCfg)
	if err != nil {
		return nil, a.fail(err)
	}

	a.handler = mailer.New(mailerCfg, sender, fetcher)
	a.invoker = a.handler
	if flusher != nil && cfg.Runtime != RuntimeHTTP {
		// A frozen Lambda sandbox never runs the batcher, so flush per invocation.
		handler := a.handler
		a.invoker = function.InvokerFunc(func(ctx context.Context, req mailer.Request) mailer.Response {
			resp := handler.Handle(ctx, req)
			if err := flusher.ForceFlush(ctx); err != nil {
				slog.Default().Warn("failed to flush spans", "error", err.Error())
			}
			return resp
		})
	}

	return a, nil
}

func (a *app) newSender(cfg Config) (mail.Sender, string, error) {
	switch cfg.MailProvider {
	case ProviderNoop:
		sender := noop.NewSender()
		a.closers = append(a.closers, sender)
		return sender, "", nil
	case ProviderSMTP, "":
		var smtpCfg smtp.Config
		if err := env.InitConfig(&smtpCfg); err != nil {
			return nil, "", err
		}
		if _, _, err := smtpCfg.Endpoint(); err != nil {
			return nil, "", err
		}
		sender := smtp.NewSender(smtpCfg, nil)
		a.closers = append(a.closers, sender)
		return sender, smtpCfg.SenderAddress(), nil
	default:
		return nil, "", errors.Errorf("unknown mail provider %q", cfg.MailProvider)
	}
}

func (a *app) newFetcher(ctx context.Context, cfg Config, fetchCfg httpfetch.Config) (document.Fetcher, error) {
	router := document.NewRouter(httpfetch.New(fetchCfg, nil))
	if !cfg.S3Enabled {
		return router, nil
	}

	var s3Cfg minio.Config
	if err := env.InitConfig(&s3Cfg); err != nil {
		return nil, err
	}
	client, err := minio.NewClient(ctx, s3Cfg, nil)
	if err != nil {
		return nil, err
	}
	stor := minio.NewStorage(client, nil)
	a.closers = append(a.closers, stor)

	return router.Handle(objectfetch.Scheme, objectfetch.New(stor)), nil
}

func (a *app) fail(err error) error {
	return stdErr.Join(err, a.Close())
}

// Close releases components in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return stdErr.Join(errs...)
}
