package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/pure-golang/ticket-mailer/env"
	"github.com/pure-golang/ticket-mailer/function"
	"github.com/pure-golang/ticket-mailer/httpserver"
	"github.com/pure-golang/ticket-mailer/httpserver/std"
	"github.com/pure-golang/ticket-mailer/logger"
)

func main() {
	var (
		logCfg logger.Config
		cfg    Config
	)
	if err := env.InitConfig(&logCfg, &cfg); err != nil {
		slog.Default().Error("failed to load config", "error", err.Error())
		os.Exit(1)
	}
	logger.InitDefault(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.WithErr(err).Error("ticket mailer stopped")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to build app")
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.WithErr(err).Warn("failed to close app")
		}
	}()

	switch cfg.Runtime {
	case RuntimeLambda:
		function.NewLambda(a.invoker).Start(false)
	case RuntimeAPIGateway:
		function.NewLambda(a.invoker).Start(true)
	case RuntimeHTTP:
		return serveHTTP(ctx, a.invoker)
	default:
		return errors.Errorf("unknown runtime %q", cfg.Runtime)
	}
	return nil
}

func serveHTTP(ctx context.Context, invoker function.Invoker) error {
	var webCfg std.Config
	if err := env.InitConfig(&webCfg); err != nil {
		return err
	}

	server := std.NewDefault(webCfg, httpserver.Wrap(function.NewHTTPHandler(invoker)))
	server.Run()

	<-ctx.Done()
	slog.Default().Info("shutting down")
	return server.Close()
}
