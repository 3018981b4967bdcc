package smtp

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/ticket-mailer/logger"
	"github.com/pure-golang/ticket-mailer/mail"
)

var _ mail.Sender = (*Sender)(nil)

var tracer = otel.Tracer("github.com/pure-golang/ticket-mailer/mail/smtp")

// Sender implements mail.Sender using net/smtp. It is safe for concurrent
// use and keeps no per-delivery state.
//
// When ctx carries a mail.Session, Verify parks the authenticated session
// there and the next Send on that ctx consumes it, so a verify+send pair
// costs a single SMTP session. Without one, Verify quits right away.
type Sender struct {
	cfg       Config
	tlsConfig *tls.Config
	logger    *slog.Logger
	closed    atomic.Bool
}

// parked is an authenticated client waiting in a mail.Session.
type parked struct {
	client *smtp.Client
}

func (p *parked) Close() error {
	if err := p.client.Quit(); err != nil {
		_ = p.client.Close()
		return errors.Wrap(err, "failed to quit smtp session")
	}
	return nil
}

// SenderOptions contains options for creating a Sender.
type SenderOptions struct {
	Logger *slog.Logger
	// TLSConfig is cloned for STARTTLS. ServerName and InsecureSkipVerify
	// are always taken from Config.
	TLSConfig *tls.Config
}

// NewSender creates a new SMTP Sender.
func NewSender(cfg Config, options *SenderOptions) *Sender {
	if options == nil {
		options = &SenderOptions{}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	return &Sender{
		cfg:       cfg,
		tlsConfig: options.TLSConfig,
		logger:    options.Logger.WithGroup("smtp"),
	}
}

// Verify connects, upgrades to TLS and authenticates.
func (s *Sender) Verify(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "SMTP.Verify", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if s.closed.Load() {
		span.SetStatus(codes.Error, "sender is closed")
		return errors.New("sender is closed")
	}

	session := mail.SessionFromContext(ctx)
	_ = session.Close()

	client, err := s.open(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if session == nil {
		if err := client.Quit(); err != nil {
			_ = client.Close()
			s.logger.Debug("smtp quit failed after verify", "error", err)
		}
	} else {
		session.Park(&parked{client: client})
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Send sends one or more emails over a single session.
func (s *Sender) Send(ctx context.Context, emails ...mail.Email) error {
	if len(emails) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "SMTP.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.Int("smtp.emails_count", len(emails)))

	session := mail.SessionFromContext(ctx)

	if s.closed.Load() {
		_ = session.Close()
		span.SetStatus(codes.Error, "sender is closed")
		return errors.New("sender is closed")
	}

	envelopes := make([]envelope, 0, len(emails))
	for _, email := range emails {
		env, err := s.newEnvelope(email)
		if err != nil {
			_ = session.Close()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		envelopes = append(envelopes, env)
	}

	var client *smtp.Client
	switch conn := session.Take().(type) {
	case *parked:
		client = conn.client
	case nil:
	default:
		_ = conn.Close()
	}
	if client == nil {
		var err error
		if client, err = s.open(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	for i, env := range envelopes {
		if i > 0 {
			if err := client.Reset(); err != nil {
				_ = client.Close()
				return errors.Wrap(err, "failed to reset session")
			}
		}
		if err := s.deliver(ctx, client, env); err != nil {
			_ = client.Close()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	// Every message is acknowledged at this point.
	if err := client.Quit(); err != nil {
		logger.FromContextWithErr(ctx, err).Warn("smtp quit failed after delivery")
		_ = client.Close()
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

type envelope struct {
	from       string
	recipients []string
	msg        []byte
	subject    string
}

func (s *Sender) newEnvelope(email mail.Email) (envelope, error) {
	from := email.From.Address
	if from == "" {
		from = s.cfg.SenderAddress()
	}
	if from == "" {
		return envelope{}, errors.New("no from address specified")
	}

	recipients := email.Recipients()
	if len(recipients) == 0 {
		return envelope{}, errors.New("no recipients specified")
	}

	msg, err := buildMessage(email, from)
	if err != nil {
		return envelope{}, err
	}

	return envelope{from: from, recipients: recipients, msg: msg, subject: email.Subject}, nil
}

// open dials the server and runs the session preamble.
func (s *Sender) open(ctx context.Context) (*smtp.Client, error) {
	host, port, err := s.cfg.Endpoint()
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("smtp.address", addr),
		attribute.Bool("smtp.tls", s.cfg.TLS),
		attribute.Bool("smtp.auth", s.cfg.Username != ""),
	)

	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "smtp session aborted")
	default:
	}

	dialer := &net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to SMTP server")
	}
	if deadline, ok := s.deadline(ctx); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to start SMTP session")
	}

	if s.cfg.TLS {
		ok, _ := client.Extension("STARTTLS")
		span.SetAttributes(attribute.Bool("smtp.starttls", ok))
		if ok {
			if err := client.StartTLS(s.clientTLSConfig(host)); err != nil {
				_ = client.Close()
				return nil, errors.Wrap(err, "failed to start TLS")
			}
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, host)
		if err := client.Auth(auth); err != nil {
			_ = client.Close()
			return nil, errors.Wrap(err, "failed to authenticate")
		}
	}

	s.logger.Debug("smtp session ready", "address", addr)
	return client, nil
}

// deliver runs one mail transaction. The message counts as sent only once
// the server acknowledges the end of DATA.
func (s *Sender) deliver(ctx context.Context, client *smtp.Client, env envelope) error {
	_, span := tracer.Start(ctx, "SMTP.Deliver")
	defer span.End()

	span.SetAttributes(
		attribute.String("smtp.from", env.from),
		attribute.String("smtp.subject", env.subject),
		attribute.Int("smtp.recipients_count", len(env.recipients)),
		attribute.Int("smtp.message_size", len(env.msg)),
	)

	if err := client.Mail(env.from); err != nil {
		return errors.Wrap(err, "failed to set sender")
	}

	for _, addr := range env.recipients {
		if err := client.Rcpt(addr); err != nil {
			return errors.Wrapf(err, "failed to set recipient: %s", addr)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "failed to get data writer")
	}

	if _, err := writer.Write(env.msg); err != nil {
		_ = writer.Close()
		return errors.Wrap(err, "failed to write message")
	}

	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "message not accepted")
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *Sender) clientTLSConfig(host string) *tls.Config {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if s.tlsConfig != nil {
		cfg = s.tlsConfig.Clone()
	}
	cfg.ServerName = host
	cfg.InsecureSkipVerify = s.cfg.Insecure // #nosec G402 -- controlled by config
	return cfg
}

func (s *Sender) deadline(ctx context.Context) (time.Time, bool) {
	deadline, ok := ctx.Deadline()
	if s.cfg.Timeout > 0 {
		byTimeout := time.Now().Add(s.cfg.Timeout)
		if !ok || byTimeout.Before(deadline) {
			return byTimeout, true
		}
	}
	return deadline, ok
}

// Close marks the sender closed. Sessions parked in a mail.Session belong
// to that session's owner.
func (s *Sender) Close() error {
	s.closed.Store(true)
	return nil
}
