// Package mailer turns a ticket request into one email with the PDF attached.
package mailer

import (
	"context"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/pure-golang/ticket-mailer/document"
	"github.com/pure-golang/ticket-mailer/logger"
	"github.com/pure-golang/ticket-mailer/mail"
)

var (
	meter = otel.GetMeterProvider().Meter("github.com/pure-golang/ticket-mailer/mailer")
	// nolint:errcheck // Sync OpenTelemetry instruments never return errors
	invocationsCount, _ = meter.Int64Counter("mailer.invocations")
	durationHist, _     = meter.Int64Histogram("mailer.duration", metric.WithUnit("ms"))
	attachmentHist, _   = meter.Int64Histogram("mailer.attachment_size", metric.WithUnit("By"))
	tracer              = otel.Tracer("github.com/pure-golang/ticket-mailer/mailer")
)

// Handler validates a Request, resolves the PDF and hands the message to the
// sender. It holds no per-invocation state.
type Handler struct {
	cfg     Config
	sender  mail.Sender
	fetcher document.Fetcher
}

func New(cfg Config, sender mail.Sender, fetcher document.Fetcher) *Handler {
	return &Handler{
		cfg:     cfg,
		sender:  sender,
		fetcher: fetcher,
	}
}

// Handle runs Deliver and converts its outcome into a Response. It never
// returns an error.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Mailer.Handle")
	defer span.End()

	err := h.Deliver(ctx, req)
	resp := ResponseFor(err)

	span.SetAttributes(attribute.Int("mailer.status", resp.StatusCode))
	attrs := metric.WithAttributes(attribute.Int("status", resp.StatusCode))
	invocationsCount.Add(ctx, 1, attrs)
	durationHist.Record(ctx, time.Since(start).Milliseconds(), attrs)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, resp.Body)
		logger.FromContextWithErr(ctx, err).Error("invocation failed", "status", resp.StatusCode)
		return resp
	}

	span.SetStatus(codes.Ok, "")
	logger.FromContext(ctx).Info("invocation succeeded", "status", resp.StatusCode)
	return resp
}

// Deliver sends the ticket email. Errors are *ValidationError, *FetchError or
// *DeliveryError.
func (h *Handler) Deliver(ctx context.Context, req Request) error {
	log := logger.FromContext(ctx)

	log.Debug("validating request")
	if (req.PDF.IsZero() && req.URL == "") || req.To == "" {
		return errMissingParameters
	}

	pdf, err := h.resolve(ctx, req)
	if err != nil {
		return err
	}
	attachmentHist.Record(ctx, int64(len(pdf)))

	email := h.compose(req, pdf)

	ctx, session := mail.WithSession(ctx)
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("failed to close mail session", "error", err)
		}
	}()

	log.Debug("verifying mail transport")
	if err := h.sender.Verify(ctx); err != nil {
		return &DeliveryError{Stage: StageVerify, Err: err}
	}

	log.Debug("sending email", "to", req.To, "size", len(pdf))
	if err := h.sender.Send(ctx, email); err != nil {
		return &DeliveryError{Stage: StageSend, Err: err}
	}

	log.Info("email sent", "to", req.To)
	return nil
}

// resolve returns the PDF bytes. An inline payload wins over the URL.
func (h *Handler) resolve(ctx context.Context, req Request) ([]byte, error) {
	log := logger.FromContext(ctx)

	if !req.PDF.IsZero() {
		pdf, err := req.PDF.Bytes()
		if err != nil {
			return nil, &ValidationError{Reason: "Invalid pdf payload", Err: err}
		}
		log.Debug("pdf taken from request", "kind", req.PDF.Kind().String(), "size", len(pdf))
		return pdf, nil
	}

	if h.fetcher == nil {
		return nil, &FetchError{URL: req.URL, Err: errors.New("no document fetcher configured")}
	}

	log.Debug("downloading pdf", "url", req.URL)
	pdf, err := h.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}
	log.Debug("pdf downloaded", "size", len(pdf))
	return pdf, nil
}

func (h *Handler) compose(req Request, pdf []byte) mail.Email {
	subject := req.Subject
	if subject == "" {
		subject = h.cfg.subject()
	}
	text := req.Text
	if text == "" {
		text = h.cfg.text()
	}

	return mail.Email{
		From:    parseAddress(h.cfg.From),
		To:      parseRecipients(req.To),
		Subject: subject,
		Body:    text,
		Attachments: []mail.Attachment{{
			Filename:    AttachmentFilename,
			ContentType: AttachmentContentType,
			Content:     pdf,
		}},
	}
}

func parseAddress(s string) mail.Address {
	if addr, err := netmail.ParseAddress(s); err == nil {
		return mail.Address{Name: addr.Name, Address: addr.Address}
	}
	return mail.Address{Address: strings.TrimSpace(s)}
}

// parseRecipients accepts one address or a comma separated list. Anything
// unparsable is passed through and left for the SMTP server to reject.
func parseRecipients(s string) []mail.Address {
	if list, err := netmail.ParseAddressList(s); err == nil {
		result := make([]mail.Address, 0, len(list))
		for _, addr := range list {
			result = append(result, mail.Address{Name: addr.Name, Address: addr.Address})
		}
		return result
	}

	var result []mail.Address
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, mail.Address{Address: part})
		}
	}
	return result
}
