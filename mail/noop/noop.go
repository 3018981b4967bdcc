package noop

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/pure-golang/ticket-mailer/logger"
	"github.com/pure-golang/ticket-mailer/mail"
)

var _ mail.Sender = (*Sender)(nil)

// Sender records emails instead of delivering them. Used for dry runs.
type Sender struct {
	mx     sync.Mutex
	sent   []mail.Email
	closed bool
}

// NewSender creates a new no-op Sender.
func NewSender() *Sender {
	return &Sender{}
}

// Verify always succeeds while the sender is open.
func (n *Sender) Verify(ctx context.Context) error {
	n.mx.Lock()
	defer n.mx.Unlock()

	if n.closed {
		return errors.New("sender is closed")
	}
	return nil
}

// Send keeps the emails in memory.
func (n *Sender) Send(ctx context.Context, emails ...mail.Email) error {
	n.mx.Lock()
	defer n.mx.Unlock()

	if n.closed {
		return errors.New("sender is closed")
	}

	for _, email := range emails {
		logger.FromContext(ctx).Info("dry run: email discarded",
			slog.Any("to", email.Recipients()),
			slog.String("subject", email.Subject),
			slog.Int("attachments", len(email.Attachments)),
		)
		n.sent = append(n.sent, email)
	}
	return nil
}

// Sent returns a copy of everything passed to Send.
func (n *Sender) Sent() []mail.Email {
	n.mx.Lock()
	defer n.mx.Unlock()

	return append([]mail.Email(nil), n.sent...)
}

// Close marks the sender closed.
func (n *Sender) Close() error {
	n.mx.Lock()
	defer n.mx.Unlock()

	n.closed = true
	return nil
}
