package mail

import (
	"context"
	"io"
)

// Sender delivers emails through a mail transport.
type Sender interface {
	// Verify checks connectivity and credentials before a delivery.
	Verify(ctx context.Context) error
	Send(ctx context.Context, emails ...Email) error
	io.Closer
}

// Email represents an email message.
type Email struct {
	// Envelope
	From    Address
	To      []Address
	Cc      []Address
	Bcc     []Address
	Subject string

	// Headers
	Headers map[string]string

	// Body
	Body string // Plain text body
	HTML string // HTML body (optional)

	Attachments []Attachment
}

// Address represents an email address.
type Address struct {
	Name    string // "Maria Silva"
	Address string // "maria@example.com"
}

// Attachment is a file carried by the message.
type Attachment struct {
	Filename    string
	ContentType string // detected from Filename when empty
	Content     []byte
}

// Recipients returns envelope recipients in To, Cc, Bcc order.
func (e Email) Recipients() []string {
	result := make([]string, 0, len(e.To)+len(e.Cc)+len(e.Bcc))
	for _, list := range [][]Address{e.To, e.Cc, e.Bcc} {
		for _, addr := range list {
			result = append(result, addr.Address)
		}
	}
	return result
}
