package smtp

import (
	"bytes"
	netmail "net/mail"
	"strings"
	"unicode"

	jemail "github.com/jordan-wright/email"
	"github.com/pkg/errors"

	"github.com/pure-golang/ticket-mailer/mail"
)

// buildMessage renders the RFC 5322 message. Bcc never reaches the headers.
func buildMessage(email mail.Email, from string) ([]byte, error) {
	e := jemail.NewEmail()
	e.From = formatAddress(mail.Address{Name: email.From.Name, Address: from})
	e.To = formatAddressList(email.To)
	e.Cc = formatAddressList(email.Cc)
	e.Subject = email.Subject
	e.Text = []byte(email.Body)
	if email.HTML != "" {
		e.HTML = []byte(email.HTML)
	}

	for k, v := range email.Headers {
		e.Headers.Set(k, sanitizeHeader(v))
	}

	for _, a := range email.Attachments {
		if _, err := e.Attach(bytes.NewReader(a.Content), sanitizeFilename(a.Filename), a.ContentType); err != nil {
			return nil, errors.Wrapf(err, "failed to attach %q", a.Filename)
		}
	}

	msg, err := e.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "failed to render message")
	}
	return msg, nil
}

// formatAddress formats a single address, encoding non-ASCII display names.
func formatAddress(addr mail.Address) string {
	if addr.Name == "" {
		return addr.Address
	}
	return (&netmail.Address{Name: addr.Name, Address: addr.Address}).String()
}

// formatAddressList formats a list of addresses.
func formatAddressList(addrs []mail.Address) []string {
	if len(addrs) == 0 {
		return nil
	}
	formatted := make([]string, len(addrs))
	for i, addr := range addrs {
		formatted[i] = formatAddress(addr)
	}
	return formatted
}

// sanitizeFilename strips control characters so a filename cannot inject
// headers into the attachment part.
func sanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '"' {
			return -1
		}
		return r
	}, name)
	if cleaned == "" {
		return "attachment"
	}
	return cleaned
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}
