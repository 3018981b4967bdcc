package smtptest

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	netmail "net/mail"
	"strings"

	"github.com/pkg/errors"
)

// Parsed is a decoded view of a received message.
type Parsed struct {
	Header      netmail.Header
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Attachment is a decoded attachment part.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Parse decodes headers, text bodies and attachments of a raw message.
func Parse(data []byte) (*Parsed, error) {
	msg, err := netmail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read message")
	}

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode subject")
	}

	p := &Parsed{Header: msg.Header, Subject: subject}
	err = p.walk(part{
		contentType: msg.Header.Get("Content-Type"),
		encoding:    msg.Header.Get("Content-Transfer-Encoding"),
		disposition: msg.Header.Get("Content-Disposition"),
		body:        msg.Body,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

type part struct {
	contentType string
	encoding    string
	disposition string
	body        io.Reader
}

func (p *Parsed) walk(pt part) error {
	mediaType, params, err := mime.ParseMediaType(pt.contentType)
	if err != nil {
		mediaType, params = "text/plain", map[string]string{}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		reader := multipart.NewReader(pt.body, params["boundary"])
		for {
			next, err := reader.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return errors.Wrap(err, "failed to read part")
			}
			err = p.walk(part{
				contentType: next.Header.Get("Content-Type"),
				encoding:    next.Header.Get("Content-Transfer-Encoding"),
				disposition: next.Header.Get("Content-Disposition"),
				body:        next,
			})
			if err != nil {
				return err
			}
		}
	}

	content, err := io.ReadAll(decode(pt.encoding, pt.body))
	if err != nil {
		return errors.Wrapf(err, "failed to decode %s part", mediaType)
	}

	if disposition, dparams, err := mime.ParseMediaType(pt.disposition); err == nil && disposition == "attachment" {
		p.Attachments = append(p.Attachments, Attachment{
			Filename:    dparams["filename"],
			ContentType: mediaType,
			Content:     content,
		})
		return nil
	}

	switch mediaType {
	case "text/plain":
		p.Text += string(content)
	case "text/html":
		p.HTML += string(content)
	}
	return nil
}

func decode(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}
