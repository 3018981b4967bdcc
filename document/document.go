// Package document resolves the PDF that travels as the ticket attachment,
// either from an inline payload or from a URL.
package document

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind tells which variant a Payload holds.
type Kind uint8

const (
	KindNone Kind = iota
	KindInlineBase64
	KindRawBytes
)

func (k Kind) String() string {
	switch k {
	case KindInlineBase64:
		return "inline_base64"
	case KindRawBytes:
		return "raw_bytes"
	default:
		return "none"
	}
}

// Payload is an inline document: base64 text or raw bytes.
type Payload struct {
	kind Kind
	text string
	raw  []byte
}

// InlineBase64 wraps base64 encoded document text.
func InlineBase64(s string) Payload {
	return Payload{kind: KindInlineBase64, text: s}
}

// RawBytes wraps document bytes as they are.
func RawBytes(b []byte) Payload {
	return Payload{kind: KindRawBytes, raw: b}
}

func (p Payload) Kind() Kind {
	return p.kind
}

// IsZero reports whether the payload carries nothing usable. Empty text and
// empty byte slices count as absent, so a zero-length buffer is rejected as a
// missing parameter rather than mailed as an empty attachment.
func (p Payload) IsZero() bool {
	switch p.kind {
	case KindInlineBase64:
		return p.text == ""
	case KindRawBytes:
		return len(p.raw) == 0
	default:
		return true
	}
}

// Bytes returns the document content.
func (p Payload) Bytes() ([]byte, error) {
	switch p.kind {
	case KindInlineBase64:
		return DecodeBase64(p.text)
	case KindRawBytes:
		return p.raw, nil
	default:
		return nil, ErrEmptyPayload
	}
}

// ErrEmptyPayload is returned by Bytes on an absent payload.
var ErrEmptyPayload = errors.New("empty payload")

// DecodeBase64 decodes leniently: whitespace is ignored, padding is optional
// and the URL-safe alphabet is accepted.
func DecodeBase64(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		case '-':
			return '+'
		case '_':
			return '/'
		}
		return r
	}, s)
	cleaned = strings.TrimRight(cleaned, "=")

	decoded, err := base64.RawStdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base64")
	}
	return decoded, nil
}

// Fetcher downloads a document by URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, rawURL string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return f(ctx, rawURL)
}

// StatusError is an upstream response other than 200 OK.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Failed to get PDF: %d", e.Code)
}
