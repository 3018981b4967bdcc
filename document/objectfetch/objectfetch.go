// Package objectfetch resolves s3://bucket/key URLs against object storage.
package objectfetch

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/ticket-mailer/document"
	"github.com/pure-golang/ticket-mailer/logger"
	"github.com/pure-golang/ticket-mailer/storage"
)

const Scheme = "s3"

var _ document.Fetcher = (*Fetcher)(nil)

var tracer = otel.Tracer("github.com/pure-golang/ticket-mailer/document/objectfetch")

type Fetcher struct {
	getter storage.Getter
}

func New(getter storage.Getter) *Fetcher {
	return &Fetcher{getter: getter}
}

// ParseURL splits s3://bucket/key. An empty bucket (s3:///key) means the
// storage default bucket.
func ParseURL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", errors.Wrap(err, "invalid object url")
	}
	if !strings.EqualFold(u.Scheme, Scheme) {
		return "", "", errors.Errorf("unsupported object url scheme %q", u.Scheme)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", errors.Errorf("object url %q has no key", rawURL)
	}
	return u.Host, key, nil
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Object.Fetch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	bucket, key, err := ParseURL(rawURL)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("bucket", bucket), attribute.String("key", key))

	rc, _, err := f.getter.Get(ctx, bucket, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.WithStack(err)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			logger.FromContextWithErr(ctx, err).Warn("failed to close object body")
		}
	}()

	body, err := io.ReadAll(rc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrapf(err, "failed to read object %s/%s", bucket, key)
	}

	span.SetAttributes(attribute.Int("size", len(body)))
	span.SetStatus(codes.Ok, "")
	logger.FromContext(ctx).Debug("object downloaded", "bucket", bucket, "key", key, "size", len(body))
	return body, nil
}
