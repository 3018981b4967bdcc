package minio

import (
	"context"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/ticket-mailer/storage"
)

var _ storage.Storage = (*Storage)(nil)

var tracer = otel.Tracer("github.com/pure-golang/ticket-mailer/storage/minio")

type Storage struct {
	client *Client
	logger *slog.Logger
}

type StorageOptions struct {
	Logger *slog.Logger
}

func NewStorage(client *Client, opts *StorageOptions) *Storage {
	if opts == nil {
		opts = &StorageOptions{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Storage{
		client: client,
		logger: opts.Logger.WithGroup("storage").With("backend", "s3"),
	}
}

func NewDefault(ctx context.Context, cfg Config) (*Storage, error) {
	client, err := NewClient(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}
	return NewStorage(client, nil), nil
}

// Get opens an object and stats it. The caller closes the returned body.
func (s *Storage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, *storage.ObjectInfo, error) {
	ctx, span := tracer.Start(ctx, "S3.Get", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if bucket == "" {
		bucket = s.client.cfg.DefaultBucket
	}
	span.SetAttributes(
		attribute.String("bucket", bucket),
		attribute.String("key", key),
	)

	if s.client.IsClosed() {
		err := &storage.StorageError{Code: storage.CodeInternalError, Bucket: bucket, Key: key, Err: errClosed}
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	obj, err := s.client.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, toStorageError(err, bucket, key)
	}

	// GetObject is lazy; Stat issues the request and surfaces missing keys.
	stat, err := obj.Stat()
	if err != nil {
		if closeErr := obj.Close(); closeErr != nil {
			s.logger.With("error", closeErr).Error("failed to close object after stat error")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, toStorageError(err, bucket, key)
	}

	span.SetAttributes(
		attribute.Int64("size", stat.Size),
		attribute.String("etag", stat.ETag),
	)
	span.SetStatus(codes.Ok, "")

	return obj, &storage.ObjectInfo{
		Bucket:       bucket,
		Key:          key,
		Size:         stat.Size,
		LastModified: stat.LastModified,
		ETag:         stat.ETag,
		ContentType:  stat.ContentType,
	}, nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}
