package minio

import (
	"context"
	"crypto/tls"
	"log/slog"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// Client owns the minio connection settings and checks reachability at start.
type Client struct {
	client *minio.Client
	cfg    Config
	logger *slog.Logger
	mu     sync.RWMutex
	closed bool
}

type ClientOptions struct {
	Logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, options *ClientOptions) (*Client, error) {
	if options == nil {
		options = &ClientOptions{}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	logger := options.Logger.WithGroup("s3")

	transport, err := minio.DefaultTransport(cfg.Secure)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build S3 transport")
	}
	if cfg.Secure && cfg.InsecureSkipVerify {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true // #nosec G402 -- controlled by config
	}

	endpoint := cfg.GetEndpoint()
	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Region:    cfg.Region,
		Secure:    cfg.Secure,
		Transport: transport,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create S3 client")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	// A scoped key may not list buckets, so probe the default bucket when there is one.
	if cfg.DefaultBucket != "" {
		ok, err := client.BucketExists(ctx, cfg.DefaultBucket)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to S3 storage")
		}
		if !ok {
			return nil, errors.Errorf("bucket %q does not exist", cfg.DefaultBucket)
		}
	} else if _, err := client.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to connect to S3 storage")
	}

	logger.Info("S3 client initialized", "endpoint", endpoint, "region", cfg.Region, "bucket", cfg.DefaultBucket)

	return &Client{
		client: client,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Minio exposes the underlying client, mainly for seeding buckets in tests.
func (c *Client) Minio() *minio.Client {
	return c.client
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Info("S3 client closed")
	return nil
}

func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
