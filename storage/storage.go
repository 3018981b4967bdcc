package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo is the metadata returned alongside an object body.
type ObjectInfo struct {
	Bucket       string
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
	ContentType  string
}

// Getter reads objects. An empty bucket selects the backend's default bucket.
type Getter interface {
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, *ObjectInfo, error)
}

// Storage is a read-only object store.
type Storage interface {
	Getter
	io.Closer
}
