package objectfetch

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/ticket-mailer/storage"
)

type object struct {
	body   []byte
	closed bool
}

func (o *object) Read(p []byte) (int, error) {
	if len(o.body) == 0 {
		return 0, io.EOF
	}
	n := copy(p, o.body)
	o.body = o.body[n:]
	return n, nil
}

func (o *object) Close() error {
	o.closed = true
	return nil
}

type fakeGetter struct {
	objects map[string][]byte
	opened  []*object
	calls   [][2]string
}

func (g *fakeGetter) Get(_ context.Context, bucket, key string) (io.ReadCloser, *storage.ObjectInfo, error) {
	g.calls = append(g.calls, [2]string{bucket, key})
	body, ok := g.objects[bucket+"/"+key]
	if !ok {
		return nil, nil, &storage.StorageError{Code: storage.CodeNotFound, Bucket: bucket, Key: key}
	}
	obj := &object{body: bytes.Clone(body)}
	g.opened = append(g.opened, obj)
	return obj, &storage.ObjectInfo{Bucket: bucket, Key: key, Size: int64(len(body))}, nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
func (failingReader) Close() error             { return nil }

type failingGetter struct{}

func (failingGetter) Get(context.Context, string, string) (io.ReadCloser, *storage.ObjectInfo, error) {
	return failingReader{}, nil, nil
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		url    string
		bucket string
		key    string
		err    bool
	}{
		{url: "s3://tickets/2024/show.pdf", bucket: "tickets", key: "2024/show.pdf"},
		{url: "S3://tickets/a.pdf", bucket: "tickets", key: "a.pdf"},
		{url: "s3:///a.pdf", bucket: "", key: "a.pdf"},
		{url: "s3://tickets", err: true},
		{url: "s3://tickets/", err: true},
		{url: "http://tickets/a.pdf", err: true},
		{url: "s3://%zz/a.pdf", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			bucket, key, err := ParseURL(tt.url)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestFetcher_Fetch(t *testing.T) {
	getter := &fakeGetter{objects: map[string][]byte{"tickets/events/42.pdf": []byte("%PDF-1.7")}}
	f := New(getter)

	body, err := f.Fetch(context.Background(), "s3://tickets/events/42.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), body)
	assert.Equal(t, [][2]string{{"tickets", "events/42.pdf"}}, getter.calls)
	require.Len(t, getter.opened, 1)
	assert.True(t, getter.opened[0].closed)
}

func TestFetcher_Fetch_NotFound(t *testing.T) {
	f := New(&fakeGetter{})

	_, err := f.Fetch(context.Background(), "s3://tickets/missing.pdf")
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err))
}

func TestFetcher_Fetch_BadURL(t *testing.T) {
	getter := &fakeGetter{}
	_, err := New(getter).Fetch(context.Background(), "s3://tickets")
	require.Error(t, err)
	assert.Empty(t, getter.calls)
}

func TestFetcher_Fetch_ReadError(t *testing.T) {
	_, err := New(failingGetter{}).Fetch(context.Background(), "s3://tickets/a.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
