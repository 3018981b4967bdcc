package minio

import (
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/ticket-mailer/storage"
)

func TestToStorageError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code storage.ErrorCode
	}{
		{"no such key", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}, storage.CodeNotFound},
		{"stat not found", minio.ErrorResponse{Code: "NotFound", StatusCode: http.StatusNotFound}, storage.CodeNotFound},
		{"no such bucket", minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: http.StatusNotFound}, storage.CodeBucketNotFound},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}, storage.CodeAccessDenied},
		{"bad key id", minio.ErrorResponse{Code: "InvalidAccessKeyId", StatusCode: http.StatusForbidden}, storage.CodeAccessDenied},
		{"bare 404", minio.ErrorResponse{StatusCode: http.StatusNotFound}, storage.CodeNotFound},
		{"bare 403", minio.ErrorResponse{StatusCode: http.StatusForbidden}, storage.CodeAccessDenied},
		{"server error", minio.ErrorResponse{Code: "InternalError", StatusCode: http.StatusInternalServerError}, storage.CodeInternalError},
		{"transport error", errors.New("dial tcp: connection refused"), storage.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := toStorageError(tt.err, "tickets", "a.pdf")

			var storageErr *storage.StorageError
			require.True(t, errors.As(err, &storageErr))
			assert.Equal(t, tt.code, storageErr.Code)
			assert.Equal(t, "tickets", storageErr.Bucket)
			assert.Equal(t, "a.pdf", storageErr.Key)
			assert.Equal(t, tt.err, errors.Unwrap(err))
		})
	}
}

func TestToStorageError_Nil(t *testing.T) {
	assert.NoError(t, toStorageError(nil, "b", "k"))
}
