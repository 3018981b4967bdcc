package minio

import (
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"

	"github.com/pure-golang/ticket-mailer/storage"
)

// toStorageError classifies a minio error by its S3 error code.
func toStorageError(err error, bucket, key string) error {
	if err == nil {
		return nil
	}

	code := storage.CodeInternalError
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		code = storage.CodeNotFound
	case "NoSuchBucket":
		code = storage.CodeBucketNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		code = storage.CodeAccessDenied
	default:
		switch resp.StatusCode {
		case 404:
			code = storage.CodeNotFound
		case 403:
			code = storage.CodeAccessDenied
		}
	}

	return &storage.StorageError{
		Code:   code,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

var errClosed = errors.New("client is closed")
