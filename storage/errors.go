package storage

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound       ErrorCode = "NotFound"
	CodeAccessDenied   ErrorCode = "AccessDenied"
	CodeBucketNotFound ErrorCode = "BucketNotFound"
	CodeInternalError  ErrorCode = "InternalError"
)

// StorageError carries the classified cause of a failed storage call.
type StorageError struct {
	Code   ErrorCode
	Bucket string
	Key    string
	Err    error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage.%s: %s/%s: %v", e.Code, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("storage.%s: %s/%s", e.Code, e.Bucket, e.Key)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr) && storageErr.Code == code
}

func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound) || hasCode(err, CodeBucketNotFound)
}

func IsAccessDenied(err error) bool {
	return hasCode(err, CodeAccessDenied)
}
