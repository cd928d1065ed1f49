// File: pkg/storage/aws/errors.go
package aws

import (
	"errors"
	"fmt"
	"net/http"

	"bucketeer/pkg/storage"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// isNotFound recognises missing keys and buckets across the typed, coded and bare-status
// forms the SDK reports them in. HEAD requests carry no body, so only the status survives.
func isNotFound(err error) bool {
	var (
		notFound     *types.NotFound
		noSuchKey    *types.NoSuchKey
		noSuchBucket *types.NoSuchBucket
	)
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}

	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}

// wrapError annotates err with the failed call and marks not-found conditions with storage.ErrNotFound
func wrapError(call, bucket, key string, err error) error {
	target := bucket
	if key != "" {
		target = bucket + storage.Separator + key
	}
	if isNotFound(err) {
		return fmt.Errorf("%s %s: %w: %w", call, target, storage.ErrNotFound, err)
	}
	return fmt.Errorf("%s %s: %w", call, target, err)
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
