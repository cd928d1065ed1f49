// File: pkg/storage/aws/objects.go
package aws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"bucketeer/pkg/storage"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func (s *S3Storage) HeadBucket(ctx context.Context, bucket string) error {
	s.logger.Debug("Probing bucket", "bucket", bucket)
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: awssdk.String(bucket)}); err != nil {
		return wrapError("HeadBucket", bucket, "", err)
	}
	return nil
}

// PutObject streams body through the upload manager, which switches to multipart for large bodies
func (s *S3Storage) PutObject(ctx context.Context, bucket, key string, body io.Reader, opts storage.PutOptions) error {
	uploader := manager.NewUploader(s.client, func(u *manager.Uploader) {
		u.LeavePartsOnError = false
		if s.partSize >= manager.MinUploadPartSize {
			u.PartSize = s.partSize
		}
	})

	input := &s3.PutObjectInput{
		Bucket: awssdk.String(bucket),
		Key:    awssdk.String(key),
		Body:   body,
	}
	applyPutOptions(opts, &input.ContentType, &input.CacheControl, &input.ACL)

	s.logger.Debug("Uploading object", "bucket", bucket, "key", key, "size", opts.Size)
	if _, err := uploader.Upload(ctx, input); err != nil {
		return wrapError("PutObject", bucket, key, err)
	}
	return nil
}

func applyPutOptions(opts storage.PutOptions, contentType, cacheControl **string, acl *types.ObjectCannedACL) {
	if opts.ContentType != "" {
		*contentType = awssdk.String(opts.ContentType)
	}
	if opts.CacheControl != "" {
		*cacheControl = awssdk.String(opts.CacheControl)
	}
	if opts.ACL != "" {
		*acl = types.ObjectCannedACL(opts.ACL)
	}
}

func (s *S3Storage) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(bucket),
		Key:    awssdk.String(key),
	})
	if err != nil {
		return nil, wrapError("GetObject", bucket, key, err)
	}
	return out.Body, nil
}

func (s *S3Storage) HeadObject(ctx context.Context, bucket, key string) (storage.Object, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: awssdk.String(bucket),
		Key:    awssdk.String(key),
	})
	if err != nil {
		return storage.Object{}, wrapError("HeadObject", bucket, key, err)
	}
	return mapHeadObject(bucket, key, s.provider, out), nil
}

func (s *S3Storage) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: awssdk.String(bucket),
		Key:    awssdk.String(key),
	})
	if err != nil {
		return wrapError("DeleteObject", bucket, key, err)
	}
	return nil
}

// DeleteObjects issues one quiet batch delete; per-key failures come back as *storage.BatchDeleteError
func (s *S3Storage) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if len(keys) > storage.MaxDeleteBatch {
		return fmt.Errorf("batch of %d keys exceeds the limit of %d", len(keys), storage.MaxDeleteBatch)
	}

	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, types.ObjectIdentifier{Key: awssdk.String(key)})
	}

	s.logger.Debug("Deleting object batch", "bucket", bucket, "keys", len(keys))
	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: awssdk.String(bucket),
		Delete: &types.Delete{
			Objects: ids,
			Quiet:   awssdk.Bool(true),
		},
	})
	if err != nil {
		return wrapError("DeleteObjects", bucket, "", err)
	}
	if len(out.Errors) == 0 {
		return nil
	}

	failed := make([]storage.KeyError, 0, len(out.Errors))
	for _, e := range out.Errors {
		failed = append(failed, storage.KeyError{
			Key:  awssdk.ToString(e.Key),
			Code: awssdk.ToString(e.Code),
			Err:  errors.New(awssdk.ToString(e.Message)),
		})
	}
	return &storage.BatchDeleteError{Failed: failed}
}

func (s *S3Storage) MaxBatchDelete() int {
	return storage.MaxDeleteBatch
}

func (s *S3Storage) ListPage(ctx context.Context, bucket string, opts storage.ListOptions) (storage.ListResult, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: awssdk.String(bucket),
	}
	if opts.Prefix != "" {
		input.Prefix = awssdk.String(opts.Prefix)
	}
	if opts.Delimiter != "" {
		input.Delimiter = awssdk.String(opts.Delimiter)
	}
	if opts.ContinuationToken != "" {
		input.ContinuationToken = awssdk.String(opts.ContinuationToken)
	}
	if opts.MaxKeys > 0 {
		input.MaxKeys = awssdk.Int32(int32(min(opts.MaxKeys, storage.MaxDeleteBatch)))
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return storage.ListResult{}, wrapError("ListObjectsV2", bucket, opts.Prefix, err)
	}
	return mapListResult(bucket, s.provider, out), nil
}

// PresignGetObject signs a GET for key valid for ttl
func (s *S3Storage) PresignGetObject(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if s.presigner == nil {
		return "", storage.ErrUnsupported
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(bucket),
		Key:    awssdk.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", wrapError("PresignGetObject", bucket, key, err)
	}
	return req.URL, nil
}
