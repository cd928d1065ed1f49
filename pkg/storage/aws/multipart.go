// File: pkg/storage/aws/multipart.go
package aws

import (
	"bytes"
	"context"

	"bucketeer/pkg/storage"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func (s *S3Storage) CreateMultipartUpload(ctx context.Context, bucket, key string, opts storage.PutOptions) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: awssdk.String(bucket),
		Key:    awssdk.String(key),
	}
	applyPutOptions(opts, &input.ContentType, &input.CacheControl, &input.ACL)

	out, err := s.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", wrapError("CreateMultipartUpload", bucket, key, err)
	}
	return awssdk.ToString(out.UploadId), nil
}

func (s *S3Storage) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body []byte) (storage.Part, error) {
	out, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        awssdk.String(bucket),
		Key:           awssdk.String(key),
		UploadId:      awssdk.String(uploadID),
		PartNumber:    awssdk.Int32(partNumber),
		Body:          bytes.NewReader(body),
		ContentLength: awssdk.Int64(int64(len(body))),
	})
	if err != nil {
		return storage.Part{}, wrapError("UploadPart", bucket, key, err)
	}
	return storage.Part{PartNumber: partNumber, ETag: awssdk.ToString(out.ETag)}, nil
}

func (s *S3Storage) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []storage.Part) error {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, types.CompletedPart{
			PartNumber: awssdk.Int32(p.PartNumber),
			ETag:       awssdk.String(p.ETag),
		})
	}

	_, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          awssdk.String(bucket),
		Key:             awssdk.String(key),
		UploadId:        awssdk.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return wrapError("CompleteMultipartUpload", bucket, key, err)
	}
	return nil
}

func (s *S3Storage) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   awssdk.String(bucket),
		Key:      awssdk.String(key),
		UploadId: awssdk.String(uploadID),
	})
	if err != nil {
		return wrapError("AbortMultipartUpload", bucket, key, err)
	}
	return nil
}
