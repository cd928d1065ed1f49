// File: pkg/storage/aws/buckets.go
package aws

import (
	"context"
	"errors"
	"fmt"

	"bucketeer/pkg/common"
	"bucketeer/pkg/storage"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func (s *S3Storage) ListBuckets(ctx context.Context) ([]storage.Bucket, error) {
	s.logger.Debug("Listing buckets", "region", s.region)

	var buckets []storage.Bucket
	paginator := s3.NewListBucketsPaginator(s.client, &s3.ListBucketsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list buckets: %w", err)
		}
		for _, b := range page.Buckets {
			buckets = append(buckets, mapBucket(s.provider, s.region, b))
		}
	}
	return buckets, nil
}

// CreateBucket creates bucket in location (the client region when empty).
// A bucket the caller already owns is not an error.
func (s *S3Storage) CreateBucket(ctx context.Context, bucket, location string) error {
	if location == "" {
		location = s.region
	}
	input := &s3.CreateBucketInput{
		Bucket: awssdk.String(bucket),
	}
	// us-east-1 rejects an explicit constraint, and Spaces takes the region from the endpoint
	if s.provider == common.AWS && location != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(location),
		}
	}

	s.logger.Debug("Creating bucket", "bucket", bucket, "location", location)
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) || errorCode(err) == "BucketAlreadyOwnedByYou" {
			s.logger.Debug("Bucket already owned", "bucket", bucket)
			return nil
		}
		return wrapError("CreateBucket", bucket, "", err)
	}
	return nil
}

// DescribeBucket reports region, versioning and usage. Usage is the sum of object sizes,
// so it costs one listing request per thousand objects.
func (s *S3Storage) DescribeBucket(ctx context.Context, bucket string) (storage.Bucket, error) {
	head, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: awssdk.String(bucket)})
	if err != nil {
		return storage.Bucket{}, wrapError("HeadBucket", bucket, "", err)
	}

	result := storage.Bucket{
		Name:         bucket,
		Provider:     s.provider,
		Location:     s.region,
		StorageClass: string(types.StorageClassStandard),
		UsageBytes:   -1,
	}
	if region := awssdk.ToString(head.BucketRegion); region != "" {
		result.Location = region
	}

	versioning, err := s.client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: awssdk.String(bucket)})
	if err != nil {
		s.logger.Warn("Could not read bucket versioning", "bucket", bucket, "error", err)
	} else {
		result.Versioning = &storage.Versioning{Enabled: versioning.Status == types.BucketVersioningStatusEnabled}
	}

	usage, err := s.bucketUsage(ctx, bucket)
	if err != nil {
		s.logger.Warn("Could not compute bucket usage", "bucket", bucket, "error", err)
	} else {
		result.UsageBytes = usage
	}

	return result, nil
}

func (s *S3Storage) bucketUsage(ctx context.Context, bucket string) (int64, error) {
	var total int64
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: awssdk.String(bucket)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		for _, obj := range page.Contents {
			total += awssdk.ToInt64(obj.Size)
		}
	}
	return total, nil
}
