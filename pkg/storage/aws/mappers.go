// File: pkg/storage/aws/mappers.go
package aws

import (
	"strings"

	"bucketeer/pkg/common"
	"bucketeer/pkg/storage"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func mapListedObject(bucket string, provider common.Provider, obj types.Object) storage.Object {
	return storage.Object{
		Key:          awssdk.ToString(obj.Key),
		Bucket:       bucket,
		Provider:     provider,
		Size:         awssdk.ToInt64(obj.Size),
		ETag:         awssdk.ToString(obj.ETag),
		StorageClass: string(obj.StorageClass),
		LastModified: awssdk.ToTime(obj.LastModified),
	}
}

func mapHeadObject(bucket, key string, provider common.Provider, out *s3.HeadObjectOutput) storage.Object {
	storageClass := string(out.StorageClass)
	if storageClass == "" {
		// S3 omits the header for the default class
		storageClass = string(types.StorageClassStandard)
	}
	return storage.Object{
		Key:          key,
		Bucket:       bucket,
		Provider:     provider,
		Size:         awssdk.ToInt64(out.ContentLength),
		ETag:         awssdk.ToString(out.ETag),
		ContentType:  awssdk.ToString(out.ContentType),
		CacheControl: awssdk.ToString(out.CacheControl),
		StorageClass: storageClass,
		LastModified: awssdk.ToTime(out.LastModified),
		Metadata:     out.Metadata,
	}
}

func mapListResult(bucket string, provider common.Provider, out *s3.ListObjectsV2Output) storage.ListResult {
	result := storage.ListResult{
		Objects:        make([]storage.Object, 0, len(out.Contents)),
		CommonPrefixes: make([]string, 0, len(out.CommonPrefixes)),
		IsTruncated:    awssdk.ToBool(out.IsTruncated),
	}
	for _, obj := range out.Contents {
		result.Objects = append(result.Objects, mapListedObject(bucket, provider, obj))
	}
	for _, cp := range out.CommonPrefixes {
		result.CommonPrefixes = append(result.CommonPrefixes, awssdk.ToString(cp.Prefix))
	}
	if result.IsTruncated {
		result.ContinuationToken = awssdk.ToString(out.NextContinuationToken)
	}
	return result
}

func mapBucket(provider common.Provider, defaultRegion string, b types.Bucket) storage.Bucket {
	location := awssdk.ToString(b.BucketRegion)
	if location == "" {
		location = defaultRegion
	}
	return storage.Bucket{
		Name:         awssdk.ToString(b.Name),
		Provider:     provider,
		Location:     strings.ToLower(location),
		StorageClass: string(types.StorageClassStandard),
		CreatedAt:    awssdk.ToTime(b.CreationDate),
		UsageBytes:   -1,
	}
}
