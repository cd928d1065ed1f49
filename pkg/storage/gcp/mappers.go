// File: pkg/storage/gcp/mappers.go
package gcp

import (
	"errors"
	"strconv"

	"bucketeer/pkg/common"
	"bucketeer/pkg/storage"

	gcpstorage "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// Maps GCP SDK object attributes to the domain model
func mapObjectAttributes(attrs *gcpstorage.ObjectAttrs) storage.Object {
	if attrs == nil {
		return storage.Object{}
	}

	return storage.Object{
		Key:          attrs.Name,
		Bucket:       attrs.Bucket,
		Provider:     common.GCP,
		Size:         attrs.Size,
		StorageClass: attrs.StorageClass,
		LastModified: attrs.Updated,
		ETag:         attrs.Etag,
		ContentType:  attrs.ContentType,
		CacheControl: attrs.CacheControl,
		Metadata:     attrs.Metadata,
	}
}

// Splits a delimited listing page into objects and synthetic prefix entries
func mapListPage(page []*gcpstorage.ObjectAttrs, nextToken string) storage.ListResult {
	result := storage.ListResult{
		Objects:           []storage.Object{},
		CommonPrefixes:    []string{},
		ContinuationToken: nextToken,
		IsTruncated:       nextToken != "",
	}
	for _, attrs := range page {
		// If attrs.Prefix is set, it's a common prefix (directory)
		if attrs.Prefix != "" {
			result.CommonPrefixes = append(result.CommonPrefixes, attrs.Prefix)
			continue
		}
		result.Objects = append(result.Objects, mapObjectAttributes(attrs))
	}
	return result
}

func mapBucketAttrs(attrs *gcpstorage.BucketAttrs, usage int64) storage.Bucket {
	return storage.Bucket{
		Name:         attrs.Name,
		Provider:     common.GCP,
		Location:     attrs.Location,
		StorageClass: attrs.StorageClass,
		CreatedAt:    attrs.Created,
		UpdatedAt:    attrs.Updated,
		UsageBytes:   usage,
		Labels:       attrs.Labels,
		Versioning:   &storage.Versioning{Enabled: attrs.VersioningEnabled},
	}
}

// Translates an S3 canned ACL into the GCS predefined ACL name. Empty input maps to the
// bucket default; ACLs without a GCS counterpart report false.
func mapCannedACL(acl string) (string, bool) {
	switch acl {
	case "":
		return "", true
	case "private":
		return "private", true
	case "public-read":
		return "publicRead", true
	case "authenticated-read":
		return "authenticatedRead", true
	case "bucket-owner-read":
		return "bucketOwnerRead", true
	case "bucket-owner-full-control":
		return "bucketOwnerFullControl", true
	default:
		return "", false
	}
}

func errorCode(err error) string {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.Code)
	}
	return ""
}
