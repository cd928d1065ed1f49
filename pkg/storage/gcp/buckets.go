// File: pkg/storage/gcp/buckets.go
package gcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"bucketeer/pkg/storage"

	gcpstorage "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

func (g *GCPStorage) ListBuckets(ctx context.Context) ([]storage.Bucket, error) {
	g.logger.Debug("Starting GCP ListBuckets operation")
	var buckets []storage.Bucket

	usageMap, err := g.bucketUsage(ctx, "")
	if err != nil {
		// Listing still works without the Monitoring API; usage is reported as N/A
		g.logger.Warn("Failed to retrieve GCP bucket usage metrics, usage will be reported as N/A", "error", err)
		usageMap = map[string]int64{}
	}

	it := g.client.Buckets(ctx, g.projectID)
	for {
		bucketAttrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing buckets metadata: %w", err)
		}

		usage := int64(-1)
		if u, ok := usageMap[bucketAttrs.Name]; ok {
			usage = u
		}
		buckets = append(buckets, mapBucketAttrs(bucketAttrs, usage))
	}

	return buckets, nil
}

func (g *GCPStorage) DescribeBucket(ctx context.Context, bucketName string) (storage.Bucket, error) {
	g.logger.Debug("Starting GCP DescribeBucket operation", "bucket", bucketName)

	attrs, err := g.client.Bucket(bucketName).Attrs(ctx)
	if err != nil {
		return storage.Bucket{}, wrapError("BucketAttrs", bucketName, "", err)
	}

	usage := int64(-1)
	usageMap, err := g.bucketUsage(ctx, bucketName)
	if err == nil {
		usage = usageMap[bucketName]
	} else {
		logLevel := slog.LevelWarn
		logMsg := "Failed to retrieve usage metrics due to API error, usage will be reported as N/A"

		if errors.Is(err, ErrMetricsNotFound) {
			logLevel = slog.LevelInfo
			logMsg = "Usage metrics not yet available (bucket may be new), usage will be reported as N/A"
		}

		g.logger.Log(ctx, logLevel, logMsg, "bucket", bucketName, "error", err)
	}

	return mapBucketAttrs(attrs, usage), nil
}

// CreateBucket creates bucketName in location. A conflicting name that the project can
// already read is treated as owned and not reported as an error.
func (g *GCPStorage) CreateBucket(ctx context.Context, bucketName string, location string) error {
	bucket := g.client.Bucket(bucketName)
	attrs := &gcpstorage.BucketAttrs{
		Location: location,
	}
	err := bucket.Create(ctx, g.projectID, attrs)
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
		if _, attrErr := bucket.Attrs(ctx); attrErr == nil {
			g.logger.Debug("Bucket already owned", "bucket", bucketName)
			return nil
		}
	}
	return fmt.Errorf("failed to create bucket: %w", err)
}
