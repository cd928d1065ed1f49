// File: pkg/spaces/buckets.go
package spaces

import (
	"context"
	"errors"

	"bucketeer/pkg/storage"
)

// ListBuckets returns every bucket visible to the credentials. No binding is required.
func (c *Client) ListBuckets(ctx context.Context) ([]storage.Bucket, error) {
	bm, ok := c.store.(storage.BucketManager)
	if !ok {
		return nil, opError("list buckets", "", "", storage.ErrStore, storage.ErrUnsupported)
	}

	c.logger.Debug("Listing buckets")
	buckets, err := bm.ListBuckets(ctx)
	if err != nil {
		return nil, opError("list buckets", "", "", storage.ErrStore, err)
	}
	return buckets, nil
}

// CreateBucket creates bucketName, or the default bucket when bucketName is empty.
// It does not change the current binding.
func (c *Client) CreateBucket(ctx context.Context, bucketName, location string) (string, error) {
	if bucketName == "" {
		bucketName = c.opts.DefaultBucket
	}
	if bucketName == "" {
		return "", opError("create bucket", "", "", storage.ErrConfiguration,
			errors.New("no bucket name given and no default bucket configured"))
	}
	bm, ok := c.store.(storage.BucketManager)
	if !ok {
		return "", opError("create bucket", bucketName, "", storage.ErrStore, storage.ErrUnsupported)
	}

	c.logger.Debug("Creating bucket", "bucket", bucketName, "location", location)
	if err := bm.CreateBucket(ctx, bucketName, location); err != nil {
		return "", opError("create bucket", bucketName, "", storage.ErrStore, err)
	}
	return bucketName, nil
}

// DescribeBucket returns the details of the bound bucket
func (c *Client) DescribeBucket(ctx context.Context) (storage.Bucket, error) {
	bucket, err := c.bound("describe bucket", "")
	if err != nil {
		return storage.Bucket{}, err
	}
	bm, ok := c.store.(storage.BucketManager)
	if !ok {
		return storage.Bucket{}, opError("describe bucket", bucket, "", storage.ErrStore, storage.ErrUnsupported)
	}

	c.logger.Debug("Describing bucket", "bucket", bucket)
	b, err := bm.DescribeBucket(ctx, bucket)
	if err != nil {
		return storage.Bucket{}, storeError("describe bucket", bucket, "", err)
	}
	return b, nil
}
