// File: pkg/storage/gcp/objects.go
package gcp

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"bucketeer/pkg/storage"

	gcpstorage "cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
)

const defaultPageSize = 1000

// Attributes fetched for listed objects; the rest are only needed by HeadObject
var listAttrs = []string{"Name", "Bucket", "Size", "Etag", "Updated", "StorageClass", "ContentType"}

func (g *GCPStorage) HeadBucket(ctx context.Context, bucket string) error {
	g.logger.Debug("Probing GCP bucket", "bucket", bucket)
	if _, err := g.client.Bucket(bucket).Attrs(ctx); err != nil {
		return wrapError("HeadBucket", bucket, "", err)
	}
	return nil
}

func (g *GCPStorage) PutObject(ctx context.Context, bucket, key string, body io.Reader, opts storage.PutOptions) error {
	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.CacheControl = opts.CacheControl
	if acl, ok := mapCannedACL(opts.ACL); ok {
		w.PredefinedACL = acl
	} else {
		g.logger.Warn("Canned ACL has no GCS equivalent, using the bucket default", "acl", opts.ACL)
	}

	g.logger.Debug("Uploading GCP object", "bucket", bucket, "key", key, "size", opts.Size)
	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return wrapError("PutObject", bucket, key, err)
	}
	// The object is only committed when Close succeeds
	if err := w.Close(); err != nil {
		return wrapError("PutObject", bucket, key, err)
	}
	return nil
}

func (g *GCPStorage) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	r, err := g.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, wrapError("GetObject", bucket, key, err)
	}
	return r, nil
}

func (g *GCPStorage) HeadObject(ctx context.Context, bucket, key string) (storage.Object, error) {
	g.logger.Debug("Describing GCP object", "bucket", bucket, "key", key)
	attrs, err := g.client.Bucket(bucket).Object(key).Attrs(ctx)
	if err != nil {
		return storage.Object{}, wrapError("HeadObject", bucket, key, err)
	}
	return mapObjectAttributes(attrs), nil
}

// DeleteObject treats an already missing object as deleted
func (g *GCPStorage) DeleteObject(ctx context.Context, bucket, key string) error {
	err := g.client.Bucket(bucket).Object(key).Delete(ctx)
	if err != nil && !isNotFound(err) {
		return wrapError("DeleteObject", bucket, key, err)
	}
	return nil
}

// DeleteObjects fans single deletes out with bounded concurrency; every key is attempted
func (g *GCPStorage) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	if len(keys) > storage.MaxDeleteBatch {
		return fmt.Errorf("batch of %d keys exceeds the limit of %d", len(keys), storage.MaxDeleteBatch)
	}
	g.logger.Debug("Deleting GCP object batch", "bucket", bucket, "keys", len(keys))

	var (
		mu     sync.Mutex
		failed []storage.KeyError
		eg     errgroup.Group
	)
	eg.SetLimit(g.deleteConcurrency)

	handle := g.client.Bucket(bucket)
	for _, key := range keys {
		eg.Go(func() error {
			err := handle.Object(key).Delete(ctx)
			if err == nil || isNotFound(err) {
				return nil
			}
			mu.Lock()
			failed = append(failed, storage.KeyError{Key: key, Code: errorCode(err), Err: err})
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	if len(failed) > 0 {
		return &storage.BatchDeleteError{Failed: failed}
	}
	return nil
}

func (g *GCPStorage) MaxBatchDelete() int {
	return storage.MaxDeleteBatch
}

// ListPage reads one page through iterator.Pager; GCS page tokens serve as continuation tokens
func (g *GCPStorage) ListPage(ctx context.Context, bucket string, opts storage.ListOptions) (storage.ListResult, error) {
	query := &gcpstorage.Query{
		Prefix:    opts.Prefix,
		Delimiter: opts.Delimiter,
	}
	if err := query.SetAttrSelection(listAttrs); err != nil {
		return storage.ListResult{}, fmt.Errorf("error selecting list attributes: %w", err)
	}

	pageSize := opts.MaxKeys
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var page []*gcpstorage.ObjectAttrs
	pager := iterator.NewPager(g.client.Bucket(bucket).Objects(ctx, query), pageSize, opts.ContinuationToken)
	next, err := pager.NextPage(&page)
	if err != nil {
		return storage.ListResult{}, wrapError("ListObjects", bucket, opts.Prefix, err)
	}
	return mapListPage(page, next), nil
}

// PresignGetObject signs a V4 GET URL with the client's credentials
func (g *GCPStorage) PresignGetObject(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := g.client.Bucket(bucket).SignedURL(key, &gcpstorage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(ttl),
		Scheme:  gcpstorage.SigningSchemeV4,
	})
	if err != nil {
		return "", wrapError("SignedURL", bucket, key, err)
	}
	return u, nil
}
