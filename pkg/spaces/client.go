// File: pkg/spaces/client.go

// Package spaces layers folder semantics over a flat object store.
//
// A folder is a naming convention: a key prefix ending in "/", optionally made visible
// by a zero-byte marker object whose key is the prefix itself. A folder exists when its
// marker exists or any key starts with its prefix. There is no directory entity with its
// own identity; every listing is an interpretation of flat keys.
//
// A Client is bound to one bucket at a time through Connect. Read-only operations against
// a stable binding are safe for concurrent use. Rebinding while other operations are in
// flight is serialised, but which bucket those operations observe is up to the caller.
package spaces

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bucketeer/pkg/storage"
)

const (
	// DefaultChunkSize is the part size used by UploadFileChunked when none is given
	DefaultChunkSize = 8 << 20

	// DefaultStreamChunkSize is the read size used by StreamFile when none is given
	DefaultStreamChunkSize = 8 << 10

	DefaultDeleteConcurrency = 4

	DefaultPresignTTL = time.Hour

	// Upper bound on parts per multipart upload on S3-compatible stores
	maxParts = 10000
)

// Options is the configuration value handed to the facade once at construction
type Options struct {
	// DefaultBucket is used by Connect and CreateBucket when no name is passed
	DefaultBucket string
	// OriginURL is the public base URL objects are served from; only used by ObjectURL
	OriginURL string
	// CacheControl and ACL are applied to every written object when set
	CacheControl string
	ACL          string
	// PageSize is the MaxKeys sent with each listing request; zero uses the backend default
	PageSize int
	// DeleteConcurrency bounds the number of batch deletes in flight
	DeleteConcurrency int
	// ChunkSize is the multipart part size used when UploadFileChunked gets none
	ChunkSize int64
}

type Client struct {
	store  storage.Storage
	opts   Options
	logger *slog.Logger

	mu     sync.RWMutex
	bucket string
}

func New(store storage.Storage, opts Options, logger *slog.Logger) *Client {
	if opts.DeleteConcurrency <= 0 {
		opts.DeleteConcurrency = DefaultDeleteConcurrency
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		store:  store,
		opts:   opts,
		logger: logger.With("component", "spaces", "provider", store.ProviderName()),
	}
}

// Connect binds the client to bucketName, or to the default bucket when bucketName is empty.
// The bucket is probed first; a failed probe leaves any previous binding in place.
func (c *Client) Connect(ctx context.Context, bucketName string) (string, error) {
	if bucketName == "" {
		bucketName = c.opts.DefaultBucket
	}
	if bucketName == "" {
		return "", opError("connect", "", "", storage.ErrConfiguration,
			errors.New("no bucket name given and no default bucket configured"))
	}

	c.logger.Debug("Connecting to bucket", "bucket", bucketName)
	if err := c.store.HeadBucket(ctx, bucketName); err != nil {
		return "", opError("connect", bucketName, "", storage.ErrConnection, err)
	}

	c.mu.Lock()
	c.bucket = bucketName
	c.mu.Unlock()

	c.logger.Debug("Connected to bucket", "bucket", bucketName)
	return bucketName, nil
}

// Bucket returns the currently bound bucket, or "" before the first successful Connect
func (c *Client) Bucket() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bucket
}

func (c *Client) Close() error {
	return c.store.Close()
}

func (c *Client) bound(op, key string) (string, error) {
	bucket := c.Bucket()
	if bucket == "" {
		return "", opError(op, "", key, storage.ErrConnection, storage.ErrNotConnected)
	}
	return bucket, nil
}

// walk follows continuation tokens until the listing is exhausted, handing each page to fn
func (c *Client) walk(ctx context.Context, bucket string, opts storage.ListOptions, fn func(storage.ListResult)) error {
	if opts.MaxKeys == 0 {
		opts.MaxKeys = c.opts.PageSize
	}
	for page := 1; ; page++ {
		res, err := c.store.ListPage(ctx, bucket, opts)
		if err != nil {
			return fmt.Errorf("error listing page %d of %q: %w", page, opts.Prefix, err)
		}
		fn(res)

		if !res.IsTruncated {
			return nil
		}
		if res.ContinuationToken == "" || res.ContinuationToken == opts.ContinuationToken {
			return fmt.Errorf("listing of %q truncated at page %d without a usable continuation token", opts.Prefix, page)
		}
		opts.ContinuationToken = res.ContinuationToken
	}
}

func (c *Client) putOptions(contentType string, size int64) storage.PutOptions {
	return storage.PutOptions{
		ContentType:  contentType,
		CacheControl: c.opts.CacheControl,
		ACL:          c.opts.ACL,
		Size:         size,
	}
}

func opError(op, bucket, key string, kind, err error) *storage.OpError {
	return &storage.OpError{Op: op, Bucket: bucket, Key: key, Kind: kind, Err: err}
}

// storeError classifies a backend fault, keeping not-found distinct from other faults
func storeError(op, bucket, key string, err error) *storage.OpError {
	if storage.IsNotFound(err) {
		return opError(op, bucket, key, storage.ErrNotFound, err)
	}
	return opError(op, bucket, key, storage.ErrStore, err)
}
