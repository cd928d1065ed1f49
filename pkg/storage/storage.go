// File: pkg/storage/storage.go
package storage

import (
	"context"
	"io"
	"time"

	"bucketeer/pkg/common"
)

const (
	// Separator is the hierarchy separator used in object keys
	Separator = "/"

	// MaxDeleteBatch is the largest number of keys a single batch delete may carry on S3-compatible stores
	MaxDeleteBatch = 1000

	// MinPartSize is the smallest part (other than the last) accepted by S3-compatible multipart uploads
	MinPartSize = 5 << 20
)

// Storage is the object-store collaborator the facade delegates to.
// Implementations map not-found conditions to an error wrapping ErrNotFound.
type Storage interface {
	ProviderName() common.Provider

	// HeadBucket probes a bucket, returning an error wrapping ErrNotFound if it does not exist
	HeadBucket(ctx context.Context, bucket string) error

	// PutObject writes body at key, replacing any existing object
	PutObject(ctx context.Context, bucket, key string, body io.Reader, opts PutOptions) error

	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// HeadObject returns metadata for the exact key
	HeadObject(ctx context.Context, bucket, key string) (Object, error)

	// DeleteObject removes the exact key; deleting an absent key is not an error
	DeleteObject(ctx context.Context, bucket, key string) error

	// DeleteObjects removes up to MaxBatchDelete() keys in one call.
	// Keys that could not be removed are reported through *BatchDeleteError.
	DeleteObjects(ctx context.Context, bucket string, keys []string) error

	// MaxBatchDelete reports the per-call key cap of DeleteObjects
	MaxBatchDelete() int

	// ListPage returns one page of a (possibly delimited) listing
	ListPage(ctx context.Context, bucket string, opts ListOptions) (ListResult, error)

	Close() error
}

// MultipartStorage is implemented by backends with native multipart upload support
type MultipartStorage interface {
	CreateMultipartUpload(ctx context.Context, bucket, key string, opts PutOptions) (string, error)
	UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body []byte) (Part, error)
	CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []Part) error
	AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error
}

// BucketManager is implemented by backends that can enumerate and create buckets
type BucketManager interface {
	ListBuckets(ctx context.Context) ([]Bucket, error)
	CreateBucket(ctx context.Context, bucket, location string) error
	DescribeBucket(ctx context.Context, bucket string) (Bucket, error)
}

// Presigner is implemented by backends able to mint time-limited download URLs
type Presigner interface {
	PresignGetObject(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// PutOptions carries the optional object attributes applied on write
type PutOptions struct {
	ContentType  string
	CacheControl string
	// Canned ACL such as "private" or "public-read"; ignored by backends without ACLs
	ACL string
	// Size of the body in bytes, or -1 when unknown
	Size int64
}

type ListOptions struct {
	Prefix    string
	Delimiter string
	// Opaque cursor from a previous ListResult, empty for the first page
	ContinuationToken string
	// Zero means the backend default
	MaxKeys int
}

type ListResult struct {
	Objects        []Object
	CommonPrefixes []string
	// Cursor for the next page; empty once IsTruncated is false
	ContinuationToken string
	IsTruncated       bool
}

// Part identifies an uploaded part of a multipart upload
type Part struct {
	PartNumber int32
	ETag       string
}
