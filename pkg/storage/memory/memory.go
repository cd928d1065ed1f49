// File: pkg/storage/memory/memory.go

// Package memory provides an in-process object store with S3 listing semantics.
// Page size and batch-delete cap are configurable so callers can exercise pagination
// and chunking with small data sets.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"bucketeer/pkg/common"
	"bucketeer/pkg/storage"
)

const defaultPageSize = 1000

// FaultFunc lets tests inject backend faults; returning a non-nil error fails the call
type FaultFunc func(op, key string) error

type object struct {
	data []byte
	meta storage.Object
}

type upload struct {
	bucket string
	key    string
	opts   storage.PutOptions
	parts  map[int32][]byte
}

type Storage struct {
	mu       sync.RWMutex
	buckets  map[string]map[string]object
	created  map[string]time.Time
	uploads  map[string]*upload
	uploadID int

	pageSize int
	batchCap int
	fault    FaultFunc
	now      func() time.Time
}

var (
	_ storage.Storage          = (*Storage)(nil)
	_ storage.MultipartStorage = (*Storage)(nil)
	_ storage.BucketManager    = (*Storage)(nil)
)

type Option func(*Storage)

// WithBuckets pre-creates the named buckets
func WithBuckets(names ...string) Option {
	return func(s *Storage) {
		for _, name := range names {
			s.buckets[name] = make(map[string]object)
			s.created[name] = s.now()
		}
	}
}

// WithPageSize caps the number of entries returned by a single ListPage call
func WithPageSize(n int) Option {
	return func(s *Storage) {
		s.pageSize = n
	}
}

// WithBatchCap caps the number of keys accepted by a single DeleteObjects call
func WithBatchCap(n int) Option {
	return func(s *Storage) {
		s.batchCap = n
	}
}

func WithFaults(fn FaultFunc) Option {
	return func(s *Storage) {
		s.fault = fn
	}
}

func New(opts ...Option) *Storage {
	s := &Storage{
		buckets:  make(map[string]map[string]object),
		created:  make(map[string]time.Time),
		uploads:  make(map[string]*upload),
		pageSize: defaultPageSize,
		batchCap: storage.MaxDeleteBatch,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) ProviderName() common.Provider {
	return common.Memory
}

func (s *Storage) HeadBucket(ctx context.Context, bucket string) error {
	if err := s.check(ctx, "HeadBucket", bucket); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.buckets[bucket]; !ok {
		return fmt.Errorf("bucket %q: %w", bucket, storage.ErrNotFound)
	}
	return nil
}

func (s *Storage) PutObject(ctx context.Context, bucket, key string, body io.Reader, opts storage.PutOptions) error {
	if err := s.check(ctx, "PutObject", key); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("error reading object body: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(bucket, key, data, opts)
}

// store must be called with the write lock held
func (s *Storage) store(bucket, key string, data []byte, opts storage.PutOptions) error {
	objects, ok := s.buckets[bucket]
	if !ok {
		return fmt.Errorf("bucket %q: %w", bucket, storage.ErrNotFound)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	objects[key] = object{
		data: data,
		meta: storage.Object{
			Key:          key,
			Bucket:       bucket,
			Provider:     common.Memory,
			Size:         int64(len(data)),
			ETag:         etag(data),
			ContentType:  contentType,
			CacheControl: opts.CacheControl,
			StorageClass: "STANDARD",
			LastModified: s.now(),
		},
	}
	return nil
}

func (s *Storage) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if err := s.check(ctx, "GetObject", key); err != nil {
		return nil, err
	}
	obj, err := s.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *Storage) HeadObject(ctx context.Context, bucket, key string) (storage.Object, error) {
	if err := s.check(ctx, "HeadObject", key); err != nil {
		return storage.Object{}, err
	}
	obj, err := s.lookup(bucket, key)
	if err != nil {
		return storage.Object{}, err
	}
	return obj.meta, nil
}

func (s *Storage) lookup(bucket, key string) (object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, ok := s.buckets[bucket]
	if !ok {
		return object{}, fmt.Errorf("bucket %q: %w", bucket, storage.ErrNotFound)
	}
	obj, ok := objects[key]
	if !ok {
		return object{}, fmt.Errorf("key %q: %w", key, storage.ErrNotFound)
	}
	return obj, nil
}

func (s *Storage) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := s.check(ctx, "DeleteObject", key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.buckets[bucket]
	if !ok {
		return fmt.Errorf("bucket %q: %w", bucket, storage.ErrNotFound)
	}
	delete(objects, key)
	return nil
}

func (s *Storage) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(keys) > s.batchCap {
		return fmt.Errorf("batch of %d keys exceeds the limit of %d", len(keys), s.batchCap)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.buckets[bucket]
	if !ok {
		return fmt.Errorf("bucket %q: %w", bucket, storage.ErrNotFound)
	}

	var failed []storage.KeyError
	for _, key := range keys {
		if s.fault != nil {
			if err := s.fault("DeleteObjects", key); err != nil {
				failed = append(failed, storage.KeyError{Key: key, Code: "InternalError", Err: err})
				continue
			}
		}
		delete(objects, key)
	}
	if len(failed) > 0 {
		return &storage.BatchDeleteError{Failed: failed}
	}
	return nil
}

func (s *Storage) MaxBatchDelete() int {
	return s.batchCap
}

// ListPage mirrors ListObjectsV2: keys and common prefixes are merged in lexical order,
// both count towards the page size, and the continuation token is the last entry returned.
func (s *Storage) ListPage(ctx context.Context, bucket string, opts storage.ListOptions) (storage.ListResult, error) {
	if err := s.check(ctx, "ListPage", opts.Prefix); err != nil {
		return storage.ListResult{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, ok := s.buckets[bucket]
	if !ok {
		return storage.ListResult{}, fmt.Errorf("bucket %q: %w", bucket, storage.ErrNotFound)
	}

	keys := make([]string, 0, len(objects))
	for key := range objects {
		if strings.HasPrefix(key, opts.Prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	type entry struct {
		name     string
		isPrefix bool
	}
	var entries []entry
	for _, key := range keys {
		if opts.Delimiter != "" {
			rest := key[len(opts.Prefix):]
			if idx := strings.Index(rest, opts.Delimiter); idx >= 0 {
				cp := opts.Prefix + rest[:idx+len(opts.Delimiter)]
				if n := len(entries); n > 0 && entries[n-1].name == cp {
					continue
				}
				entries = append(entries, entry{name: cp, isPrefix: true})
				continue
			}
		}
		entries = append(entries, entry{name: key})
	}

	limit := s.pageSize
	if opts.MaxKeys > 0 && opts.MaxKeys < limit {
		limit = opts.MaxKeys
	}

	start := 0
	if opts.ContinuationToken != "" {
		start = sort.Search(len(entries), func(i int) bool {
			return entries[i].name > opts.ContinuationToken
		})
	}

	var result storage.ListResult
	end := start
	for ; end < len(entries) && end-start < limit; end++ {
		e := entries[end]
		if e.isPrefix {
			result.CommonPrefixes = append(result.CommonPrefixes, e.name)
			continue
		}
		result.Objects = append(result.Objects, objects[e.name].meta)
	}
	if end < len(entries) {
		result.IsTruncated = true
		result.ContinuationToken = entries[end-1].name
	}
	return result, nil
}

func (s *Storage) CreateMultipartUpload(ctx context.Context, bucket, key string, opts storage.PutOptions) (string, error) {
	if err := s.check(ctx, "CreateMultipartUpload", key); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buckets[bucket]; !ok {
		return "", fmt.Errorf("bucket %q: %w", bucket, storage.ErrNotFound)
	}
	s.uploadID++
	id := fmt.Sprintf("upload-%06d", s.uploadID)
	s.uploads[id] = &upload{bucket: bucket, key: key, opts: opts, parts: make(map[int32][]byte)}
	return id, nil
}

func (s *Storage) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body []byte) (storage.Part, error) {
	if err := s.check(ctx, "UploadPart", key); err != nil {
		return storage.Part{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.findUpload(bucket, key, uploadID)
	if err != nil {
		return storage.Part{}, err
	}
	data := append([]byte(nil), body...)
	u.parts[partNumber] = data
	return storage.Part{PartNumber: partNumber, ETag: etag(data)}, nil
}

func (s *Storage) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []storage.Part) error {
	if err := s.check(ctx, "CompleteMultipartUpload", key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.findUpload(bucket, key, uploadID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for i, p := range parts {
		if i > 0 && p.PartNumber <= parts[i-1].PartNumber {
			return fmt.Errorf("parts must be in ascending order")
		}
		data, ok := u.parts[p.PartNumber]
		if !ok || etag(data) != p.ETag {
			return fmt.Errorf("invalid part %d", p.PartNumber)
		}
		if i < len(parts)-1 && len(data) < storage.MinPartSize {
			return fmt.Errorf("part %d is smaller than the minimum allowed size", p.PartNumber)
		}
		buf.Write(data)
	}

	delete(s.uploads, uploadID)
	return s.store(bucket, key, buf.Bytes(), u.opts)
}

func (s *Storage) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.findUpload(bucket, key, uploadID); err != nil {
		return err
	}
	delete(s.uploads, uploadID)
	return nil
}

// PendingUploads reports the number of multipart uploads neither completed nor aborted
func (s *Storage) PendingUploads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.uploads)
}

func (s *Storage) findUpload(bucket, key, uploadID string) (*upload, error) {
	u, ok := s.uploads[uploadID]
	if !ok || u.bucket != bucket || u.key != key {
		return nil, fmt.Errorf("upload %q: %w", uploadID, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Storage) ListBuckets(ctx context.Context) ([]storage.Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.buckets))
	for name := range s.buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	buckets := make([]storage.Bucket, 0, len(names))
	for _, name := range names {
		buckets = append(buckets, s.describe(name))
	}
	return buckets, nil
}

func (s *Storage) CreateBucket(ctx context.Context, bucket, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buckets[bucket]; ok {
		return nil
	}
	s.buckets[bucket] = make(map[string]object)
	s.created[bucket] = s.now()
	return nil
}

func (s *Storage) DescribeBucket(ctx context.Context, bucket string) (storage.Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.buckets[bucket]; !ok {
		return storage.Bucket{}, fmt.Errorf("bucket %q: %w", bucket, storage.ErrNotFound)
	}
	return s.describe(bucket), nil
}

// describe must be called with the lock held
func (s *Storage) describe(bucket string) storage.Bucket {
	var usage int64
	for _, obj := range s.buckets[bucket] {
		usage += obj.meta.Size
	}
	return storage.Bucket{
		Name:         bucket,
		Provider:     common.Memory,
		Location:     "local",
		StorageClass: "STANDARD",
		CreatedAt:    s.created[bucket],
		UpdatedAt:    s.created[bucket],
		UsageBytes:   usage,
	}
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) check(ctx context.Context, op, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.fault != nil {
		return s.fault(op, key)
	}
	return nil
}

func etag(data []byte) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%x", md5.Sum(data)))
}
