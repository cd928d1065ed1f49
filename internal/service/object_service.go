// File: internal/service/object_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"bucketeer/internal/config"
	"bucketeer/internal/provider/factory"
	"bucketeer/pkg/spaces"
	"bucketeer/pkg/storage"
)

// Target names the provider and bucket an operation runs against.
// Empty fields fall back to the configured provider and default bucket.
type Target struct {
	Provider string
	Bucket   string
}

// UploadOptions selects how file data is written
type UploadOptions struct {
	// Multipart forces a chunked upload; data that fits in one chunk is still written with a single put
	Multipart bool
	// ChunkSize is the multipart part size, zero uses the configured chunk size
	ChunkSize int64
}

type ObjectService struct {
	providerFactory *factory.Factory
	opts            spaces.Options
	timeout         time.Duration
	logger          *slog.Logger
}

func NewObjectService(providerFactory *factory.Factory, cfg *config.Config, logger *slog.Logger) *ObjectService {
	return &ObjectService{
		providerFactory: providerFactory,
		opts:            cfg.SpacesOptions(),
		timeout:         cfg.Storage.RequestTimeout,
		logger:          logger.With("service", "ObjectService"),
	}
}

// --- Bucket Operations ---

// ListAllBuckets queries every named provider concurrently. Buckets from providers that
// answered are returned even when others failed; the failures are joined into the error.
func (s *ObjectService) ListAllBuckets(ctx context.Context, providerNames []string) ([]storage.Bucket, error) {
	if len(providerNames) == 0 {
		return nil, nil
	}

	s.logger.Debug("Starting ListAllBuckets operation", "providers", providerNames)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		allBuckets []storage.Bucket
		errs       []error
		mu         sync.Mutex
		wg         sync.WaitGroup
	)

	for _, pName := range providerNames {
		wg.Add(1)
		go func(pName string) {
			defer wg.Done()

			client, err := s.newClient(ctx, pName)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			defer client.Close()

			buckets, err := client.ListBuckets(ctx)
			if err != nil {
				s.logger.Error("Failed to list buckets from provider", "provider", pName, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", pName, err))
				mu.Unlock()
				return
			}

			// Safely append successful results
			mu.Lock()
			allBuckets = append(allBuckets, buckets...)
			mu.Unlock()

			s.logger.Debug("Successfully fetched buckets", "provider", pName, "count", len(buckets))
		}(pName)
	}

	wg.Wait()
	return allBuckets, errors.Join(errs...)
}

func (s *ObjectService) DescribeBucket(ctx context.Context, t Target) (storage.Bucket, error) {
	var bucket storage.Bucket
	err := s.run(ctx, "DescribeBucket", t, nil, func(ctx context.Context, c *spaces.Client) (err error) {
		bucket, err = c.DescribeBucket(ctx)
		return err
	})
	return bucket, err
}

// CreateBucket creates t.Bucket (or the default bucket) and returns the name it created
func (s *ObjectService) CreateBucket(ctx context.Context, t Target, location string) (string, error) {
	s.logger.Debug("Starting CreateBucket operation", "bucket", t.Bucket, "provider", t.Provider, "location", location)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	client, err := s.newClient(ctx, t.Provider)
	if err != nil {
		return "", err
	}
	defer client.Close()

	name, err := client.CreateBucket(ctx, t.Bucket, location)
	if err != nil {
		s.logger.Error("Failed to create bucket", "bucket", t.Bucket, "provider", t.Provider, "error", err)
		return "", err
	}
	return name, nil
}

// --- Folder Operations ---

func (s *ObjectService) CreateFolder(ctx context.Context, t Target, folderPath string) error {
	return s.run(ctx, "CreateFolder", t, []any{"folder", folderPath}, func(ctx context.Context, c *spaces.Client) error {
		return c.CreateFolder(ctx, folderPath)
	})
}

func (s *ObjectService) FolderExists(ctx context.Context, t Target, folderPath string) (bool, error) {
	var exists bool
	err := s.run(ctx, "FolderExists", t, []any{"folder", folderPath}, func(ctx context.Context, c *spaces.Client) (err error) {
		exists, err = c.FolderExists(ctx, folderPath)
		return err
	})
	return exists, err
}

// DeleteFolder returns the number of keys removed, which is meaningful even on partial failure
func (s *ObjectService) DeleteFolder(ctx context.Context, t Target, folderPath string) (int, error) {
	var deleted int
	err := s.run(ctx, "DeleteFolder", t, []any{"folder", folderPath}, func(ctx context.Context, c *spaces.Client) (err error) {
		deleted, err = c.DeleteFolder(ctx, folderPath)
		return err
	})
	return deleted, err
}

func (s *ObjectService) ListFolders(ctx context.Context, t Target, prefix string) ([]string, error) {
	var folders []string
	err := s.run(ctx, "ListFolders", t, []any{"prefix", prefix}, func(ctx context.Context, c *spaces.Client) (err error) {
		folders, err = c.ListFolders(ctx, prefix)
		return err
	})
	return folders, err
}

func (s *ObjectService) ListFolderContents(ctx context.Context, t Target, folderPath string) (spaces.Entries, error) {
	var entries spaces.Entries
	err := s.run(ctx, "ListFolderContents", t, []any{"folder", folderPath}, func(ctx context.Context, c *spaces.Client) (err error) {
		entries, err = c.ListFolderContents(ctx, folderPath)
		return err
	})
	return entries, err
}

// --- File Operations ---

func (s *ObjectService) UploadFile(ctx context.Context, t Target, filePath string, data io.Reader, opts UploadOptions) error {
	return s.run(ctx, "UploadFile", t, []any{"file", filePath, "multipart", opts.Multipart}, func(ctx context.Context, c *spaces.Client) error {
		if opts.Multipart {
			return c.UploadFileChunked(ctx, filePath, data, opts.ChunkSize)
		}
		return c.UploadFile(ctx, filePath, data)
	})
}

func (s *ObjectService) UpdateFile(ctx context.Context, t Target, filePath string, data io.Reader, opts UploadOptions) error {
	return s.run(ctx, "UpdateFile", t, []any{"file", filePath, "multipart", opts.Multipart}, func(ctx context.Context, c *spaces.Client) error {
		if opts.Multipart {
			return c.UploadFileChunked(ctx, filePath, data, opts.ChunkSize)
		}
		return c.UpdateFile(ctx, filePath, data)
	})
}

func (s *ObjectService) FileExists(ctx context.Context, t Target, filePath string) (bool, error) {
	var exists bool
	err := s.run(ctx, "FileExists", t, []any{"file", filePath}, func(ctx context.Context, c *spaces.Client) (err error) {
		exists, err = c.FileExists(ctx, filePath)
		return err
	})
	return exists, err
}

func (s *ObjectService) DeleteFile(ctx context.Context, t Target, filePath string) error {
	return s.run(ctx, "DeleteFile", t, []any{"file", filePath}, func(ctx context.Context, c *spaces.Client) error {
		return c.DeleteFile(ctx, filePath)
	})
}

// ReadFile copies the object at filePath into w and returns the number of bytes written
func (s *ObjectService) ReadFile(ctx context.Context, t Target, filePath string, w io.Writer) (int64, error) {
	var written int64
	err := s.run(ctx, "ReadFile", t, []any{"file", filePath}, func(ctx context.Context, c *spaces.Client) error {
		return c.StreamFile(ctx, filePath, 0, func(chunk []byte) error {
			n, err := w.Write(chunk)
			written += int64(n)
			if err != nil {
				return fmt.Errorf("error writing output: %w", err)
			}
			return nil
		})
	})
	return written, err
}

func (s *ObjectService) StatFile(ctx context.Context, t Target, filePath string) (storage.Object, error) {
	var obj storage.Object
	err := s.run(ctx, "StatFile", t, []any{"file", filePath}, func(ctx context.Context, c *spaces.Client) (err error) {
		obj, err = c.StatFile(ctx, filePath)
		return err
	})
	return obj, err
}

// ObjectURL builds the public URL of filePath; it needs no store access
func (s *ObjectService) ObjectURL(filePath string) (string, error) {
	u, err := spaces.ObjectURL(s.opts.OriginURL, filePath)
	if err != nil {
		s.logger.Error("Failed to build object URL", "file", filePath, "error", err)
		return "", err
	}
	return u, nil
}

func (s *ObjectService) PresignURL(ctx context.Context, t Target, filePath string, ttl time.Duration) (string, error) {
	var u string
	err := s.run(ctx, "PresignURL", t, []any{"file", filePath, "ttl", ttl}, func(ctx context.Context, c *spaces.Client) (err error) {
		u, err = c.PresignURL(ctx, filePath, ttl)
		return err
	})
	return u, err
}

// run opens a client bound to t, hands it to fn and logs the outcome under op
func (s *ObjectService) run(ctx context.Context, op string, t Target, attrs []any, fn func(context.Context, *spaces.Client) error) error {
	logAttrs := append([]any{"bucket", t.Bucket, "provider", t.Provider}, attrs...)
	s.logger.Debug("Starting "+op+" operation", logAttrs...)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	client, err := s.newClient(ctx, t.Provider)
	if err != nil {
		return err
	}
	defer client.Close()

	if _, err := client.Connect(ctx, t.Bucket); err != nil {
		s.logger.Error("Failed to connect to bucket", append(logAttrs, "error", err)...)
		return err
	}

	if err := fn(ctx, client); err != nil {
		s.logger.Error("Operation failed", append(logAttrs, "op", op, "error", err)...)
		return err
	}
	return nil
}

// Helper to initialize the storage backend and wrap it in a facade
func (s *ObjectService) newClient(ctx context.Context, providerName string) (*spaces.Client, error) {
	store, err := s.providerFactory.GetStorageProvider(ctx, providerName)
	if err != nil {
		s.logger.Error("Failed to initialize provider", "provider", providerName, "error", err)
		return nil, fmt.Errorf("error initializing provider: %w", err)
	}
	return spaces.New(store, s.opts, s.logger), nil
}

func (s *ObjectService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}
