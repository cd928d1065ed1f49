// File: pkg/spaces/folders.go
package spaces

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"bucketeer/pkg/storage"

	"golang.org/x/sync/errgroup"
)

type EntryKind string

const (
	KindFile   EntryKind = "file"
	KindFolder EntryKind = "folder"
)

// Entry is one immediate child of a folder listing
type Entry struct {
	Kind EntryKind
	// Full key; folders keep their trailing separator
	Path string
	// Final path component without any trailing separator
	Name         string
	Size         int64
	ETag         string
	LastModified time.Time
}

type Entries []Entry

func (e Entries) Files() Entries {
	return e.filter(KindFile)
}

func (e Entries) Folders() Entries {
	return e.filter(KindFolder)
}

func (e Entries) Paths() []string {
	paths := make([]string, 0, len(e))
	for _, entry := range e {
		paths = append(paths, entry.Path)
	}
	return paths
}

func (e Entries) filter(kind EntryKind) Entries {
	out := Entries{}
	for _, entry := range e {
		if entry.Kind == kind {
			out = append(out, entry)
		}
	}
	return out
}

// CreateFolder writes the zero-byte marker for folderPath. Repeating it overwrites the same marker.
func (c *Client) CreateFolder(ctx context.Context, folderPath string) error {
	key, err := validateFolder("create folder", folderPath)
	if err != nil {
		return err
	}
	bucket, err := c.bound("create folder", key)
	if err != nil {
		return err
	}

	c.logger.Debug("Creating folder marker", "bucket", bucket, "key", key)
	if err := c.store.PutObject(ctx, bucket, key, bytes.NewReader(nil), c.putOptions("application/x-directory", 0)); err != nil {
		return opError("create folder", bucket, key, storage.ErrStore, err)
	}
	return nil
}

// FolderExists reports whether a marker or any object lives under folderPath.
// It issues a single one-key listing and never writes.
func (c *Client) FolderExists(ctx context.Context, folderPath string) (bool, error) {
	prefix, err := validateFolder("folder exists", folderPath)
	if err != nil {
		return false, err
	}
	bucket, err := c.bound("folder exists", prefix)
	if err != nil {
		return false, err
	}

	c.logger.Debug("Probing folder", "bucket", bucket, "prefix", prefix)
	res, err := c.store.ListPage(ctx, bucket, storage.ListOptions{Prefix: prefix, MaxKeys: 1})
	if err != nil {
		return false, opError("folder exists", bucket, prefix, storage.ErrStore, err)
	}
	return len(res.Objects) > 0 || len(res.CommonPrefixes) > 0, nil
}

// DeleteFolder removes every key under folderPath, marker included, and returns how many
// keys were removed. Keys are enumerated to completeness first, then deleted in batches no
// larger than the backend cap. Every batch is attempted even if an earlier one fails;
// deletion is not transactional and keys already removed stay removed.
func (c *Client) DeleteFolder(ctx context.Context, folderPath string) (int, error) {
	prefix, err := validateFolder("delete folder", folderPath)
	if err != nil {
		return 0, err
	}
	bucket, err := c.bound("delete folder", prefix)
	if err != nil {
		return 0, err
	}

	c.logger.Debug("Enumerating folder for deletion", "bucket", bucket, "prefix", prefix)
	var keys []string
	err = c.walk(ctx, bucket, storage.ListOptions{Prefix: prefix}, func(res storage.ListResult) {
		for _, obj := range res.Objects {
			keys = append(keys, obj.Key)
		}
	})
	if err != nil {
		return 0, opError("delete folder", bucket, prefix, storage.ErrStore, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	batches := chunk(keys, c.store.MaxBatchDelete())
	c.logger.Debug("Deleting folder contents", "bucket", bucket, "prefix", prefix, "keys", len(keys), "batches", len(batches))

	var (
		mu     sync.Mutex
		failed int
		errs   []error
		g      errgroup.Group
	)
	g.SetLimit(c.opts.DeleteConcurrency)

	for _, batch := range batches {
		g.Go(func() error {
			err := c.store.DeleteObjects(ctx, bucket, batch)
			if err == nil {
				return nil
			}

			n := len(batch)
			var batchErr *storage.BatchDeleteError
			if errors.As(err, &batchErr) {
				n = len(batchErr.Failed)
			}

			mu.Lock()
			failed += n
			errs = append(errs, err)
			mu.Unlock()
			// Siblings keep going; the combined failure is reported after Wait
			return nil
		})
	}
	_ = g.Wait()

	deleted := len(keys) - failed
	if len(errs) > 0 {
		return deleted, opError("delete folder", bucket, prefix, storage.ErrStore, errors.Join(errs...))
	}
	return deleted, nil
}

// ListFolders returns the immediate child folders of prefix (the bucket root when empty),
// in the backend's lexical order, after reading every page of the listing.
func (c *Client) ListFolders(ctx context.Context, prefix string) ([]string, error) {
	p := listPrefix(prefix)
	bucket, err := c.bound("list folders", p)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Listing folders", "bucket", bucket, "prefix", p)
	folders := []string{}
	err = c.walk(ctx, bucket, storage.ListOptions{Prefix: p, Delimiter: storage.Separator}, func(res storage.ListResult) {
		folders = append(folders, res.CommonPrefixes...)
	})
	if err != nil {
		return nil, opError("list folders", bucket, p, storage.ErrStore, err)
	}
	return folders, nil
}

// ListFolderContents returns the immediate child folders and files of folderPath, sorted
// by key. The folder's own marker is excluded. A missing folder yields an empty result.
func (c *Client) ListFolderContents(ctx context.Context, folderPath string) (Entries, error) {
	p := listPrefix(folderPath)
	bucket, err := c.bound("list folder contents", p)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Listing folder contents", "bucket", bucket, "prefix", p)
	entries := Entries{}
	err = c.walk(ctx, bucket, storage.ListOptions{Prefix: p, Delimiter: storage.Separator}, func(res storage.ListResult) {
		for _, cp := range res.CommonPrefixes {
			if cp == p {
				continue
			}
			entries = append(entries, Entry{Kind: KindFolder, Path: cp, Name: baseName(cp)})
		}
		for _, obj := range res.Objects {
			if obj.Key == p {
				continue
			}
			entries = append(entries, Entry{
				Kind:         KindFile,
				Path:         obj.Key,
				Name:         baseName(obj.Key),
				Size:         obj.Size,
				ETag:         obj.ETag,
				LastModified: obj.LastModified,
			})
		}
	})
	if err != nil {
		return nil, opError("list folder contents", bucket, p, storage.ErrStore, err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

func chunk(keys []string, size int) [][]string {
	if size <= 0 {
		size = storage.MaxDeleteBatch
	}
	batches := make([][]string, 0, (len(keys)+size-1)/size)
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		batches = append(batches, keys[start:end])
	}
	return batches
}
