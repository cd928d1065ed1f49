package spaces

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"

	"bucketeer/pkg/storage"
	"bucketeer/pkg/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBucket = "media"

func newClient(t *testing.T, opts Options, storeOpts ...memory.Option) (*Client, *memory.Storage) {
	t.Helper()
	store := memory.New(append([]memory.Option{memory.WithBuckets(testBucket)}, storeOpts...)...)
	c := New(store, opts, nil)
	_, err := c.Connect(context.Background(), testBucket)
	require.NoError(t, err)
	return c, store
}

func upload(t *testing.T, c *Client, keys ...string) {
	t.Helper()
	for _, key := range keys {
		require.NoError(t, c.UploadFile(context.Background(), key, strings.NewReader(key)))
	}
}

func readAll(t *testing.T, c *Client, key string) []byte {
	t.Helper()
	rc, err := c.ReadFile(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.WithBuckets("media", "backups"))

	t.Run("no bucket and no default", func(t *testing.T) {
		c := New(store, Options{}, nil)
		_, err := c.Connect(ctx, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, storage.ErrConfiguration)
		assert.Equal(t, storage.ErrConfiguration, storage.KindOf(err))
	})

	t.Run("default bucket", func(t *testing.T) {
		c := New(store, Options{DefaultBucket: "backups"}, nil)
		name, err := c.Connect(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, "backups", name)
		assert.Equal(t, "backups", c.Bucket())
	})

	t.Run("rejected bucket keeps previous binding", func(t *testing.T) {
		c := New(store, Options{}, nil)
		_, err := c.Connect(ctx, "media")
		require.NoError(t, err)

		_, err = c.Connect(ctx, "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, storage.ErrConnection)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.Equal(t, "media", c.Bucket())
	})

	t.Run("rebind replaces binding", func(t *testing.T) {
		c := New(store, Options{}, nil)
		_, err := c.Connect(ctx, "media")
		require.NoError(t, err)
		_, err = c.Connect(ctx, "backups")
		require.NoError(t, err)
		assert.Equal(t, "backups", c.Bucket())
	})
}

func TestOperationsRequireBinding(t *testing.T) {
	ctx := context.Background()
	c := New(memory.New(memory.WithBuckets(testBucket)), Options{}, nil)

	checks := map[string]error{
		"create folder": c.CreateFolder(ctx, "a"),
		"upload file":   c.UploadFile(ctx, "a.txt", strings.NewReader("x")),
		"delete file":   c.DeleteFile(ctx, "a.txt"),
	}
	_, err := c.FolderExists(ctx, "a")
	checks["folder exists"] = err
	_, err = c.ListFolders(ctx, "")
	checks["list folders"] = err
	_, err = c.DeleteFolder(ctx, "a")
	checks["delete folder"] = err

	for name, err := range checks {
		assert.ErrorIs(t, err, storage.ErrConnection, name)
		assert.ErrorIs(t, err, storage.ErrNotConnected, name)
	}
}

func TestCreateFolderThenExists(t *testing.T) {
	ctx := context.Background()
	c, store := newClient(t, Options{})

	for _, p := range []string{"a", "a/b", "a/b/", "deep/er/still", "trailing//"} {
		require.NoError(t, c.CreateFolder(ctx, p), p)
		ok, err := c.FolderExists(ctx, p)
		require.NoError(t, err)
		assert.True(t, ok, p)
	}

	marker, err := store.HeadObject(ctx, testBucket, "a/b/")
	require.NoError(t, err)
	assert.Zero(t, marker.Size)
	assert.True(t, marker.IsFolderMarker())

	// Idempotent: the second create overwrites the same marker
	require.NoError(t, c.CreateFolder(ctx, "a/b"))
	entries, err := c.ListFolderContents(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b/"}, entries.Paths())
}

func TestFolderExistsWithoutMarker(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t, Options{})
	upload(t, c, "photos/2024/cat.jpg")

	ok, err := c.FolderExists(ctx, "photos")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.FolderExists(ctx, "photo")
	require.NoError(t, err)
	assert.False(t, ok, "a partial name must not match")

	ok, err = c.FolderExists(ctx, "videos")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := c.ListFolderContents(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/"}, entries.Paths(), "probing must not create markers")
}

func TestFileExistsIsExact(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t, Options{})
	upload(t, c, "docs/readme.md")

	ok, err := c.FileExists(ctx, "docs/readme.md")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.FileExists(ctx, "docs/readme")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.FileExists(ctx, "docs")
	require.NoError(t, err)
	assert.False(t, ok, "a prefix match is not a file")
}

func TestPathValidation(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t, Options{})

	for _, p := range []string{"", "/", "//", "  "} {
		assert.ErrorIs(t, c.CreateFolder(ctx, p), storage.ErrValidation, "%q", p)
		_, err := c.FolderExists(ctx, p)
		assert.ErrorIs(t, err, storage.ErrValidation, "%q", p)
		_, err = c.DeleteFolder(ctx, p)
		assert.ErrorIs(t, err, storage.ErrValidation, "%q", p)
	}

	for _, p := range []string{"", "a/", "   "} {
		assert.ErrorIs(t, c.UploadFile(ctx, p, strings.NewReader("x")), storage.ErrValidation, "%q", p)
		assert.ErrorIs(t, c.UpdateFile(ctx, p, strings.NewReader("x")), storage.ErrValidation, "%q", p)
		assert.ErrorIs(t, c.DeleteFile(ctx, p), storage.ErrValidation, "%q", p)
		_, err := c.FileExists(ctx, p)
		assert.ErrorIs(t, err, storage.ErrValidation, "%q", p)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, store := newClient(t, Options{CacheControl: "max-age=60"})

	payload := []byte("hello, spaces")
	require.NoError(t, c.UploadFile(ctx, "notes/hello.txt", bytes.NewReader(payload)))

	ok, err := c.FileExists(ctx, "notes/hello.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload, readAll(t, c, "notes/hello.txt"))

	obj, err := store.HeadObject(ctx, testBucket, "notes/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", obj.ContentType)
	assert.Equal(t, "max-age=60", obj.CacheControl)
	assert.Equal(t, int64(len(payload)), obj.Size)

	// UpdateFile overwrites, and creates when absent
	require.NoError(t, c.UpdateFile(ctx, "notes/hello.txt", strings.NewReader("v2")))
	assert.Equal(t, []byte("v2"), readAll(t, c, "notes/hello.txt"))
	require.NoError(t, c.UpdateFile(ctx, "notes/new.txt", strings.NewReader("fresh")))
	assert.Equal(t, []byte("fresh"), readAll(t, c, "notes/new.txt"))
}

func TestUploadSourceReadFailureIsStoreFault(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t, Options{})
	readErr := errors.New("disk unplugged")

	err := c.UploadFile(ctx, "docs/raw", iotest.ErrReader(readErr))
	require.Error(t, err)
	assert.Equal(t, storage.ErrStore, storage.KindOf(err))
	assert.ErrorIs(t, err, readErr)

	err = c.UploadFileChunked(ctx, "docs/b.bin", iotest.ErrReader(readErr), storage.MinPartSize)
	require.Error(t, err)
	assert.Equal(t, storage.ErrStore, storage.KindOf(err))
	assert.ErrorIs(t, err, readErr)

	exists, err := c.FileExists(ctx, "docs/raw")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUploadSniffsContentTypeWithoutExtension(t *testing.T) {
	ctx := context.Background()
	c, store := newClient(t, Options{})

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	require.NoError(t, c.UploadFile(ctx, "images/logo", bytes.NewReader(png)))

	obj, err := store.HeadObject(ctx, testBucket, "images/logo")
	require.NoError(t, err)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, png, readAll(t, c, "images/logo"), "sniffing must not consume the body")
}

func TestDeleteFileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t, Options{})
	upload(t, c, "tmp/x.bin")

	require.NoError(t, c.DeleteFile(ctx, "tmp/x.bin"))
	require.NoError(t, c.DeleteFile(ctx, "tmp/x.bin"))

	ok, err := c.FileExists(ctx, "tmp/x.bin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteFolderAcrossPagesAndBatches(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t, Options{PageSize: 3, DeleteConcurrency: 2}, memory.WithPageSize(4), memory.WithBatchCap(5))

	require.NoError(t, c.CreateFolder(ctx, "big"))
	var keys []string
	for i := range 23 {
		keys = append(keys, fmt.Sprintf("big/%02d.txt", i))
	}
	keys = append(keys, "big/nested/deep.txt", "bigger/keep.txt", "other/keep.txt")
	upload(t, c, keys...)

	deleted, err := c.DeleteFolder(ctx, "big")
	require.NoError(t, err)
	assert.Equal(t, 25, deleted, "23 files, one nested file and the marker")

	ok, err := c.FolderExists(ctx, "big")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := c.ListFolderContents(ctx, "big")
	require.NoError(t, err)
	assert.Empty(t, entries)

	for _, key := range []string{"bigger/keep.txt", "other/keep.txt"} {
		ok, err := c.FileExists(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, key)
	}
}

func TestDeleteFolderMissingIsNoop(t *testing.T) {
	c, _ := newClient(t, Options{})
	deleted, err := c.DeleteFolder(context.Background(), "nothing/here")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestDeleteFolderPartialFailure(t *testing.T) {
	ctx := context.Background()
	fault := func(op, key string) error {
		if op == "DeleteObjects" && strings.HasSuffix(key, "locked.txt") {
			return errors.New("access denied")
		}
		return nil
	}
	c, _ := newClient(t, Options{DeleteConcurrency: 1}, memory.WithBatchCap(2), memory.WithFaults(fault))
	upload(t, c, "f/1.txt", "f/2.txt", "f/locked.txt", "f/3.txt", "f/4.txt")

	deleted, err := c.DeleteFolder(ctx, "f")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrStore)
	assert.Equal(t, 4, deleted)

	var batchErr *storage.BatchDeleteError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, []string{"f/locked.txt"}, batchErr.Keys())

	// Keys removed before and after the failing batch stay removed
	entries, err := c.ListFolderContents(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, []string{"f/locked.txt"}, entries.Paths())
}

func TestListFolders(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t, Options{PageSize: 2}, memory.WithPageSize(2))

	require.NoError(t, c.CreateFolder(ctx, "e"))
	upload(t, c, "a/1.txt", "b/2.txt", "b/c/3.txt", "d/4.txt", "root.txt", "b/x/5.txt")

	folders, err := c.ListFolders(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/", "b/", "d/", "e/"}, folders)

	folders, err = c.ListFolders(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"b/c/", "b/x/"}, folders)

	folders, err = c.ListFolders(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, folders)
	assert.Empty(t, folders)
}

func TestListFolderContentsScenario(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t, Options{})

	require.NoError(t, c.CreateFolder(ctx, "a/b"))
	require.NoError(t, c.UploadFile(ctx, "a/b/f.txt", strings.NewReader("hi")))

	entries, err := c.ListFolderContents(ctx, "a/b")
	require.NoError(t, err)
	assert.Empty(t, entries.Folders())
	require.Len(t, entries.Files(), 1)

	f := entries.Files()[0]
	assert.Equal(t, "a/b/f.txt", f.Path)
	assert.Equal(t, "f.txt", f.Name)
	assert.Equal(t, int64(2), f.Size)
}

func TestListFolderContentsPaginates(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t, Options{PageSize: 3}, memory.WithPageSize(3))

	var want []string
	for i := range 10 {
		want = append(want, fmt.Sprintf("p/file-%02d.txt", i))
	}
	upload(t, c, want...)
	upload(t, c, "p/sub/inner.txt", "p/zz/inner.txt")
	want = append(want, "p/sub/", "p/zz/")

	entries, err := c.ListFolderContents(ctx, "p/")
	require.NoError(t, err)
	assert.Equal(t, want, entries.Paths())
	assert.Len(t, entries.Files(), 10)
	assert.Equal(t, []string{"p/sub/", "p/zz/"}, entries.Folders().Paths())
	assert.Equal(t, "sub", entries.Folders()[0].Name)
}

// looping never advances its continuation token
type looping struct {
	*memory.Storage
	calls atomic.Int32
}

func (l *looping) ListPage(ctx context.Context, bucket string, opts storage.ListOptions) (storage.ListResult, error) {
	l.calls.Add(1)
	return storage.ListResult{IsTruncated: true, ContinuationToken: "same"}, nil
}

func TestListingStopsOnStuckToken(t *testing.T) {
	ctx := context.Background()
	store := &looping{Storage: memory.New(memory.WithBuckets(testBucket))}
	c := New(store, Options{}, nil)
	_, err := c.Connect(ctx, testBucket)
	require.NoError(t, err)

	_, err = c.ListFolders(ctx, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrStore)
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestStoreFaultsAreTyped(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")
	var fail atomic.Bool
	c, _ := newClient(t, Options{}, memory.WithFaults(func(op, key string) error {
		if fail.Load() {
			return boom
		}
		return nil
	}))
	upload(t, c, "x/y.txt")
	fail.Store(true)

	assert.ErrorIs(t, c.CreateFolder(ctx, "x"), storage.ErrStore)
	assert.ErrorIs(t, c.UploadFile(ctx, "x/z.txt", strings.NewReader("z")), storage.ErrStore)
	assert.ErrorIs(t, c.DeleteFile(ctx, "x/y.txt"), storage.ErrStore)

	_, err := c.FileExists(ctx, "x/y.txt")
	assert.ErrorIs(t, err, storage.ErrStore)
	assert.ErrorIs(t, err, boom)

	_, err = c.FolderExists(ctx, "x")
	assert.ErrorIs(t, err, storage.ErrStore)

	_, err = c.ListFolderContents(ctx, "x")
	assert.ErrorIs(t, err, storage.ErrStore)
}

func TestReadAndStatMissingFile(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t, Options{})

	_, err := c.ReadFile(ctx, "nope.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, storage.ErrNotFound, storage.KindOf(err))

	_, err = c.StatFile(ctx, "nope.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStreamFile(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t, Options{})
	require.NoError(t, c.UploadFile(ctx, "stream/data.txt", strings.NewReader("abcdefghij")))

	var chunks []string
	err := c.StreamFile(ctx, "stream/data.txt", 4, func(b []byte) error {
		chunks = append(chunks, string(b))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, chunks)

	stop := errors.New("stop")
	err = c.StreamFile(ctx, "stream/data.txt", 4, func([]byte) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestObjectURL(t *testing.T) {
	c, _ := newClient(t, Options{OriginURL: "https://cdn.example.com/assets"})
	u, err := c.ObjectURL("img/a b.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/assets/img/a%20b.png", u)

	bare, _ := newClient(t, Options{})
	_, err = bare.ObjectURL("img/a.png")
	assert.ErrorIs(t, err, storage.ErrConfiguration)
}

func TestPresignUnsupported(t *testing.T) {
	c, _ := newClient(t, Options{})
	_, err := c.PresignURL(context.Background(), "a.txt", 0)
	assert.ErrorIs(t, err, storage.ErrStore)
	assert.ErrorIs(t, err, storage.ErrUnsupported)
}

func TestUploadFileChunked(t *testing.T) {
	ctx := context.Background()
	const part = storage.MinPartSize

	t.Run("multipart", func(t *testing.T) {
		c, store := newClient(t, Options{})
		data := bytes.Repeat([]byte("0123456789"), (2*part+part/2)/10)

		require.NoError(t, c.UploadFileChunked(ctx, "big/blob.bin", bytes.NewReader(data), part))
		assert.Equal(t, data, readAll(t, c, "big/blob.bin"))
		assert.Zero(t, store.PendingUploads())
	})

	t.Run("small body uses single put", func(t *testing.T) {
		c, store := newClient(t, Options{})
		require.NoError(t, c.UploadFileChunked(ctx, "small.txt", strings.NewReader("tiny"), 0))
		assert.Equal(t, []byte("tiny"), readAll(t, c, "small.txt"))
		assert.Zero(t, store.PendingUploads())
	})

	t.Run("chunk below minimum", func(t *testing.T) {
		c, _ := newClient(t, Options{})
		err := c.UploadFileChunked(ctx, "x.bin", strings.NewReader("x"), 1024)
		assert.ErrorIs(t, err, storage.ErrValidation)
	})

	t.Run("failed part aborts upload", func(t *testing.T) {
		var parts atomic.Int32
		c, store := newClient(t, Options{}, memory.WithFaults(func(op, key string) error {
			if op == "UploadPart" && parts.Add(1) == 2 {
				return errors.New("part rejected")
			}
			return nil
		}))
		data := bytes.Repeat([]byte{'x'}, 3*part)

		err := c.UploadFileChunked(ctx, "fail.bin", bytes.NewReader(data), part)
		require.Error(t, err)
		assert.ErrorIs(t, err, storage.ErrStore)
		assert.Zero(t, store.PendingUploads())

		ok, err := c.FileExists(ctx, "fail.bin")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("initiate", func(t *testing.T) {
		c, store := newClient(t, Options{})
		id, err := c.InitiateMultipartUpload(ctx, "video.mp4")
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, 1, store.PendingUploads())
	})
}

func TestBuckets(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t, Options{DefaultBucket: "fallback"})
	upload(t, c, "a.txt")

	name, err := c.CreateBucket(ctx, "", "nyc3")
	require.NoError(t, err)
	assert.Equal(t, "fallback", name)
	assert.Equal(t, testBucket, c.Bucket(), "creating a bucket must not rebind")

	buckets, err := c.ListBuckets(ctx)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "fallback", buckets[0].Name)
	assert.Equal(t, testBucket, buckets[1].Name)

	b, err := c.DescribeBucket(ctx)
	require.NoError(t, err)
	assert.Equal(t, testBucket, b.Name)
	assert.Equal(t, int64(len("a.txt")), b.UsageBytes)

	bare := New(memory.New(), Options{}, nil)
	_, err = bare.CreateBucket(ctx, "", "")
	assert.ErrorIs(t, err, storage.ErrConfiguration)
}

func TestGetActualFileNames(t *testing.T) {
	assert.Equal(t, []string{"c.txt", "x.txt"}, GetActualFileNames([]string{"a/b/c.txt", "x.txt"}))
	assert.Equal(t, []string{""}, GetActualFileNames([]string{"dir/"}))
	assert.Empty(t, GetActualFileNames(nil))
}

func TestChunk(t *testing.T) {
	keys := []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, chunk(keys, 2))
	assert.Len(t, chunk(keys, 0), 1)
	assert.Empty(t, chunk(nil, 3))
}
