package memory

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"bucketeer/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Storage, bucket string, keys ...string) {
	t.Helper()
	for _, key := range keys {
		require.NoError(t, s.PutObject(context.Background(), bucket, key, strings.NewReader(key), storage.PutOptions{}))
	}
}

func TestListPageGroupsAndPaginates(t *testing.T) {
	ctx := context.Background()
	s := New(WithBuckets("b"), WithPageSize(2))
	seed(t, s, "b", "a/1", "a/2", "b.txt", "c/1", "c/2/3", "d.txt")

	var (
		objects  []string
		prefixes []string
		opts     = storage.ListOptions{Delimiter: "/"}
		pages    int
	)
	for {
		res, err := s.ListPage(ctx, "b", opts)
		require.NoError(t, err)
		pages++
		for _, o := range res.Objects {
			objects = append(objects, o.Key)
		}
		prefixes = append(prefixes, res.CommonPrefixes...)
		if !res.IsTruncated {
			assert.Empty(t, res.ContinuationToken)
			break
		}
		opts.ContinuationToken = res.ContinuationToken
	}

	assert.Equal(t, 2, pages)
	assert.Equal(t, []string{"b.txt", "d.txt"}, objects)
	assert.Equal(t, []string{"a/", "c/"}, prefixes)
}

func TestListPageMaxKeys(t *testing.T) {
	s := New(WithBuckets("b"))
	seed(t, s, "b", "x/1", "x/2", "x/3")

	res, err := s.ListPage(context.Background(), "b", storage.ListOptions{Prefix: "x/", MaxKeys: 1})
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, "x/1", res.Objects[0].Key)
	assert.True(t, res.IsTruncated)
}

func TestMissingBucketAndKey(t *testing.T) {
	ctx := context.Background()
	s := New(WithBuckets("b"))

	assert.True(t, storage.IsNotFound(s.HeadBucket(ctx, "nope")))
	_, err := s.HeadObject(ctx, "b", "missing")
	assert.True(t, storage.IsNotFound(err))
	_, err = s.GetObject(ctx, "b", "missing")
	assert.True(t, storage.IsNotFound(err))
	assert.NoError(t, s.DeleteObject(ctx, "b", "missing"))
}

func TestDeleteObjectsCap(t *testing.T) {
	s := New(WithBuckets("b"), WithBatchCap(2))
	seed(t, s, "b", "1", "2", "3")

	err := s.DeleteObjects(context.Background(), "b", []string{"1", "2", "3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds the limit")

	require.NoError(t, s.DeleteObjects(context.Background(), "b", []string{"1", "2"}))
	res, err := s.ListPage(context.Background(), "b", storage.ListOptions{})
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, "3", res.Objects[0].Key)
}

func TestMultipartRejectsSmallParts(t *testing.T) {
	ctx := context.Background()
	s := New(WithBuckets("b"))

	id, err := s.CreateMultipartUpload(ctx, "b", "k", storage.PutOptions{ContentType: "video/mp4"})
	require.NoError(t, err)
	p1, err := s.UploadPart(ctx, "b", "k", id, 1, []byte("small"))
	require.NoError(t, err)
	p2, err := s.UploadPart(ctx, "b", "k", id, 2, []byte("tail"))
	require.NoError(t, err)

	err = s.CompleteMultipartUpload(ctx, "b", "k", id, []storage.Part{p1, p2})
	require.Error(t, err)
	assert.Equal(t, 1, s.PendingUploads())

	require.NoError(t, s.AbortMultipartUpload(ctx, "b", "k", id))
	assert.Zero(t, s.PendingUploads())
}

func TestMultipartAssemblesParts(t *testing.T) {
	ctx := context.Background()
	s := New(WithBuckets("b"))

	first := bytes.Repeat([]byte{'a'}, storage.MinPartSize)
	id, err := s.CreateMultipartUpload(ctx, "b", "k", storage.PutOptions{ContentType: "video/mp4"})
	require.NoError(t, err)
	p1, err := s.UploadPart(ctx, "b", "k", id, 1, first)
	require.NoError(t, err)
	p2, err := s.UploadPart(ctx, "b", "k", id, 2, []byte("end"))
	require.NoError(t, err)
	require.NoError(t, s.CompleteMultipartUpload(ctx, "b", "k", id, []storage.Part{p1, p2}))

	rc, err := s.GetObject(ctx, "b", "k")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, append(first, "end"...), data)

	obj, err := s.HeadObject(ctx, "b", "k")
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", obj.ContentType)
}
