// File: pkg/spaces/objects.go
package spaces

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"time"

	"bucketeer/pkg/storage"

	"github.com/gabriel-vasile/mimetype"
)

// Number of leading bytes inspected when the extension does not identify the content type
const sniffLen = 3072

// FileExists reports whether an object exists at exactly filePath. Prefix matches do not count.
func (c *Client) FileExists(ctx context.Context, filePath string) (bool, error) {
	if err := validateFile("file exists", filePath); err != nil {
		return false, err
	}
	bucket, err := c.bound("file exists", filePath)
	if err != nil {
		return false, err
	}

	c.logger.Debug("Probing file", "bucket", bucket, "key", filePath)
	if _, err := c.store.HeadObject(ctx, bucket, filePath); err != nil {
		if storage.IsNotFound(err) {
			return false, nil
		}
		return false, opError("file exists", bucket, filePath, storage.ErrStore, err)
	}
	return true, nil
}

// UploadFile writes data at filePath, replacing any existing object
func (c *Client) UploadFile(ctx context.Context, filePath string, data io.Reader) error {
	return c.put(ctx, "upload file", filePath, data)
}

// UpdateFile is UploadFile under a name that reads better at call sites replacing content.
// It creates the object if it does not exist yet.
func (c *Client) UpdateFile(ctx context.Context, filePath string, data io.Reader) error {
	return c.put(ctx, "update file", filePath, data)
}

func (c *Client) put(ctx context.Context, op, filePath string, data io.Reader) error {
	if err := validateFile(op, filePath); err != nil {
		return err
	}
	bucket, err := c.bound(op, filePath)
	if err != nil {
		return err
	}

	size := sizeOf(data)
	contentType, body, err := detectContentType(filePath, data)
	if err != nil {
		return opError(op, bucket, filePath, storage.ErrStore, fmt.Errorf("error reading file data: %w", err))
	}

	c.logger.Debug("Writing object", "op", op, "bucket", bucket, "key", filePath, "contentType", contentType, "size", size)
	if err := c.store.PutObject(ctx, bucket, filePath, body, c.putOptions(contentType, size)); err != nil {
		return opError(op, bucket, filePath, storage.ErrStore, err)
	}
	return nil
}

// DeleteFile removes the object at filePath. Deleting an absent key succeeds.
func (c *Client) DeleteFile(ctx context.Context, filePath string) error {
	if err := validateFile("delete file", filePath); err != nil {
		return err
	}
	bucket, err := c.bound("delete file", filePath)
	if err != nil {
		return err
	}

	c.logger.Debug("Deleting object", "bucket", bucket, "key", filePath)
	if err := c.store.DeleteObject(ctx, bucket, filePath); err != nil && !storage.IsNotFound(err) {
		return opError("delete file", bucket, filePath, storage.ErrStore, err)
	}
	return nil
}

// ReadFile opens the object at filePath for streaming. The caller closes the reader.
func (c *Client) ReadFile(ctx context.Context, filePath string) (io.ReadCloser, error) {
	if err := validateFile("read file", filePath); err != nil {
		return nil, err
	}
	bucket, err := c.bound("read file", filePath)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Reading object", "bucket", bucket, "key", filePath)
	rc, err := c.store.GetObject(ctx, bucket, filePath)
	if err != nil {
		return nil, storeError("read file", bucket, filePath, err)
	}
	return rc, nil
}

// StreamFile reads the object at filePath and hands it to fn in chunks of chunkSize bytes;
// only the last chunk may be shorter. An error from fn stops the stream and is returned as is.
func (c *Client) StreamFile(ctx context.Context, filePath string, chunkSize int, fn func([]byte) error) error {
	if chunkSize <= 0 {
		chunkSize = DefaultStreamChunkSize
	}
	rc, err := c.ReadFile(ctx, filePath)
	if err != nil {
		return err
	}
	defer rc.Close()

	buf := make([]byte, chunkSize)
	for {
		n, err := io.ReadFull(rc, buf)
		if n > 0 {
			if ferr := fn(buf[:n]); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return opError("stream file", c.Bucket(), filePath, storage.ErrStore, err)
		}
	}
}

// StatFile returns the metadata of the object at filePath
func (c *Client) StatFile(ctx context.Context, filePath string) (storage.Object, error) {
	if err := validateFile("stat file", filePath); err != nil {
		return storage.Object{}, err
	}
	bucket, err := c.bound("stat file", filePath)
	if err != nil {
		return storage.Object{}, err
	}

	c.logger.Debug("Describing object", "bucket", bucket, "key", filePath)
	obj, err := c.store.HeadObject(ctx, bucket, filePath)
	if err != nil {
		return storage.Object{}, storeError("stat file", bucket, filePath, err)
	}
	return obj, nil
}

// ObjectURL returns the public URL of filePath under the configured origin
func (c *Client) ObjectURL(filePath string) (string, error) {
	return ObjectURL(c.opts.OriginURL, filePath)
}

// ObjectURL joins filePath onto originURL, escaping it as a URL path
func ObjectURL(originURL, filePath string) (string, error) {
	if err := validateFile("object url", filePath); err != nil {
		return "", err
	}
	if originURL == "" {
		return "", opError("object url", "", filePath, storage.ErrConfiguration, errors.New("origin URL is not configured"))
	}
	u, err := url.JoinPath(originURL, filePath)
	if err != nil {
		return "", opError("object url", "", filePath, storage.ErrConfiguration, err)
	}
	return u, nil
}

// PresignURL returns a time-limited download URL for filePath on backends that can sign one
func (c *Client) PresignURL(ctx context.Context, filePath string, ttl time.Duration) (string, error) {
	if err := validateFile("presign url", filePath); err != nil {
		return "", err
	}
	bucket, err := c.bound("presign url", filePath)
	if err != nil {
		return "", err
	}
	presigner, ok := c.store.(storage.Presigner)
	if !ok {
		return "", opError("presign url", bucket, filePath, storage.ErrStore, storage.ErrUnsupported)
	}
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}

	c.logger.Debug("Presigning object URL", "bucket", bucket, "key", filePath, "ttl", ttl)
	u, err := presigner.PresignGetObject(ctx, bucket, filePath, ttl)
	if err != nil {
		return "", opError("presign url", bucket, filePath, storage.ErrStore, err)
	}
	return u, nil
}

// detectContentType resolves the content type from the key's extension, falling back to
// sniffing the leading bytes. The returned reader yields the full original stream.
func detectContentType(key string, r io.Reader) (string, io.Reader, error) {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct, r, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

// sizeOf returns the remaining length of in-memory readers, or -1
func sizeOf(r io.Reader) int64 {
	if l, ok := r.(interface{ Len() int }); ok {
		return int64(l.Len())
	}
	return -1
}
