// File: pkg/spaces/multipart.go
package spaces

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"

	"bucketeer/pkg/storage"
)

// InitiateMultipartUpload starts a multipart upload at filePath and returns its upload ID
func (c *Client) InitiateMultipartUpload(ctx context.Context, filePath string) (string, error) {
	if err := validateFile("initiate multipart upload", filePath); err != nil {
		return "", err
	}
	bucket, err := c.bound("initiate multipart upload", filePath)
	if err != nil {
		return "", err
	}
	mp, ok := c.store.(storage.MultipartStorage)
	if !ok {
		return "", opError("initiate multipart upload", bucket, filePath, storage.ErrStore, storage.ErrUnsupported)
	}

	contentType := mime.TypeByExtension(path.Ext(filePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	uploadID, err := mp.CreateMultipartUpload(ctx, bucket, filePath, c.putOptions(contentType, -1))
	if err != nil {
		return "", opError("initiate multipart upload", bucket, filePath, storage.ErrStore, err)
	}
	c.logger.Debug("Initiated multipart upload", "bucket", bucket, "key", filePath, "uploadID", uploadID)
	return uploadID, nil
}

// UploadFileChunked uploads data at filePath in parts of chunkSize bytes (the configured
// chunk size when zero). Data that fits in one part is written with a single put, as is
// everything on backends without multipart support. A failed multipart upload is aborted.
func (c *Client) UploadFileChunked(ctx context.Context, filePath string, data io.Reader, chunkSize int64) error {
	const op = "upload file chunked"
	if err := validateFile(op, filePath); err != nil {
		return err
	}
	if chunkSize <= 0 {
		chunkSize = c.opts.ChunkSize
	}
	if chunkSize < storage.MinPartSize {
		return opError(op, "", filePath, storage.ErrValidation,
			fmt.Errorf("chunk size %d is below the minimum part size of %d bytes", chunkSize, storage.MinPartSize))
	}
	bucket, err := c.bound(op, filePath)
	if err != nil {
		return err
	}

	mp, ok := c.store.(storage.MultipartStorage)
	if !ok {
		c.logger.Debug("Provider has no multipart support, falling back to a single put", "bucket", bucket, "key", filePath)
		return c.put(ctx, op, filePath, data)
	}

	buf := make([]byte, chunkSize)
	n, err := io.ReadFull(data, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return c.put(ctx, op, filePath, bytes.NewReader(buf[:n]))
	}
	if err != nil {
		return opError(op, bucket, filePath, storage.ErrStore, fmt.Errorf("error reading file data: %w", err))
	}

	contentType, _, _ := detectContentType(filePath, bytes.NewReader(buf[:min(n, sniffLen)]))
	uploadID, err := mp.CreateMultipartUpload(ctx, bucket, filePath, c.putOptions(contentType, -1))
	if err != nil {
		return opError(op, bucket, filePath, storage.ErrStore, err)
	}
	c.logger.Debug("Started multipart upload", "bucket", bucket, "key", filePath, "uploadID", uploadID, "chunkSize", chunkSize)

	parts, err := c.uploadParts(ctx, mp, bucket, filePath, uploadID, data, buf, n)
	if err == nil {
		err = mp.CompleteMultipartUpload(ctx, bucket, filePath, uploadID, parts)
	}
	if err != nil {
		// The upload must be released even when ctx is already cancelled
		if abortErr := mp.AbortMultipartUpload(context.WithoutCancel(ctx), bucket, filePath, uploadID); abortErr != nil {
			c.logger.Warn("Failed to abort multipart upload", "bucket", bucket, "key", filePath, "uploadID", uploadID, "error", abortErr)
			err = errors.Join(err, fmt.Errorf("error aborting upload %s: %w", uploadID, abortErr))
		}
		return opError(op, bucket, filePath, storage.ErrStore, err)
	}

	c.logger.Debug("Completed multipart upload", "bucket", bucket, "key", filePath, "parts", len(parts))
	return nil
}

// uploadParts sends the already-read first chunk and then the rest of data, one part per chunk
func (c *Client) uploadParts(ctx context.Context, mp storage.MultipartStorage, bucket, key, uploadID string, data io.Reader, buf []byte, n int) ([]storage.Part, error) {
	var parts []storage.Part
	for partNumber := int32(1); ; partNumber++ {
		if partNumber > maxParts {
			return nil, fmt.Errorf("object needs more than %d parts, use a larger chunk size", maxParts)
		}

		part, err := mp.UploadPart(ctx, bucket, key, uploadID, partNumber, buf[:n])
		if err != nil {
			return nil, fmt.Errorf("error uploading part %d: %w", partNumber, err)
		}
		parts = append(parts, part)

		n, err = io.ReadFull(data, buf)
		if errors.Is(err, io.EOF) {
			return parts, nil
		}
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("error reading part %d: %w", partNumber+1, err)
		}
	}
}
