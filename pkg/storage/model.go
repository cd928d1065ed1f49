// File: pkg/storage/model.go
package storage

import (
	"fmt"
	"strings"
	"time"

	"bucketeer/pkg/common"
)

type Bucket struct {
	Name         string
	Provider     common.Provider
	Location     string
	StorageClass string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	// A value of -1 indicates that the usage is unknown or could not be retrieved
	UsageBytes int64
	Labels     map[string]string
	Versioning *Versioning
}

type Versioning struct {
	Enabled bool
}

type Object struct {
	Key          string
	Bucket       string
	Provider     common.Provider
	Size         int64
	ETag         string
	ContentType  string
	CacheControl string
	StorageClass string
	LastModified time.Time
	Metadata     map[string]string
}

// IsFolderMarker reports whether the object is a zero-byte marker standing in for a folder
func (o Object) IsFolderMarker() bool {
	return strings.HasSuffix(o.Key, Separator) && o.Size == 0
}

func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "N/A"
	}
	if bytes == 0 {
		return "0 B"
	}

	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	sizes := []string{"KB", "MB", "GB", "TB", "PB", "EB"}
	if exp >= len(sizes) {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), sizes[exp])
}
