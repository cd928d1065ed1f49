// File: pkg/spaces/paths.go
package spaces

import (
	"errors"
	"strings"

	"bucketeer/pkg/storage"
)

var (
	errEmptyPath      = errors.New("path is empty")
	errTrailingFolder = errors.New("file path ends with the folder separator and would collide with a folder marker")
)

// folderKey normalizes a folder path to end with exactly one separator
func folderKey(folderPath string) string {
	return strings.TrimRight(folderPath, storage.Separator) + storage.Separator
}

// listPrefix is folderKey for non-root paths; the empty path lists the bucket root
func listPrefix(folderPath string) string {
	if strings.Trim(folderPath, storage.Separator) == "" {
		return ""
	}
	return folderKey(folderPath)
}

func validateFolder(op, folderPath string) (string, error) {
	if strings.TrimSpace(strings.Trim(folderPath, storage.Separator)) == "" {
		return "", opError(op, "", folderPath, storage.ErrValidation, errEmptyPath)
	}
	return folderKey(folderPath), nil
}

func validateFile(op, filePath string) error {
	if strings.TrimSpace(filePath) == "" {
		return opError(op, "", filePath, storage.ErrValidation, errEmptyPath)
	}
	if strings.HasSuffix(filePath, storage.Separator) {
		return opError(op, "", filePath, storage.ErrValidation, errTrailingFolder)
	}
	return nil
}

// baseName returns the final component of a key, ignoring a trailing separator
func baseName(key string) string {
	key = strings.TrimSuffix(key, storage.Separator)
	return key[strings.LastIndex(key, storage.Separator)+1:]
}

// GetActualFileNames returns the final path component of each path, i.e. everything
// after the last separator. It does not touch the store.
func GetActualFileNames(filePaths []string) []string {
	names := make([]string, 0, len(filePaths))
	for _, p := range filePaths {
		names = append(names, p[strings.LastIndex(p, storage.Separator)+1:])
	}
	return names
}
