// File: internal/provider/providers.go

// Package provider links every backend implementation into the binary.
// Each imported package registers itself with the registry from its init() function;
// a new backend is added by implementing it under pkg/storage and importing it here.
package provider

import (
	_ "bucketeer/pkg/storage/aws"
	_ "bucketeer/pkg/storage/gcp"
)
