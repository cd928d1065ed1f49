// File: internal/flags/flags.go
package flags

// Centralized definitions for CLI flags used across the application

const (
	// Provider flags select the backend an operation runs against (e.g., spaces, aws, gcp)
	Provider      = "provider"
	ProviderShort = "p"

	// Providers (plural) flags are used when an operation can target multiple providers (e.g., bucket list)
	// Note: 'p' is reused for both singular and plural provider flags depending on the subcommand context
	Providers      = "providers"
	ProvidersShort = "p"

	// Location flags are used to specify the region for bucket creation
	Location      = "location"
	LocationShort = "l"

	// Bucket flags override the configured default bucket
	Bucket      = "bucket"
	BucketShort = "b"

	// Output selects the rendering of results: table, json or yaml
	Output      = "output"
	OutputShort = "o"

	// ChunkSize sets the multipart part size for uploads (e.g., 8MiB)
	ChunkSize = "chunk-size"

	// Multipart forces a chunked multipart upload
	Multipart = "multipart"

	// TTL sets the lifetime of presigned URLs
	TTL = "ttl"

	// Force flags are used to bypass interactive confirmation prompts for destructive operations
	Force      = "force"
	ForceShort = "f"

	// Debug flags are used to enable verbose logging
	Debug      = "debug"
	DebugShort = "d"

	// Config points at an alternative configuration file
	Config = "config"
)
