// File: pkg/common/provider.go
package common

type Provider string

const (
	GCP    Provider = "GCP"
	AWS    Provider = "AWS"
	Spaces Provider = "SPACES"
	Memory Provider = "MEMORY"
)
