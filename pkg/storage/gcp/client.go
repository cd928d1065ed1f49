// File: pkg/storage/gcp/client.go
package gcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bucketeer/internal/config"
	"bucketeer/internal/provider/registry"
	"bucketeer/pkg/common"
	"bucketeer/pkg/storage"

	gcpstorage "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// Number of single-object deletes in flight during a batch delete, since GCS has no bulk delete call
const defaultDeleteConcurrency = 16

func init() {
	registry.RegisterProvider("gcp", registry.ProviderRegistration{
		ConfigCheck:  isConfigured,
		Initializer:  initialize,
		RequiredKeys: []string{"gcp.project"},
	})
}

// Checks if the GCP project ID is set
func isConfigured(cfg *config.Config) bool {
	return cfg.GCP.Project != ""
}

// Initializes the GCP storage client from the configuration
func initialize(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if !isConfigured(cfg) {
		return nil, fmt.Errorf("%w: GCP project is not set", storage.ErrConfiguration)
	}
	return NewGCPStorage(ctx, cfg.GCP.Project, logger)
}

type GCPStorage struct {
	client            *gcpstorage.Client
	projectID         string
	deleteConcurrency int
	logger            *slog.Logger
}

var (
	_ storage.Storage       = (*GCPStorage)(nil)
	_ storage.BucketManager = (*GCPStorage)(nil)
	_ storage.Presigner     = (*GCPStorage)(nil)
)

func NewGCPStorage(ctx context.Context, projectID string, logger *slog.Logger) (*GCPStorage, error) {
	client, err := gcpstorage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create GCP storage client: %v", storage.ErrConfiguration, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GCPStorage{
		client:            client,
		projectID:         projectID,
		deleteConcurrency: defaultDeleteConcurrency,
		logger:            logger,
	}, nil
}

func (g *GCPStorage) ProviderName() common.Provider {
	return common.GCP
}

func (g *GCPStorage) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func isNotFound(err error) bool {
	if errors.Is(err, gcpstorage.ErrObjectNotExist) || errors.Is(err, gcpstorage.ErrBucketNotExist) {
		return true
	}
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 404
}

// wrapError annotates err with the failed call and marks not-found conditions with storage.ErrNotFound
func wrapError(call, bucket, key string, err error) error {
	target := bucket
	if key != "" {
		target = bucket + storage.Separator + key
	}
	if isNotFound(err) {
		return fmt.Errorf("%s %s: %w: %w", call, target, storage.ErrNotFound, err)
	}
	return fmt.Errorf("%s %s: %w", call, target, err)
}
