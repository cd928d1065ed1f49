// File: internal/provider/factory/factory.go
package factory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"bucketeer/internal/config"
	"bucketeer/internal/provider/registry"
	"bucketeer/pkg/storage"
)

type Factory struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// Returns a list of providers that are registered and configured
func (f *Factory) GetConfiguredProviders() []string {
	var configuredProviders []string
	allRegistrations := registry.GetAllRegistrations()

	for name, registration := range allRegistrations {
		if registration.ConfigCheck(f.cfg) {
			configuredProviders = append(configuredProviders, name)
		}
	}
	sort.Strings(configuredProviders)
	return configuredProviders
}

// Checks if a specific provider is registered and configured
func (f *Factory) IsConfigured(providerName string) bool {
	registration, exists := registry.GetRegistration(providerName)
	if !exists {
		return false
	}
	return registration.ConfigCheck(f.cfg)
}

// Resolves an empty provider name to the configured default
func (f *Factory) ResolveProvider(providerName string) string {
	if providerName == "" {
		providerName = f.cfg.Provider
	}
	return strings.ToLower(providerName)
}

// Initializes and returns the storage backend for the specified provider.
// Unknown or unconfigured providers yield an error wrapping storage.ErrConfiguration.
func (f *Factory) GetStorageProvider(ctx context.Context, providerName string) (storage.Storage, error) {
	normalizedName := f.ResolveProvider(providerName)
	providerLogger := f.logger.With("provider", normalizedName)

	registration, exists := registry.GetRegistration(normalizedName)

	if !exists {
		return nil, fmt.Errorf("%w: unsupported provider: %s. Supported providers are: %v", storage.ErrConfiguration, normalizedName, registry.GetSupportedProviders())
	}

	if !registration.ConfigCheck(f.cfg) {
		return nil, fmt.Errorf("%w: provider '%s' is not configured. Set %s with 'bucketeer config set <key> <value>' or the matching environment variables",
			storage.ErrConfiguration, normalizedName, strings.Join(registration.RequiredKeys, ", "))
	}

	// Dynamically initialize the provider using the registered initializer function
	client, err := registration.Initializer(ctx, f.cfg, providerLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider %s: %w", normalizedName, err)
	}

	return client, nil
}
