package registry

import (
	"context"
	"log/slog"
	"testing"

	"bucketeer/internal/config"
	"bucketeer/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistration() ProviderRegistration {
	return ProviderRegistration{
		ConfigCheck: func(cfg *config.Config) bool { return true },
		Initializer: func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
			return nil, nil
		},
	}
}

func TestRegisterProvider(t *testing.T) {
	RegisterProvider("Registry-Test-A", testRegistration())

	assert.True(t, IsSupported("registry-test-a"))
	assert.True(t, IsSupported("REGISTRY-TEST-A"))
	assert.Contains(t, GetSupportedProviders(), "registry-test-a")

	_, ok := GetRegistration("registry-test-a")
	assert.True(t, ok)
	_, ok = GetAllRegistrations()["registry-test-a"]
	assert.True(t, ok)
}

func TestRegisterProviderPanics(t *testing.T) {
	RegisterProvider("registry-test-b", testRegistration())

	require.Panics(t, func() {
		RegisterProvider("REGISTRY-TEST-B", testRegistration())
	}, "duplicate names must be rejected")

	require.Panics(t, func() {
		RegisterProvider("registry-test-c", ProviderRegistration{Initializer: testRegistration().Initializer})
	})
	require.Panics(t, func() {
		RegisterProvider("registry-test-d", ProviderRegistration{ConfigCheck: testRegistration().ConfigCheck})
	})
	assert.False(t, IsSupported("registry-test-c"))
}
