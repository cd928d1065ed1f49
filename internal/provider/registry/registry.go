// File: internal/provider/registry/registry.go
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"bucketeer/internal/config"
	"bucketeer/pkg/storage"
)

// ProviderConfigCheck reports whether cfg carries enough settings to open the backend
type ProviderConfigCheck func(cfg *config.Config) bool

// ProviderInitializer opens a storage backend from cfg
type ProviderInitializer func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error)

// ProviderRegistration is what a backend package hands to RegisterProvider from its init()
type ProviderRegistration struct {
	ConfigCheck ProviderConfigCheck
	Initializer ProviderInitializer
	// Names the config keys the provider needs, shown when it is not configured
	RequiredKeys []string
}

func (r ProviderRegistration) validate() error {
	switch {
	case r.ConfigCheck == nil:
		return fmt.Errorf("registration missing ConfigCheck")
	case r.Initializer == nil:
		return fmt.Errorf("registration missing Initializer")
	}
	return nil
}

// backends is keyed by lowercase provider name
type backends struct {
	mu      sync.RWMutex
	entries map[string]ProviderRegistration
}

var registered = &backends{entries: make(map[string]ProviderRegistration)}

func (b *backends) add(name string, reg ProviderRegistration) error {
	if err := reg.validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.entries[name]; exists {
		return fmt.Errorf("already registered")
	}
	b.entries[name] = reg
	return nil
}

func (b *backends) get(name string) (ProviderRegistration, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	reg, ok := b.entries[name]
	return reg, ok
}

func (b *backends) snapshot() map[string]ProviderRegistration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.entries)
}

// RegisterProvider is called from a backend package's init(). A duplicate name or an
// incomplete registration is a programming error and panics.
func RegisterProvider(name string, registration ProviderRegistration) {
	name = strings.ToLower(name)
	if err := registered.add(name, registration); err != nil {
		panic(fmt.Sprintf("provider %s: %v", name, err))
	}
}

// GetSupportedProviders returns every registered provider name, sorted
func GetSupportedProviders() []string {
	return slices.Sorted(maps.Keys(registered.snapshot()))
}

func IsSupported(providerName string) bool {
	_, ok := GetRegistration(providerName)
	return ok
}

func GetRegistration(providerName string) (ProviderRegistration, bool) {
	return registered.get(strings.ToLower(providerName))
}

// GetAllRegistrations returns a copy safe for the caller to range over
func GetAllRegistrations() map[string]ProviderRegistration {
	return registered.snapshot()
}
