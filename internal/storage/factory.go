// factory.go implements the storage backend registry and factory, mapping backend type
// strings (local, s3, azure, gcs) to constructor functions and dispatching NewStorage calls.
package storage

import (
	"fmt"

	"github.com/radius-gateway/radius-gateway/internal/config"
)

// FactoryFunc constructs a storage backend from the loaded configuration.
type FactoryFunc func(*config.Config) (Storage, error)

var factories = make(map[string]FactoryFunc)

// Register adds a backend constructor under the given name. Each backend
// package calls this from init, triggered by the blank imports in the router.
func Register(name string, factory FactoryFunc) {
	factories[name] = factory
}

// NewStorage creates the storage backend named by storage.default_backend.
func NewStorage(cfg *config.Config) (Storage, error) {
	factory, ok := factories[cfg.Storage.DefaultBackend]
	if !ok {
		return nil, fmt.Errorf("unsupported storage backend: %s (must be 'local', 'azure', 's3', or 'gcs')", cfg.Storage.DefaultBackend)
	}

	return factory(cfg)
}
