// Package storage selects the persistence backend named in the settings.
package storage

import (
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/askme/internal/adapters/driven/storage/badger"
	"github.com/custodia-labs/askme/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/askme/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/ports/driven"
	"github.com/custodia-labs/askme/internal/logger"
)

// Backend is an opened store exposing the tenant and FAQ ports.
type Backend interface {
	TenantStore() driven.TenantStore
	FAQStore() driven.FAQStore
	Close() error
}

// Open opens the backend configured in settings. An empty path uses the
// backend's default location under ~/.askme/data.
func Open(settings domain.StorageSettings) (Backend, error) {
	switch settings.Backend {
	case domain.StorageBackendSQLite, "":
		s, err := sqlite.NewStore(settings.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Debug("storage: sqlite at %s", s.Path())
		return s, nil
	case domain.StorageBackendBadger:
		dir := settings.Path
		if dir != "" {
			dir = filepath.Join(dir, "badger")
		}
		s, err := badger.NewStore(badger.Options{Dir: dir})
		if err != nil {
			return nil, fmt.Errorf("opening badger store: %w", err)
		}
		logger.Debug("storage: badger at %s", s.Path())
		return s, nil
	case domain.StorageBackendMemory:
		logger.Debug("storage: in-memory")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("storage backend %q: %w", settings.Backend, domain.ErrUnsupportedType)
	}
}
