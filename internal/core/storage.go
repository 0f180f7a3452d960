package core

import (
	"clientcore/internal/config"
	"clientcore/internal/infra/persistence/memory"
	"clientcore/internal/infra/persistence/postgres"
	"clientcore/internal/infra/persistence/sqlite"
	"clientcore/pkg/domain"
	"context"
	"fmt"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-process map (default)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite, temporary table
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server, temporary table
)

// OpenPersistentStore selects a backend from the storage configuration.
// Defaults to memory when the driver is unset.
func OpenPersistentStore(ctx context.Context, cfg config.Storage) (domain.PersistentStore, error) {
	driver := StorageDriver(cfg.Driver)
	if driver == "" {
		driver = StorageMemory
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(ctx, cfg.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
