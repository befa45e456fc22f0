// Package persistence selects a concrete document store backend.
package persistence

import (
	"fmt"
	"os"

	"placementcore/internal/infra/persistence/memory"
	"placementcore/internal/infra/persistence/postgres"
	"placementcore/internal/infra/persistence/sqlite"
	"placementcore/pkg/domain"
)

// Driver identifies a concrete persistent storage implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// Open selects a backend using environment variables. Defaults to sqlite
// when unset.
//
//	PLACEMENTCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	PLACEMENTCORE_SQLITE_PATH: path to sqlite file (default ./placementcore.db)
//	PLACEMENTCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func Open() (domain.DocumentStore, error) {
	driver := os.Getenv("PLACEMENTCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(DriverSQLite)
	}
	return OpenDriver(Driver(driver), os.Getenv("PLACEMENTCORE_SQLITE_PATH"), os.Getenv("PLACEMENTCORE_POSTGRES_DSN"))
}

// OpenDriver opens the named backend with explicit parameters.
func OpenDriver(driver Driver, sqlitePath, postgresDSN string) (domain.DocumentStore, error) {
	switch driver {
	case DriverMemory:
		return memory.NewStore(), nil
	case DriverSQLite:
		return sqlite.NewStore(sqlitePath)
	case DriverPostgres:
		return postgres.NewStore(postgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
