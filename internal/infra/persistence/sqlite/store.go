// Package sqlite provides the SQLite-backed client store using the pure Go
// modernc driver.
package sqlite

import (
	"clientcore/internal/infra/persistence/sqlstore"
	"context"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const (
	// DriverName identifies the sqlite backend.
	DriverName = "sqlite"
	defaultDSN = ":memory:"
)

// Dialect describes the SQLite flavour of the client table. Indexes on a TEMP
// table land in the temp schema.
var Dialect = sqlstore.Dialect{
	Name:        DriverName,
	DriverName:  "sqlite",
	Placeholder: func(int) string { return "?" },
	Schema: []string{
		`CREATE TEMP TABLE IF NOT EXISTS clients (
			id INTEGER PRIMARY KEY,
			first_name TEXT,
			last_name TEXT,
			id_number TEXT,
			mobile_number TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS clients_id_number_key ON clients (id_number)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS clients_mobile_number_key ON clients (mobile_number)`,
	},
}

// Store aliases the shared SQL implementation.
type Store = sqlstore.Store

// NewStore opens a SQLite-backed store. An empty path selects a private
// in-memory database.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = defaultDSN
	}
	return sqlstore.Open(ctx, Dialect, path)
}
