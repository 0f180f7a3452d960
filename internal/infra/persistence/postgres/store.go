// Package postgres provides a Postgres-backed client store. Records are kept in
// a session-scoped temporary table, so they share the lifetime of the store.
package postgres

import (
	"clientcore/internal/infra/persistence/sqlstore"
	"context"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	// DriverName identifies the postgres backend.
	DriverName    = "postgres"
	defaultDriver = "pgx"
	// Default DSN keeps parity with OpenPersistentStore defaults while allowing overrides via config.
	defaultDSN = "postgres://localhost/clientcore?sslmode=disable"
)

// Dialect describes the Postgres flavour of the client table.
var Dialect = sqlstore.Dialect{
	Name:        DriverName,
	DriverName:  defaultDriver,
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	Schema: []string{
		`CREATE TEMPORARY TABLE IF NOT EXISTS clients (
			id BIGINT PRIMARY KEY,
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

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN).
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	return sqlstore.Open(ctx, Dialect, dsn)
}
