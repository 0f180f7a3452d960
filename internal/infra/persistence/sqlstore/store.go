// Package sqlstore implements the client record store on top of database/sql.
// Concrete backends (sqlite, postgres) supply a Dialect and a registered driver.
//
// The clients table is created as a TEMPORARY table on a single pinned
// connection: records live exactly as long as the store, like the memory
// backend.
package sqlstore

import (
	"clientcore/pkg/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	// Name is reported by Store.Driver.
	Name string
	// DriverName is the database/sql driver to open.
	DriverName string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// Schema holds the statements creating the temporary table and its indexes.
	Schema []string
}

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

// Store persists clients in a SQL table.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects with the dialect's driver, pins the pool to one connection and
// applies the schema.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	openMu.Lock()
	db, err := sqlOpen(dialect.DriverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	for _, stmt := range dialect.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &Store{db: db, dialect: dialect}, nil
}

// Driver returns the backend identifier.
func (s *Store) Driver() string { return s.dialect.Name }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the pinned connection, dropping the temporary table.
func (s *Store) Close() error { return s.db.Close() }

// RunInTransaction applies fn inside a SQL transaction, committing on success.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) error {
	return s.inTx(ctx, false, fn)
}

// View applies fn inside a transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(domain.Transaction) error) error {
	return s.inTx(ctx, true, fn)
}

func (s *Store) inTx(ctx context.Context, readOnly bool, fn func(domain.Transaction) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&transaction{ctx: ctx, tx: tx, dialect: s.dialect}); err != nil {
		return err
	}
	if readOnly {
		return nil
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

const clientColumns = "id, first_name, last_name, id_number, mobile_number"

type transaction struct {
	ctx     context.Context
	tx      *sql.Tx
	dialect Dialect
}

func (t *transaction) ph(n int) string { return t.dialect.Placeholder(n) }

func (t *transaction) Insert(c domain.Client) (int64, error) {
	var id int64
	if err := t.tx.QueryRowContext(t.ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM clients`).Scan(&id); err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO clients (%s) VALUES (%s, %s, %s, %s, %s)`,
		clientColumns, t.ph(1), t.ph(2), t.ph(3), t.ph(4), t.ph(5))
	if _, err := t.tx.ExecContext(t.ctx, query, id, nullable(c.FirstName), nullable(c.LastName), nullable(c.IDNumber), nullable(c.MobileNumber)); err != nil {
		return 0, fmt.Errorf("insert client: %w", err)
	}
	return id, nil
}

func (t *transaction) FindByID(id int64) (domain.Client, bool, error) {
	query := fmt.Sprintf(`SELECT %s FROM clients WHERE id = %s`, clientColumns, t.ph(1))
	c, err := scanClient(t.tx.QueryRowContext(t.ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Client{}, false, nil
	}
	if err != nil {
		return domain.Client{}, false, fmt.Errorf("find client %d: %w", id, err)
	}
	return c, true, nil
}

// Update overwrites the row, inserting it when absent, matching map-put semantics.
func (t *transaction) Update(id int64, c domain.Client) error {
	query := fmt.Sprintf(`UPDATE clients SET first_name = %s, last_name = %s, id_number = %s, mobile_number = %s WHERE id = %s`,
		t.ph(1), t.ph(2), t.ph(3), t.ph(4), t.ph(5))
	res, err := t.tx.ExecContext(t.ctx, query, nullable(c.FirstName), nullable(c.LastName), nullable(c.IDNumber), nullable(c.MobileNumber), id)
	if err != nil {
		return fmt.Errorf("update client %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	insert := fmt.Sprintf(`INSERT INTO clients (%s) VALUES (%s, %s, %s, %s, %s)`,
		clientColumns, t.ph(1), t.ph(2), t.ph(3), t.ph(4), t.ph(5))
	if _, err := t.tx.ExecContext(t.ctx, insert, id, nullable(c.FirstName), nullable(c.LastName), nullable(c.IDNumber), nullable(c.MobileNumber)); err != nil {
		return fmt.Errorf("upsert client %d: %w", id, err)
	}
	return nil
}

func (t *transaction) Delete(id int64) (bool, error) {
	res, err := t.tx.ExecContext(t.ctx, fmt.Sprintf(`DELETE FROM clients WHERE id = %s`, t.ph(1)), id)
	if err != nil {
		return false, fmt.Errorf("delete client %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete client %d: %w", id, err)
	}
	return n > 0, nil
}

func (t *transaction) Search(q domain.ClientQuery) ([]domain.Client, error) {
	out := make([]domain.Client, 0)
	var (
		conds []string
		args  []any
	)
	add := func(field domain.Field, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		conds = append(conds, fmt.Sprintf("%s = %s", field.Column(), t.ph(len(args))))
	}
	add(domain.FieldIDNumber, q.IDNumber)
	add(domain.FieldFirstName, q.FirstName)
	add(domain.FieldMobileNumber, q.MobileNumber)
	if len(conds) == 0 {
		return out, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM clients WHERE %s ORDER BY id`, clientColumns, strings.Join(conds, " OR "))
	return t.queryClients(query, args...)
}

func (t *transaction) List() ([]domain.Client, error) {
	return t.queryClients(fmt.Sprintf(`SELECT %s FROM clients ORDER BY id`, clientColumns))
}

func (t *transaction) queryClients(query string, args ...any) ([]domain.Client, error) {
	out := make([]domain.Client, 0)
	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return out, nil
}

func (t *transaction) FieldExists(field domain.Field, value string) (bool, error) {
	column := field.Column()
	if column == "" {
		return false, fmt.Errorf("unknown field %q", field)
	}
	var n int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM clients WHERE %s = %s`, column, t.ph(1))
	if err := t.tx.QueryRowContext(t.ctx, query, value).Scan(&n); err != nil {
		return false, fmt.Errorf("field exists %s: %w", field, err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (domain.Client, error) {
	var (
		c                           domain.Client
		first, last, idNum, mobile sql.NullString
	)
	if err := row.Scan(&c.ID, &first, &last, &idNum, &mobile); err != nil {
		return domain.Client{}, err
	}
	c.FirstName = fromNull(first)
	c.LastName = fromNull(last)
	c.IDNumber = fromNull(idNum)
	c.MobileNumber = fromNull(mobile)
	return c, nil
}

func nullable(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func fromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
