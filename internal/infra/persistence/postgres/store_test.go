package postgres

import (
	"clientcore/internal/infra/persistence/sqlstore"
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNewStoreAppliesTemporarySchema(t *testing.T) {
	db, conn := newStubDB()
	var gotDriver, gotDSN string
	restore := sqlstore.OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driverName, dsn
		return db, nil
	})
	defer restore()

	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()

	if gotDriver != defaultDriver || gotDSN != defaultDSN {
		t.Fatalf("expected %s/%s, got %s/%s", defaultDriver, defaultDSN, gotDriver, gotDSN)
	}
	if store.Driver() != DriverName {
		t.Fatalf("expected driver %q, got %q", DriverName, store.Driver())
	}
	if len(conn.execs) != len(Dialect.Schema) {
		t.Fatalf("expected %d schema statements, got %v", len(Dialect.Schema), conn.execs)
	}
	if !strings.Contains(conn.execs[0], "CREATE TEMPORARY TABLE") {
		t.Fatalf("expected temporary table, got %q", conn.execs[0])
	}
	if stats := store.DB().Stats(); stats.MaxOpenConnections != 1 {
		t.Fatalf("expected pool pinned to one connection, got %d", stats.MaxOpenConnections)
	}
}

func TestNewStorePingFailure(t *testing.T) {
	db, conn := newStubDB()
	conn.failPing = true
	restore := sqlstore.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()

	if _, err := NewStore(context.Background(), "postgres://example"); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestNewStoreSchemaFailure(t *testing.T) {
	db, conn := newStubDB()
	conn.failExec = true
	restore := sqlstore.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()

	if _, err := NewStore(context.Background(), "postgres://example"); err == nil || !strings.Contains(err.Error(), "apply schema") {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestNewStoreOpenFailure(t *testing.T) {
	restore := sqlstore.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, fmt.Errorf("boom") })
	defer restore()

	if _, err := NewStore(context.Background(), "postgres://example"); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestDialectPlaceholders(t *testing.T) {
	for n, want := range map[int]string{1: "$1", 2: "$2", 12: "$12"} {
		if got := Dialect.Placeholder(n); got != want {
			t.Fatalf("Placeholder(%d) = %q, want %q", n, got, want)
		}
	}
}

type stubConn struct {
	execs    []string
	failExec bool
	failPing bool
}

type stubDriver struct {
	conn *stubConn
}

func newStubDB() (*sql.DB, *stubConn) {
	conn := &stubConn{}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return nil, fmt.Errorf("not implemented") }

func (c *stubConn) Ping(context.Context) error {
	if c.failPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.execs = append(c.execs, query)
	if c.failExec {
		return nil, fmt.Errorf("exec fail")
	}
	return driver.RowsAffected(0), nil
}
