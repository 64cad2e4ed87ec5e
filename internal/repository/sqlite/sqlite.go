// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for:
// - Single-server deployments (which is most apps, honestly)
// - Development and testing (use ":memory:" for in-memory DB)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code, so no C compiler is needed.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB: a connection pool (NOT a single connection!)
//   - sql.Tx: a transaction
//   - sql.Row: a single result row
//   - sql.Rows: multiple result rows (must be closed!)
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pressly/goose/v3"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/library-api/internal/repository"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// compile-time check that *DB implements repository.Store
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and hands out one repository per area.
//
// UserDB, CatalogDB and LoanDB all share the same pool; they are separate
// types only so each satisfies exactly one repository interface.
type DB struct {
	conn *sql.DB

	users   *UserDB
	catalog *CatalogDB
	loans   *LoanDB
}

// New opens (or creates) the database at dbPath and applies migrations.
//
// dbPath examples:
//   - "data/library.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (great for tests, lost on close)
func New(ctx context.Context, dbPath string) (*DB, error) {
	memory := dbPath == ":memory:"

	// PRAGMAS IN THE DSN:
	// modernc applies every _pragma on each new pooled connection, so they
	// can't be forgotten on a connection opened later.
	//
	// foreign_keys is OFF by default in SQLite; loans and book_authors rely on it.
	// WAL lets readers proceed while a write is in progress (file DBs only).
	// _time_format=sqlite stores time.Time as "YYYY-MM-DD HH:MM:SS.fff+00:00",
	// which sorts correctly as text.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	if !memory {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database.
	// Pin the pool to one connection so all queries see the migrated schema.
	if memory {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if err := migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	db := &DB{conn: conn}
	db.users = &UserDB{conn: conn}
	db.catalog = &CatalogDB{conn: conn}
	db.loans = &LoanDB{conn: conn}
	return db, nil
}

// migrate applies the embedded goose migrations that haven't run yet.
// goose records applied versions in its own goose_db_version table.
func migrate(ctx context.Context, conn *sql.DB) error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

func (db *DB) Users() repository.UserRepository      { return db.users }
func (db *DB) Catalog() repository.CatalogRepository { return db.catalog }
func (db *DB) Loans() repository.LoanRepository      { return db.loans }

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// isUniqueViolation reports whether err is SQLite rejecting a row because
// of a UNIQUE constraint or unique index.
func isUniqueViolation(err error) bool {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// extended codes disabled on this connection
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
