// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code: no C compiler needed, works everywhere Go works.
//
// ONE CONNECTION:
// The pool is capped at a single connection. Every transaction therefore runs
// alone, which is what the garden activation and plant save sequences rely on.
// The same cap keeps a ":memory:" database alive for the life of the DB, since
// each new connection to ":memory:" would open a fresh, empty database.
//
// Inside withTx, only the *sql.Tx may be used. Touching db.conn there would
// wait for the one connection the transaction is holding.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The sqlite package's init() registers a database/sql driver named "sqlite".
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool. The per-table repositories are views
// onto it returned by Users, Gardens, Beds, Plants and Catalog.
type DB struct {
	conn *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx, so read helpers can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var pragmas = []struct {
	stmt string
	what string
}{
	{"PRAGMA journal_mode=WAL", "setting WAL mode"},
	{"PRAGMA foreign_keys=ON", "enabling foreign keys"},
	{"PRAGMA busy_timeout=5000", "setting busy timeout"},
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/garden.db"  → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	for _, p := range pragmas {
		if _, err := conn.Exec(p.stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p.what, err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping is used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// withTx runs fn inside a transaction. fn's error, or a failed commit, rolls
// everything back; the deferred Rollback is a no-op after a successful Commit.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is idempotent, so this runs on every start.
// Columns added after the first release go through addColumnIfNotExists.
func (db *DB) migrate() error {
	// email is nullable so GitHub accounts with a hidden email don't collide
	// on the UNIQUE index; github_id likewise for password accounts.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL,
			email         TEXT UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER UNIQUE,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	if err := db.addColumnIfNotExists("users", "avatar_url",
		"TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding avatar_url to users: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS gardens (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			garden_name TEXT NOT NULL,
			width       INTEGER NOT NULL CHECK (width > 0),
			height      INTEGER NOT NULL CHECK (height > 0),
			is_active   INTEGER NOT NULL DEFAULT 0,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_gardens_user_id ON gardens(user_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating gardens table: %w", err)
	}

	// top_position/left_position = -1/-1 is an unplaced bed.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS garden_beds (
			id            TEXT PRIMARY KEY,
			garden_id     TEXT NOT NULL REFERENCES gardens(id) ON DELETE CASCADE,
			name          TEXT NOT NULL,
			width         INTEGER NOT NULL CHECK (width > 0),
			height        INTEGER NOT NULL CHECK (height > 0),
			top_position  INTEGER NOT NULL DEFAULT -1,
			left_position INTEGER NOT NULL DEFAULT -1,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_garden_beds_garden_id ON garden_beds(garden_id);
	`)
	if err != nil {
		return fmt.Errorf("creating garden_beds table: %w", err)
	}

	// The catalog keeps integer IDs so seed files can refer to them.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS plants (
			id              INTEGER PRIMARY KEY,
			common_name     TEXT NOT NULL,
			scientific_name TEXT NOT NULL DEFAULT '',
			icon_image      TEXT NOT NULL DEFAULT '',
			spacing         INTEGER NOT NULL DEFAULT 1
		);
	`)
	if err != nil {
		return fmt.Errorf("creating plants table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS plants_in_beds (
			id           TEXT PRIMARY KEY,
			bed_id       TEXT NOT NULL REFERENCES garden_beds(id) ON DELETE CASCADE,
			plant_id     INTEGER NOT NULL REFERENCES plants(id),
			x_position   INTEGER NOT NULL,
			y_position   INTEGER NOT NULL,
			plant_role   TEXT NOT NULL DEFAULT '',
			planted_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_plants_in_beds_bed_id ON plants_in_beds(bed_id);
	`)
	if err != nil {
		return fmt.Errorf("creating plants_in_beds table: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent, so it is safe to run multiple times.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// checkAffected turns a zero-row write into notFound.
func checkAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
