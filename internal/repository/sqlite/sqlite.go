// Package sqlite implements the repository interfaces on SQLite.
//
// modernc.org/sqlite is a pure-Go translation of SQLite — no CGo, no C
// compiler, works everywhere Go works. We reach it through database/sql,
// so *sql.DB is a connection pool and *sql.Tx a transaction on one
// connection.
//
// TRANSACTIONS:
// The user↔places invariant needs two-entity writes that commit or fail
// as one unit (insert place + append to owned set; delete place + remove
// from owned set). Each repository therefore runs its SQL against a small
// querier interface satisfied by BOTH *sql.DB and *sql.Tx. Standalone
// calls go through the pool; calls inside DB.InTransaction go through the
// transaction. The repositories themselves cannot tell the difference,
// which keeps every query written exactly once.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/placeshare/internal/repository"
)

// querier is the subset of *sql.DB and *sql.Tx the repositories use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// compile-time check that *DB implements repository.Store
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and hands out repositories.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs
// migrations. Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress — without
	// it every write locks the whole database file.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. The application still
	// maintains both sides of the user↔place link itself; the constraints
	// are a backstop, not the mechanism.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool (flushes the WAL, releases the file lock).
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns a user repository running against the pool.
func (db *DB) Users() repository.UserRepository {
	return &userRepo{q: db.conn}
}

// Places returns a place repository running against the pool.
func (db *DB) Places() repository.PlaceRepository {
	return &placeRepo{q: db.conn}
}

// InTransaction runs fn with repositories bound to one transaction.
//
// Commit only happens when fn returns nil. On error OR panic the deferred
// rollback undoes every write first, so a caller that half-finished an
// insert-place-then-update-owner sequence leaves nothing behind.
func (db *DB) InTransaction(ctx context.Context, fn func(r repository.Repositories) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	// Rollback after a successful Commit is a harmless no-op.
	defer tx.Rollback()

	repos := repository.Repositories{
		Users:  &userRepo{q: tx},
		Places: &placeRepo{q: tx},
	}

	if err := fn(repos); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it safe to
// run on every start.
//
// user_places is the explicit owned-place set. It duplicates what
// places.creator implies on purpose: the set is first-class state, and
// the application commits both sides in one transaction rather than
// deriving one from the other.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			image         TEXT NOT NULL DEFAULT '',
			github_id     INTEGER UNIQUE,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS places (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			address     TEXT NOT NULL,
			lat         REAL NOT NULL,
			lng         REAL NOT NULL,
			creator     TEXT NOT NULL REFERENCES users(id),
			image       TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_places_creator ON places(creator);

		CREATE TABLE IF NOT EXISTS user_places (
			user_id  TEXT NOT NULL REFERENCES users(id),
			place_id TEXT NOT NULL,
			PRIMARY KEY (user_id, place_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
