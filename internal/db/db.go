package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

const (
	// SQLite needs a few options to work well with a web app:
	// - WAL mode so reads and writes don't block each other.
	// - A busy timeout, the duration a connection waits for a lock.
	// - Foreign keys are enforced.
	// The write pool additionally uses immediate transactions to
	// prevent locking issues.
	writeOptions = "?_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000&_txlock=immediate"
	readOptions  = "?_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000"
)

// OpenSQLite opens a pool of SQLite connections. Different settings are
// appropriate for reading and writing, so this function needs to know
// what the sql.DB will be used for.
func OpenSQLite(dbFile string, write bool) (*sql.DB, error) {
	optsPostfix := readOptions
	if write {
		optsPostfix = writeOptions
	}

	db, err := sql.Open("sqlite3", dbFile+optsPostfix)
	if err != nil {
		return nil, err
	}

	if write {
		// A single connection for writing, SQLite only supports one
		// writer at a time anyway.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	return db, nil
}

// Migrate brings the database schema up to date using the goose
// migrations in the provided file system.
func Migrate(ctx context.Context, db *sql.DB, migrationFS fs.FS) error {
	goose.SetBaseFS(migrationFS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
