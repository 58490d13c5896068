package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// NewSQLiteDB opens (creating if needed) the database file at path and
// brings its schema up to date.
func NewSQLiteDB(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("NewSQLiteDB: create dir: %w", err)
	}

	if err := RunSQLiteMigrations(path); err != nil {
		return nil, fmt.Errorf("NewSQLiteDB: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteDB: open: %w", err)
	}
	// A single writer connection sidesteps SQLITE_BUSY between the ledger's
	// multi-key transactions.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewSQLiteDB: ping: %w", err)
	}
	return db, nil
}
