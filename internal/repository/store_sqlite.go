package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

var sqliteDialect = dialect{
	name: "sqlite",
	createTable: `
	CREATE TABLE IF NOT EXISTS ledger_kv (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	selectValue: `SELECT v FROM ledger_kv WHERE k = ?`,
	upsert: `
		INSERT INTO ledger_kv (k, v, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v, updated_at = excluded.updated_at`,
	listKeys: `SELECT k FROM ledger_kv WHERE k LIKE ? ESCAPE '!' ORDER BY k`,
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed store.
// dbPath is the database file, e.g. "./data/ledger.db".
func NewSQLiteStore(dbPath string) (Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := newSQLStore(db, sqliteDialect, true)
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
