package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// dialect holds the statements that differ between SQL backends.
type dialect struct {
	name        string
	createTable string
	selectValue string // value by key
	lockValue   string // value by key, locking the row for the rest of the transaction
	upsert      string // key, value, updated_at
	listKeys    string // LIKE pattern with '!' escape
	isolation   sql.IsolationLevel
	readOnlyTx  bool // driver accepts TxOptions.ReadOnly

	// conflict reports errors the database raises when it aborts a transaction in favor
	// of a concurrent one; the whole transaction can be run again.
	conflict func(err error) bool
}

// maxTxAttempts bounds how often Update reruns a transaction aborted by a conflict.
const maxTxAttempts = 5

// retryBackoff is the pause before the given retry.
func retryBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 15 * time.Millisecond
}

// sqlStore implements Store on a single key/value table.
type sqlStore struct {
	db      *sql.DB
	dialect dialect

	// SQLite has a single writer; the mutex keeps writers from tripping SQLITE_BUSY.
	mu        sync.RWMutex
	serialize bool
}

func newSQLStore(db *sql.DB, d dialect, serialize bool) *sqlStore {
	return &sqlStore{db: db, dialect: d, serialize: serialize}
}

// migrate creates the key/value table.
func (s *sqlStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.createTable); err != nil {
		return fmt.Errorf("failed to create %s tables: %w", s.dialect.name, err)
	}
	return nil
}

// Update runs fn in a read-write transaction. A transaction the database aborts for a
// serialization conflict or deadlock is rerun from the start, so fn must not keep
// state across calls other than its results.
func (s *sqlStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if s.serialize {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	for attempt := 1; ; attempt++ {
		err := s.run(ctx, false, fn)
		if err == nil || attempt == maxTxAttempts || s.dialect.conflict == nil || !s.dialect.conflict(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(retryBackoff(attempt)):
		}
	}
}

// View runs fn in a read-only transaction.
func (s *sqlStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if s.serialize {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	return s.run(ctx, true, fn)
}

func (s *sqlStore) run(ctx context.Context, readOnly bool, fn func(tx Tx) error) error {
	opts := &sql.TxOptions{ReadOnly: readOnly && s.dialect.readOnlyTx}
	if !readOnly {
		opts.Isolation = s.dialect.isolation
	}

	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx, dialect: &s.dialect, writable: !readOnly}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Keys lists keys starting with prefix.
func (s *sqlStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if s.serialize {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.listKeys, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Stats returns row counts per record kind.
func (s *sqlStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"backend": s.dialect.name}
	for name, prefix := range map[string]string{
		"pets":    PetPrefix,
		"staking": StakingPrefix,
		"goals":   GoalPrefix,
		"history": HistoryPrefix,
	} {
		keys, err := s.Keys(ctx, prefix)
		if err != nil {
			return nil, err
		}
		stats[name] = len(keys)
	}
	return stats, nil
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

type sqlTx struct {
	tx       *sql.Tx
	dialect  *dialect
	writable bool
}

func (t *sqlTx) read(ctx context.Context, key string) ([]byte, bool, error) {
	query := t.dialect.selectValue
	if t.writable && t.dialect.lockValue != "" {
		query = t.dialect.lockValue
	}

	var raw string
	err := t.tx.QueryRowContext(ctx, query, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return []byte(raw), true, nil
}

func (t *sqlTx) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := t.read(ctx, key)
	return ok, err
}

func (t *sqlTx) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok, err := t.read(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (t *sqlTx) Set(ctx context.Context, key string, value interface{}) error {
	if !t.writable {
		return fmt.Errorf("set %s: read-only transaction", key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if _, err := t.tx.ExecContext(ctx, t.dialect.upsert, key, string(raw), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// likePrefix escapes LIKE wildcards with '!' and appends '%'.
func likePrefix(prefix string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(prefix) + "%"
}
