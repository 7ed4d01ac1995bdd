package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	name: "mysql",
	createTable: `
	CREATE TABLE IF NOT EXISTS ledger_kv (
		k VARCHAR(191) NOT NULL PRIMARY KEY,
		v LONGTEXT NOT NULL,
		updated_at BIGINT NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	selectValue: "SELECT v FROM ledger_kv WHERE k = ?",
	lockValue:   "SELECT v FROM ledger_kv WHERE k = ? FOR UPDATE",
	upsert: `
		INSERT INTO ledger_kv (k, v, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE v = VALUES(v), updated_at = VALUES(updated_at)`,
	listKeys:   "SELECT k FROM ledger_kv WHERE k LIKE ? ESCAPE '!' ORDER BY k",
	isolation:  sql.LevelSerializable,
	readOnlyTx: true,
	conflict:   mysqlConflict,
}

// mysqlConflict matches ER_LOCK_DEADLOCK and ER_LOCK_WAIT_TIMEOUT.
func mysqlConflict(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == 1213 || myErr.Number == 1205
}

// NewMySQLStore connects to MySQL.
// dsn format: "user:password@tcp(host:port)/dbname?parseTime=true"
func NewMySQLStore(dsn string) (Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return openNetworkStore(db, mysqlDialect)
}
