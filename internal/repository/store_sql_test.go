package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		if err := tx.Set(ctx, PetKey("owner_1"), record{Value: 7}); err != nil {
			return err
		}
		return tx.Set(ctx, PetKey("owner_1"), record{Value: 8})
	}))

	var got record
	require.NoError(t, s.View(ctx, func(tx Tx) error {
		ok, err := tx.Get(ctx, PetKey("owner_1"), &got)
		assert.True(t, ok)
		return err
	}))
	assert.Equal(t, 8, got.Value)

	// rolled back writes never land
	boom := errors.New("boom")
	err = s.Update(ctx, func(tx Tx) error {
		if err := tx.Set(ctx, PetKey("owner_2"), record{Value: 1}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// '_' in the prefix is matched literally
	keys, err := s.Keys(ctx, "pet:owner_")
	require.NoError(t, err)
	assert.Equal(t, []string{"pet:owner_1"}, keys)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", stats["backend"])
	assert.Equal(t, 1, stats["pets"])
}

func TestPostgresDialectLocksRowsInUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newSQLStore(db, postgresDialect, false)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT v FROM ledger_kv WHERE k = \$1 FOR UPDATE`).
		WithArgs("pet:abc").
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow(`{"value":3}`))
	mock.ExpectExec(`INSERT INTO ledger_kv .* ON CONFLICT \(k\) DO UPDATE`).
		WithArgs("pet:abc", `{"value":4}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = s.Update(context.Background(), func(tx Tx) error {
		var r record
		if _, err := tx.Get(context.Background(), "pet:abc", &r); err != nil {
			return err
		}
		r.Value++
		return tx.Set(context.Background(), "pet:abc", r)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLDialectMissingKeyAndRollback(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newSQLStore(db, mysqlDialect, false)
	boom := errors.New("precondition failed")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT v FROM ledger_kv WHERE k = \? FOR UPDATE`).
		WithArgs("goal:abc").
		WillReturnRows(sqlmock.NewRows([]string{"v"}))
	mock.ExpectRollback()

	err = s.Update(context.Background(), func(tx Tx) error {
		ok, err := tx.Has(context.Background(), "goal:abc")
		if err != nil {
			return err
		}
		assert.False(t, ok)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRetriesSerializationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	s := newSQLStore(db, postgresDialect, false)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT v FROM ledger_kv WHERE k = \$1 FOR UPDATE`).
		WithArgs(PetCounterKey).
		WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access due to concurrent update"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT v FROM ledger_kv WHERE k = \$1 FOR UPDATE`).
		WithArgs(PetCounterKey).
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("6"))
	mock.ExpectExec(`INSERT INTO ledger_kv`).
		WithArgs(PetCounterKey, "7", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	calls := 0
	err = s.Update(ctx, func(tx Tx) error {
		calls++
		var count uint32
		if _, err := tx.Get(ctx, PetCounterKey, &count); err != nil {
			return err
		}
		return tx.Set(ctx, PetCounterKey, count+1)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUpdateGivesUpAfterRepeatedDeadlocks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	s := newSQLStore(db, mysqlDialect, false)

	for i := 0; i < maxTxAttempts; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT v FROM ledger_kv WHERE k = \? FOR UPDATE`).
			WithArgs("pet:abc").
			WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
		mock.ExpectRollback()
	}

	calls := 0
	err = s.Update(ctx, func(tx Tx) error {
		calls++
		_, err := tx.Has(ctx, "pet:abc")
		return err
	})

	var myErr *mysql.MySQLError
	require.ErrorAs(t, err, &myErr)
	assert.Equal(t, uint16(1213), myErr.Number)
	assert.Equal(t, maxTxAttempts, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDialectConflicts(t *testing.T) {
	tests := []struct {
		name     string
		conflict func(error) bool
		err      error
		want     bool
	}{
		{"pg serialization", postgresConflict, &pq.Error{Code: "40001"}, true},
		{"pg deadlock", postgresConflict, &pq.Error{Code: "40P01"}, true},
		{"pg wrapped", postgresConflict, fmt.Errorf("failed to read pet_counter: %w", &pq.Error{Code: "40001"}), true},
		{"pg unique violation", postgresConflict, &pq.Error{Code: "23505"}, false},
		{"pg other error", postgresConflict, errors.New("boom"), false},
		{"mysql deadlock", mysqlConflict, &mysql.MySQLError{Number: 1213}, true},
		{"mysql lock wait", mysqlConflict, &mysql.MySQLError{Number: 1205}, true},
		{"mysql duplicate", mysqlConflict, &mysql.MySQLError{Number: 1062}, false},
		{"mysql other error", mysqlConflict, errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.conflict(tt.err))
		})
	}
}

func TestSQLStoreKeysEscapesPattern(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newSQLStore(db, postgresDialect, false)

	mock.ExpectQuery(`SELECT k FROM ledger_kv WHERE k LIKE \$1`).
		WithArgs("pet!_counter%").
		WillReturnRows(sqlmock.NewRows([]string{"k"}))

	keys, err := s.Keys(context.Background(), "pet_counter")
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikePrefix(t *testing.T) {
	assert.Equal(t, "pet:%", likePrefix("pet:"))
	assert.Equal(t, "a!%b!!c!_%", likePrefix("a%b!c_"))
}
