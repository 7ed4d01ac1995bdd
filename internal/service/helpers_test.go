package service

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"stellar-pets-api/internal/logger"
	"stellar-pets-api/internal/notify"
	"stellar-pets-api/internal/repository"
)

const testStart uint64 = 1_700_000_000

var (
	alice = strings.Repeat("a1", 32)
	bob   = strings.Repeat("b2", 32)
	carol = strings.Repeat("c3", 32)
)

// countingStore counts Set calls made through Update.
type countingStore struct {
	repository.Store
	sets atomic.Int64
}

func (s *countingStore) Update(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.Store.Update(ctx, func(tx repository.Tx) error {
		return fn(&countingTx{Tx: tx, n: &s.sets})
	})
}

type countingTx struct {
	repository.Tx
	n *atomic.Int64
}

func (t *countingTx) Set(ctx context.Context, key string, value interface{}) error {
	t.n.Add(1)
	return t.Tx.Set(ctx, key, value)
}

type fixture struct {
	store  *countingStore
	clock  *ManualClock
	events *notify.Recorder
	pets   *PetLedger
	goals  *GoalLedger
}

func newFixture(t *testing.T, opts PetLedgerOptions) *fixture {
	t.Helper()

	f := &fixture{
		store:  &countingStore{Store: repository.NewMemoryStore()},
		clock:  NewManualClock(testStart),
		events: notify.NewRecorder(),
	}
	deps := Deps{
		Store:  f.store,
		Sink:   f.events,
		Clock:  f.clock,
		Logger: logger.Discard(),
	}
	f.pets = NewPetLedger(deps, opts)
	f.goals = NewGoalLedger(deps)
	t.Cleanup(func() { _ = f.store.Close() })
	return f
}

func as(owner string) context.Context {
	return WithCaller(context.Background(), owner)
}

func amt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
