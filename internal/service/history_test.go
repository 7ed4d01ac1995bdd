package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stellar-pets-api/internal/model"
	"stellar-pets-api/internal/repository"
)

func TestPetHistoryRecordsFeedsAndWithdrawals(t *testing.T) {
	f := newFixture(t, PetLedgerOptions{})
	ctx := context.Background()

	_, err := f.pets.Mint(as(alice), alice, "Spark", model.PetKindDragon)
	require.NoError(t, err)

	history, err := f.pets.History(ctx, alice, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = f.pets.Feed(as(alice), alice, amt(1500))
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.pets.Feed(as(alice), alice, amt(200))
	require.NoError(t, err)
	_, err = f.pets.Withdraw(as(alice), alice, amt(500))
	require.NoError(t, err)

	history, err = f.pets.History(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// newest first
	assert.Equal(t, uint64(3), history[0].Seq)
	assert.Equal(t, model.TransactionWithdraw, history[0].Type)
	assert.Equal(t, "500", history[0].Amount.String())
	assert.Equal(t, "1200", history[0].Balance.String())
	assert.Empty(t, history[0].Result)

	assert.Equal(t, uint64(2), history[1].Seq)
	assert.Equal(t, model.TransactionDeposit, history[1].Type)
	assert.Equal(t, "1700", history[1].Balance.String())
	assert.Equal(t, testStart+3600, history[1].At)

	assert.Equal(t, uint64(1), history[2].Seq)
	assert.Equal(t, testStart, history[2].At)

	latest, err := f.pets.History(ctx, alice, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, uint64(3), latest[0].Seq)
	assert.Equal(t, uint64(2), latest[1].Seq)
}

func TestRejectedWithdrawWritesNoHistory(t *testing.T) {
	f := newFixture(t, PetLedgerOptions{})
	ctx := context.Background()

	_, err := f.pets.Mint(as(alice), alice, "Spark", model.PetKindDragon)
	require.NoError(t, err)
	_, err = f.pets.Feed(as(alice), alice, amt(300))
	require.NoError(t, err)
	_, err = f.goals.CreateGoal(as(alice), alice, amt(1000), amt(100), "weekly")
	require.NoError(t, err)
	_, err = f.goals.Deposit(as(alice), alice, amt(100))
	require.NoError(t, err)

	setsBefore := f.store.sets.Load()

	_, err = f.pets.Withdraw(as(alice), alice, amt(301))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = f.goals.Withdraw(as(alice), alice, amt(101))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	_, err = f.goals.Deposit(as(bob), alice, amt(50))
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, setsBefore, f.store.sets.Load())

	petHistory, err := f.pets.History(ctx, alice, 0)
	require.NoError(t, err)
	assert.Len(t, petHistory, 1)

	goalHistory, err := f.goals.History(ctx, alice, 0)
	require.NoError(t, err)
	assert.Len(t, goalHistory, 1)
}

func TestGoalHistoryClassifiesDeposits(t *testing.T) {
	f := newFixture(t, PetLedgerOptions{})
	ctx := context.Background()

	_, err := f.goals.CreateGoal(as(alice), alice, amt(1000), amt(100), "weekly")
	require.NoError(t, err)
	_, err = f.goals.Deposit(as(alice), alice, amt(100))
	require.NoError(t, err)
	_, err = f.goals.Deposit(as(alice), alice, amt(40))
	require.NoError(t, err)
	_, err = f.goals.Withdraw(as(alice), alice, amt(90))
	require.NoError(t, err)

	// replacing the goal keeps its history
	_, err = f.goals.CreateGoal(as(alice), alice, amt(500), amt(50), "daily")
	require.NoError(t, err)
	_, err = f.goals.Deposit(as(alice), alice, amt(50))
	require.NoError(t, err)

	history, err := f.goals.History(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, history, 4)

	assert.Equal(t, model.DepositOnTime, history[0].Result)
	assert.Equal(t, "50", history[0].Balance.String())

	assert.Equal(t, model.TransactionWithdraw, history[1].Type)
	assert.Empty(t, history[1].Result)
	assert.Equal(t, "50", history[1].Balance.String())

	assert.Equal(t, model.DepositUnder, history[2].Result)
	assert.Equal(t, "140", history[2].Balance.String())

	assert.Equal(t, model.DepositOnTime, history[3].Result)
	assert.Equal(t, "100", history[3].Balance.String())

	// the pet ledger keeps a separate history for the same owner
	petHistory, err := f.pets.History(ctx, alice, 0)
	require.NoError(t, err)
	assert.Empty(t, petHistory)
}

func TestHistoryIsPerOwner(t *testing.T) {
	f := newFixture(t, PetLedgerOptions{})
	ctx := context.Background()

	for _, owner := range []string{alice, bob} {
		_, err := f.goals.CreateGoal(as(owner), owner, amt(1000), amt(100), "weekly")
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := f.goals.Deposit(as(alice), alice, amt(10))
		require.NoError(t, err)
	}
	_, err := f.goals.Deposit(as(bob), bob, amt(10))
	require.NoError(t, err)

	history, err := f.goals.History(ctx, bob, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, uint64(1), history[0].Seq)

	keys, err := f.store.Keys(ctx, repository.HistoryOwnerPrefix("goals", alice))
	require.NoError(t, err)
	assert.Equal(t, []string{
		repository.HistoryKey("goals", alice, 1),
		repository.HistoryKey("goals", alice, 2),
		repository.HistoryKey("goals", alice, 3),
	}, keys)

	_, err = f.goals.History(ctx, "not-an-owner", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
