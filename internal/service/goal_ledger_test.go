package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stellar-pets-api/internal/model"
	"stellar-pets-api/internal/notify"
)

func TestCreateGoal(t *testing.T) {
	f := newFixture(t, PetLedgerOptions{})

	goal, err := f.goals.CreateGoal(as(alice), alice, amt(1000), amt(100), "Weekly")
	require.NoError(t, err)
	assert.Equal(t, "weekly", goal.Frequency)
	assert.True(t, goal.CurrentSaved.IsZero())
	assert.Equal(t, testStart, goal.CreatedAt)
	assert.Equal(t, testStart+7*SecondsPerDay, goal.NextDepositDue)

	balance, err := f.goals.GetBalance(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.TopicGoalSet, events[0].Topic)
	assert.Equal(t, notify.SourceGoals, events[0].Source)
	assert.Equal(t, false, events[0].Payload["goal_reset"])
}

func TestCreateGoalOverwritesProgress(t *testing.T) {
	f := newFixture(t, PetLedgerOptions{})

	_, err := f.goals.CreateGoal(as(alice), alice, amt(1000), amt(100), "weekly")
	require.NoError(t, err)
	_, err = f.goals.Deposit(as(alice), alice, amt(400))
	require.NoError(t, err)

	goal, err := f.goals.CreateGoal(as(alice), alice, amt(5000), amt(250), "monthly")
	require.NoError(t, err)
	assert.True(t, goal.CurrentSaved.IsZero())

	balance, err := f.goals.GetBalance(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	events := f.events.Events()
	require.Len(t, events, 3)
	assert.Equal(t, true, events[2].Payload["goal_reset"])
}

func TestCreateGoalValidation(t *testing.T) {
	f := newFixture(t, PetLedgerOptions{})

	_, err := f.goals.CreateGoal(as(alice), alice, amt(0), amt(100), "weekly")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.goals.CreateGoal(as(alice), alice, amt(1000), amt(-1), "weekly")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.goals.CreateGoal(as(alice), alice, amt(1000), amt(100), "every other tuesday")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.goals.CreateGoal(as(bob), alice, amt(1000), amt(100), "weekly")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.goals.GetGoal(context.Background(), alice)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDepositClassification(t *testing.T) {
	f := newFixture(t, PetLedgerOptions{})
	_, err := f.goals.CreateGoal(as(alice), alice, amt(1000), amt(100), "weekly")
	require.NoError(t, err)

	result, err := f.goals.Deposit(as(alice), alice, amt(100))
	require.NoError(t, err)
	assert.Equal(t, model.DepositOnTime, result)

	result, err = f.goals.Deposit(as(alice), alice, amt(250))
	require.NoError(t, err)
	assert.Equal(t, model.DepositOnTime, result)

	result, err = f.goals.Deposit(as(alice), alice, amt(99))
	require.NoError(t, err)
	assert.Equal(t, model.DepositUnder, result)

	balance, err := f.goals.GetBalance(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "449", balance.String())

	events := f.events.Events()
	require.Len(t, events, 4)
	assert.Equal(t, notify.TopicDeposit, events[3].Topic)
	assert.Equal(t, "99", events[3].Payload["amount"])
	assert.Equal(t, model.DepositUnder, events[3].Payload["result"])
}

func TestDepositErrors(t *testing.T) {
	f := newFixture(t, PetLedgerOptions{})

	_, err := f.goals.Deposit(as(alice), alice, amt(100))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.goals.CreateGoal(as(alice), alice, amt(1000), amt(100), "weekly")
	require.NoError(t, err)

	_, err = f.goals.Deposit(as(alice), alice, amt(0))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.goals.Deposit(as(bob), alice, amt(100))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGoalWithdraw(t *testing.T) {
	f := newFixture(t, PetLedgerOptions{})

	_, err := f.goals.Withdraw(as(alice), alice, amt(1))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.goals.CreateGoal(as(alice), alice, amt(1000), amt(100), "weekly")
	require.NoError(t, err)
	_, err = f.goals.Deposit(as(alice), alice, amt(300))
	require.NoError(t, err)

	_, err = f.goals.Withdraw(as(alice), alice, amt(301))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	balance, _ := f.goals.GetBalance(context.Background(), alice)
	assert.Equal(t, "300", balance.String())

	goal, err := f.goals.Withdraw(as(alice), alice, amt(120))
	require.NoError(t, err)
	assert.Equal(t, "180", goal.CurrentSaved.String())
	goal, err = f.goals.Withdraw(as(alice), alice, amt(180))
	require.NoError(t, err)
	assert.True(t, goal.CurrentSaved.IsZero())

	balance, _ = f.goals.GetBalance(context.Background(), alice)
	assert.True(t, balance.IsZero())

	assert.Equal(t, []string{
		notify.TopicGoalSet, notify.TopicDeposit, notify.TopicWithdraw, notify.TopicWithdraw,
	}, f.events.Topics())
}

func TestCheckProgress(t *testing.T) {
	f := newFixture(t, PetLedgerOptions{})

	_, err := f.goals.CheckProgress(context.Background(), alice)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.goals.CreateGoal(as(alice), alice, amt(500), amt(100), "daily")
	require.NoError(t, err)

	_, err = f.goals.Deposit(as(alice), alice, amt(499))
	require.NoError(t, err)
	reached, err := f.goals.CheckProgress(context.Background(), alice)
	require.NoError(t, err)
	assert.False(t, reached)

	_, err = f.goals.Deposit(as(alice), alice, amt(1))
	require.NoError(t, err)
	reached, err = f.goals.CheckProgress(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, reached, "equal counts as reached")
}

func TestDepositSchedule(t *testing.T) {
	f := newFixture(t, PetLedgerOptions{})

	goal, err := f.goals.CreateGoal(as(alice), alice, amt(500), amt(100), "daily")
	require.NoError(t, err)
	assert.False(t, f.goals.IsOverdue(goal))

	f.clock.Advance(25 * time.Hour)
	goal, err = f.goals.GetGoal(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, f.goals.IsOverdue(goal))

	_, err = f.goals.Deposit(as(alice), alice, amt(10))
	require.NoError(t, err)
	goal, err = f.goals.GetGoal(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, testStart+25*3600, goal.LastDepositAt)
	assert.Equal(t, testStart+25*3600+SecondsPerDay, goal.NextDepositDue)
	assert.False(t, f.goals.IsOverdue(goal))

	unscheduled, err := f.goals.CreateGoal(as(bob), bob, amt(500), amt(100), "whenever")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), unscheduled.NextDepositDue)
	f.clock.Advance(365 * 24 * time.Hour)
	assert.False(t, f.goals.IsOverdue(unscheduled))
}

func TestFrequencyInterval(t *testing.T) {
	d, ok := FrequencyInterval(FrequencyMonthly)
	assert.True(t, ok)
	assert.Equal(t, 30*SecondsPerDay, d)

	_, ok = FrequencyInterval("fortnightly")
	assert.False(t, ok)
}
