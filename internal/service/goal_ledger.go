package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"stellar-pets-api/internal/model"
	"stellar-pets-api/internal/notify"
	"stellar-pets-api/internal/repository"
)

// Frequency labels with a known deposit interval. Other labels are accepted but unscheduled.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

var (
	frequencyDays = map[string]uint64{
		FrequencyDaily:   1,
		FrequencyWeekly:  7,
		FrequencyMonthly: 30,
	}

	// Labels follow the short-symbol charset: up to 32 of [a-z0-9_].
	frequencyLabel = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)
)

// FrequencyInterval returns the deposit interval in seconds for a scheduled label.
func FrequencyInterval(label string) (uint64, bool) {
	days, ok := frequencyDays[label]
	return days * SecondsPerDay, ok
}

// GoalLedger owns the savings goal of every owner.
type GoalLedger struct {
	ledgerBase
}

// NewGoalLedger creates a goal ledger on the given store.
func NewGoalLedger(d Deps) *GoalLedger {
	return &GoalLedger{ledgerBase: newLedgerBase(notify.SourceGoals, d)}
}

// CreateGoal initializes the owner's goal with nothing saved. An existing goal is replaced.
func (l *GoalLedger) CreateGoal(ctx context.Context, owner string, goalAmount, depositAmount decimal.Decimal, frequency string) (goal model.Goal, err error) {
	start := time.Now()
	defer func() { l.observe("create_goal", owner, start, err) }()

	frequency = strings.ToLower(strings.TrimSpace(frequency))
	if !frequencyLabel.MatchString(frequency) {
		return model.Goal{}, fmt.Errorf("%w: frequency must be 1-32 characters of [a-z0-9_]", ErrInvalidInput)
	}
	if err := requirePositive(goalAmount); err != nil {
		return model.Goal{}, err
	}
	if err := requirePositive(depositAmount); err != nil {
		return model.Goal{}, err
	}
	if err := l.authorize(ctx, owner); err != nil {
		return model.Goal{}, err
	}

	unlock := l.locks.lock(owner)
	defer unlock()

	now := l.clock.Now()
	var reset bool
	err = l.store.Update(ctx, func(tx repository.Tx) error {
		exists, err := tx.Has(ctx, repository.GoalKey(owner))
		if err != nil {
			return err
		}
		reset = exists

		goal = model.Goal{
			Owner:         owner,
			GoalAmount:    goalAmount,
			DepositAmount: depositAmount,
			Frequency:     frequency,
			CurrentSaved:  decimal.Zero,
			CreatedAt:     now,
		}
		goal.NextDepositDue = nextDue(frequency, now)
		return tx.Set(ctx, repository.GoalKey(owner), goal)
	})
	if err != nil {
		return model.Goal{}, err
	}

	entry := l.log.WithFields(logrus.Fields{"owner": owner, "goal_amount": goalAmount.String(), "frequency": frequency})
	if reset {
		entry.Warn("goal replaced, saved progress reset")
	} else {
		entry.Info("goal created")
	}
	l.publish(ctx, notify.NewEvent(notify.SourceGoals, notify.TopicGoalSet, owner, now, map[string]interface{}{
		"goal_amount": goalAmount.String(),
		"goal_reset":  reset,
	}))
	return goal, nil
}

// Deposit adds amount to the owner's savings and classifies it against the required deposit.
func (l *GoalLedger) Deposit(ctx context.Context, owner string, amount decimal.Decimal) (result model.DepositResult, err error) {
	start := time.Now()
	defer func() { l.observe("deposit", owner, start, err) }()

	if err := l.authorize(ctx, owner); err != nil {
		return "", err
	}

	unlock := l.locks.lock(owner)
	defer unlock()

	now := l.clock.Now()
	err = l.store.Update(ctx, func(tx repository.Tx) error {
		goal, err := loadGoal(ctx, tx, owner)
		if err != nil {
			return err
		}
		if err := requirePositive(amount); err != nil {
			return err
		}

		saved, err := addAmounts(goal.CurrentSaved, amount)
		if err != nil {
			return err
		}
		goal.CurrentSaved = saved
		goal.LastDepositAt = now
		goal.NextDepositDue = nextDue(goal.Frequency, now)

		if amount.GreaterThanOrEqual(goal.DepositAmount) {
			result = model.DepositOnTime
		} else {
			result = model.DepositUnder
		}
		if err := tx.Set(ctx, repository.GoalKey(owner), goal); err != nil {
			return err
		}
		return l.recordHistory(ctx, tx, owner, model.HistoryEntry{
			Type:    model.TransactionDeposit,
			Amount:  amount,
			Balance: goal.CurrentSaved,
			Result:  result,
			At:      now,
		})
	})
	if err != nil {
		return "", err
	}

	l.log.WithFields(logrus.Fields{"owner": owner, "amount": amount.String(), "result": result}).Info("goal deposit")
	l.publish(ctx, notify.NewEvent(notify.SourceGoals, notify.TopicDeposit, owner, now, map[string]interface{}{
		"amount": amount.String(),
		"result": result,
	}))
	return result, nil
}

// Withdraw removes amount from the owner's savings and returns the updated goal.
func (l *GoalLedger) Withdraw(ctx context.Context, owner string, amount decimal.Decimal) (goal model.Goal, err error) {
	start := time.Now()
	defer func() { l.observe("withdraw", owner, start, err) }()

	if err := l.authorize(ctx, owner); err != nil {
		return model.Goal{}, err
	}

	unlock := l.locks.lock(owner)
	defer unlock()

	now := l.clock.Now()
	err = l.store.Update(ctx, func(tx repository.Tx) error {
		var err error
		goal, err = loadGoal(ctx, tx, owner)
		if err != nil {
			return err
		}
		if err := requirePositive(amount); err != nil {
			return err
		}
		if amount.GreaterThan(goal.CurrentSaved) {
			return fmt.Errorf("%w: requested %s, saved %s", ErrInsufficientBalance, amount, goal.CurrentSaved)
		}
		goal.CurrentSaved = goal.CurrentSaved.Sub(amount)
		if err := tx.Set(ctx, repository.GoalKey(owner), goal); err != nil {
			return err
		}
		return l.recordHistory(ctx, tx, owner, model.HistoryEntry{
			Type:    model.TransactionWithdraw,
			Amount:  amount,
			Balance: goal.CurrentSaved,
			At:      now,
		})
	})
	if err != nil {
		return model.Goal{}, err
	}

	l.log.WithFields(logrus.Fields{"owner": owner, "amount": amount.String()}).Info("goal withdrawal")
	l.publish(ctx, notify.NewEvent(notify.SourceGoals, notify.TopicWithdraw, owner, now, map[string]interface{}{
		"amount": amount.String(),
	}))
	return goal, nil
}

// History returns the owner's deposits and withdrawals, newest first. Entries survive
// a goal being replaced.
func (l *GoalLedger) History(ctx context.Context, owner string, limit int) ([]model.HistoryEntry, error) {
	return l.history(ctx, owner, limit)
}

// GetGoal returns the owner's goal, or ErrNotFound.
func (l *GoalLedger) GetGoal(ctx context.Context, owner string) (goal model.Goal, err error) {
	err = l.store.View(ctx, func(tx repository.Tx) error {
		goal, err = loadGoal(ctx, tx, owner)
		return err
	})
	return goal, err
}

// CheckProgress reports whether the saved amount has reached the goal.
func (l *GoalLedger) CheckProgress(ctx context.Context, owner string) (bool, error) {
	goal, err := l.GetGoal(ctx, owner)
	if err != nil {
		return false, err
	}
	return goal.CurrentSaved.GreaterThanOrEqual(goal.GoalAmount), nil
}

// GetBalance returns the saved amount.
func (l *GoalLedger) GetBalance(ctx context.Context, owner string) (decimal.Decimal, error) {
	goal, err := l.GetGoal(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	return goal.CurrentSaved, nil
}

// IsOverdue reports whether a scheduled goal has missed its next deposit.
func (l *GoalLedger) IsOverdue(goal model.Goal) bool {
	return goal.NextDepositDue != 0 && l.clock.Now() > goal.NextDepositDue
}

func loadGoal(ctx context.Context, tx repository.Tx, owner string) (model.Goal, error) {
	var goal model.Goal
	found, err := tx.Get(ctx, repository.GoalKey(owner), &goal)
	if err != nil {
		return model.Goal{}, err
	}
	if !found {
		return model.Goal{}, fmt.Errorf("%w: no goal for owner %s", ErrNotFound, owner)
	}
	return goal, nil
}

func nextDue(frequency string, from uint64) uint64 {
	interval, ok := FrequencyInterval(frequency)
	if !ok {
		return 0
	}
	return from + interval
}
