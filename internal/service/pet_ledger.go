package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"stellar-pets-api/internal/model"
	"stellar-pets-api/internal/notify"
	"stellar-pets-api/internal/repository"
)

const (
	maxPetNameLength = 32

	// DefaultLeaderboardLimit and MaxLeaderboardLimit bound leaderboard queries.
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// PetLedgerOptions tunes the pet state machine.
type PetLedgerOptions struct {
	// DecayAdvancesAnchor makes each elapsed day decay a pet once. When false, decay is
	// measured from the last feed on every call, so repeated calls reapply it.
	DecayAdvancesAnchor bool
}

// PetLedger owns the Pet and StakingInfo records of every owner.
type PetLedger struct {
	ledgerBase
	opts PetLedgerOptions
}

// NewPetLedger creates a pet ledger on the given store.
func NewPetLedger(d Deps, opts PetLedgerOptions) *PetLedger {
	return &PetLedger{
		ledgerBase: newLedgerBase(notify.SourcePets, d),
		opts:       opts,
	}
}

// DecayAdvancesAnchor reports whether decay is applied once per elapsed day.
func (l *PetLedger) DecayAdvancesAnchor() bool {
	return l.opts.DecayAdvancesAnchor
}

// Mint creates the owner's pet and its empty staking position.
func (l *PetLedger) Mint(ctx context.Context, owner, name string, kind model.PetKind) (pet model.Pet, err error) {
	start := time.Now()
	defer func() { l.observe("mint", owner, start, err) }()

	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxPetNameLength {
		return model.Pet{}, fmt.Errorf("%w: pet name must be 1-%d characters", ErrInvalidInput, maxPetNameLength)
	}
	kind, err = model.ParsePetKind(string(kind))
	if err != nil {
		return model.Pet{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := l.authorize(ctx, owner); err != nil {
		return model.Pet{}, err
	}

	unlock := l.locks.lock(owner)
	defer unlock()

	now := l.clock.Now()
	err = l.store.Update(ctx, func(tx repository.Tx) error {
		exists, err := tx.Has(ctx, repository.PetKey(owner))
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: owner %s already has a pet", ErrAlreadyExists, owner)
		}

		var count uint32
		if _, err := tx.Get(ctx, repository.PetCounterKey, &count); err != nil {
			return err
		}
		if count == math.MaxUint32 {
			return fmt.Errorf("pet counter exhausted")
		}

		pet = model.Pet{
			Owner:          owner,
			Name:           name,
			Kind:           kind,
			Health:         MaxStat,
			Happiness:      MaxStat,
			Level:          1,
			TotalStaked:    decimal.Zero,
			FeedingStreak:  0,
			LastFedAt:      now,
			CreatedAt:      now,
			EvolutionStage: model.StageBaby,
		}
		staking := model.StakingInfo{
			Amount:      decimal.Zero,
			LastDeposit: now,
		}

		if err := tx.Set(ctx, repository.PetKey(owner), pet); err != nil {
			return err
		}
		if err := tx.Set(ctx, repository.StakingKey(owner), staking); err != nil {
			return err
		}
		return tx.Set(ctx, repository.PetCounterKey, count+1)
	})
	if err != nil {
		return model.Pet{}, err
	}

	l.log.WithFields(logrus.Fields{"owner": owner, "kind": kind, "name": name}).Info("pet minted")
	l.publish(ctx, notify.NewEvent(notify.SourcePets, notify.TopicPetMint, owner, now, map[string]interface{}{
		"kind": kind,
	}))
	return pet, nil
}

// Feed deposits amount into the owner's stake and lifts the pet's stats.
func (l *PetLedger) Feed(ctx context.Context, owner string, amount decimal.Decimal) (pet model.Pet, err error) {
	start := time.Now()
	defer func() { l.observe("feed", owner, start, err) }()

	if err := l.authorize(ctx, owner); err != nil {
		return model.Pet{}, err
	}

	unlock := l.locks.lock(owner)
	defer unlock()

	now := l.clock.Now()
	err = l.store.Update(ctx, func(tx repository.Tx) error {
		var staking model.StakingInfo
		if err := loadPosition(ctx, tx, owner, &pet, &staking); err != nil {
			return err
		}
		if err := requirePositive(amount); err != nil {
			return err
		}

		staked, err := addAmounts(pet.TotalStaked, amount)
		if err != nil {
			return err
		}
		balance, err := addAmounts(staking.Amount, amount)
		if err != nil {
			return err
		}

		if daysElapsed(now, pet.LastFedAt) <= 1 {
			pet.FeedingStreak = incSaturating(pet.FeedingStreak)
		} else {
			pet.FeedingStreak = 1
		}
		pet.Health = ClampStat(pet.Health, feedHealthGain, MaxStat)
		pet.Happiness = ClampStat(pet.Happiness, feedHappinessGain, MaxStat)
		pet.TotalStaked = staked
		pet.Level = levelFor(staked)
		pet.EvolutionStage = stageFor(staked)
		pet.LastFedAt = now

		staking.Amount = balance
		staking.LastDeposit = now
		staking.TotalDeposits = incSaturating(staking.TotalDeposits)

		if err := savePosition(ctx, tx, owner, pet, staking); err != nil {
			return err
		}
		return l.recordHistory(ctx, tx, owner, model.HistoryEntry{
			Type:    model.TransactionDeposit,
			Amount:  amount,
			Balance: staking.Amount,
			At:      now,
		})
	})
	if err != nil {
		return model.Pet{}, err
	}

	l.log.WithFields(logrus.Fields{
		"owner":  owner,
		"amount": amount.String(),
		"streak": pet.FeedingStreak,
		"level":  pet.Level,
	}).Info("pet fed")
	l.publish(ctx, notify.NewEvent(notify.SourcePets, notify.TopicPetFed, owner, now, map[string]interface{}{
		"amount": amount.String(),
	}))
	return pet, nil
}

// Withdraw removes amount from the owner's stake and penalizes the pet.
func (l *PetLedger) Withdraw(ctx context.Context, owner string, amount decimal.Decimal) (pet model.Pet, err error) {
	start := time.Now()
	defer func() { l.observe("withdraw", owner, start, err) }()

	if err := l.authorize(ctx, owner); err != nil {
		return model.Pet{}, err
	}

	unlock := l.locks.lock(owner)
	defer unlock()

	now := l.clock.Now()
	err = l.store.Update(ctx, func(tx repository.Tx) error {
		var staking model.StakingInfo
		if err := loadPosition(ctx, tx, owner, &pet, &staking); err != nil {
			return err
		}
		if err := requirePositive(amount); err != nil {
			return err
		}
		if amount.GreaterThan(staking.Amount) || amount.GreaterThan(pet.TotalStaked) {
			return fmt.Errorf("%w: requested %s, staked %s", ErrInsufficientFunds, amount, staking.Amount)
		}

		pet.Health = ClampStat(pet.Health, -withdrawHealthPenalty, MaxStat)
		pet.Happiness = ClampStat(pet.Happiness, -withdrawHappinessPenalty, MaxStat)
		pet.FeedingStreak = 0
		pet.TotalStaked = pet.TotalStaked.Sub(amount)
		pet.Level = levelFor(pet.TotalStaked)
		pet.EvolutionStage = stageFor(pet.TotalStaked)

		staking.Amount = staking.Amount.Sub(amount)

		if err := savePosition(ctx, tx, owner, pet, staking); err != nil {
			return err
		}
		return l.recordHistory(ctx, tx, owner, model.HistoryEntry{
			Type:    model.TransactionWithdraw,
			Amount:  amount,
			Balance: staking.Amount,
			At:      now,
		})
	})
	if err != nil {
		return model.Pet{}, err
	}

	l.log.WithFields(logrus.Fields{"owner": owner, "amount": amount.String()}).Info("stake withdrawn")
	l.publish(ctx, notify.NewEvent(notify.SourcePets, notify.TopicWithdraw, owner, now, map[string]interface{}{
		"amount": amount.String(),
	}))
	return pet, nil
}

// UpdateHealthDecay applies neglect decay for whole days since the pet was last fed.
// It needs no authorization since it can only lower the owner's stats.
func (l *PetLedger) UpdateHealthDecay(ctx context.Context, owner string) (pet model.Pet, err error) {
	start := time.Now()
	defer func() { l.observe("decay", owner, start, err) }()

	if err := ValidateOwner(owner); err != nil {
		return model.Pet{}, err
	}

	unlock := l.locks.lock(owner)
	defer unlock()

	now := l.clock.Now()
	var days uint64
	err = l.store.Update(ctx, func(tx repository.Tx) error {
		found, err := tx.Get(ctx, repository.PetKey(owner), &pet)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: no pet for owner %s", ErrNotFound, owner)
		}

		anchor := pet.LastFedAt
		if l.opts.DecayAdvancesAnchor && pet.LastDecayAt > anchor {
			anchor = pet.LastDecayAt
		}
		days = daysElapsed(now, anchor)
		if days == 0 {
			return nil
		}

		pet.Health = ClampStat(pet.Health, decayDelta(decayHealthPerDay, days), MaxStat)
		pet.Happiness = ClampStat(pet.Happiness, decayDelta(decayHappinessPerDay, days), MaxStat)
		if l.opts.DecayAdvancesAnchor {
			pet.LastDecayAt = anchor + days*SecondsPerDay
		}
		return tx.Set(ctx, repository.PetKey(owner), pet)
	})
	if err != nil {
		return model.Pet{}, err
	}

	if days > 0 {
		l.log.WithFields(logrus.Fields{
			"owner":     owner,
			"days":      days,
			"health":    pet.Health,
			"happiness": pet.Happiness,
		}).Debug("decay applied")
	}
	return pet, nil
}

// GetPet returns the owner's pet. found is false when the owner has none.
func (l *PetLedger) GetPet(ctx context.Context, owner string) (pet model.Pet, found bool, err error) {
	err = l.store.View(ctx, func(tx repository.Tx) error {
		found, err = tx.Get(ctx, repository.PetKey(owner), &pet)
		return err
	})
	return pet, found, err
}

// GetStakingInfo returns the owner's staking position. found is false when the owner has none.
func (l *PetLedger) GetStakingInfo(ctx context.Context, owner string) (info model.StakingInfo, found bool, err error) {
	err = l.store.View(ctx, func(tx repository.Tx) error {
		found, err = tx.Get(ctx, repository.StakingKey(owner), &info)
		return err
	})
	return info, found, err
}

// PetCount returns the number of pets ever minted.
func (l *PetLedger) PetCount(ctx context.Context) (uint32, error) {
	var count uint32
	err := l.store.View(ctx, func(tx repository.Tx) error {
		_, err := tx.Get(ctx, repository.PetCounterKey, &count)
		return err
	})
	return count, err
}

// Owners lists every owner holding a pet, in key order.
func (l *PetLedger) Owners(ctx context.Context) ([]string, error) {
	keys, err := l.store.Keys(ctx, repository.PetPrefix)
	if err != nil {
		return nil, err
	}
	owners := make([]string, 0, len(keys))
	for _, k := range keys {
		if owner, ok := repository.OwnerFromKey(k, repository.PetPrefix); ok {
			owners = append(owners, owner)
		}
	}
	return owners, nil
}

// History returns the owner's feeds and withdrawals, newest first. An owner without a
// pet has an empty history.
func (l *PetLedger) History(ctx context.Context, owner string, limit int) ([]model.HistoryEntry, error) {
	return l.history(ctx, owner, limit)
}

// Leaderboard ranks pets by total stake, then feeding streak, then owner.
func (l *PetLedger) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	owners, err := l.Owners(ctx)
	if err != nil {
		return nil, err
	}

	pets := make([]model.Pet, 0, len(owners))
	err = l.store.View(ctx, func(tx repository.Tx) error {
		for _, owner := range owners {
			var pet model.Pet
			found, err := tx.Get(ctx, repository.PetKey(owner), &pet)
			if err != nil {
				return err
			}
			if found {
				pets = append(pets, pet)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(pets, func(i, j int) bool {
		if c := pets[i].TotalStaked.Cmp(pets[j].TotalStaked); c != 0 {
			return c > 0
		}
		if pets[i].FeedingStreak != pets[j].FeedingStreak {
			return pets[i].FeedingStreak > pets[j].FeedingStreak
		}
		return pets[i].Owner < pets[j].Owner
	})
	if len(pets) > limit {
		pets = pets[:limit]
	}

	entries := make([]model.LeaderboardEntry, len(pets))
	for i, p := range pets {
		entries[i] = model.LeaderboardEntry{
			Rank:          i + 1,
			Owner:         p.Owner,
			PetName:       p.Name,
			Kind:          p.Kind,
			TotalStaked:   p.TotalStaked,
			FeedingStreak: p.FeedingStreak,
			Health:        p.Health,
			Level:         p.Level,
		}
	}
	return entries, nil
}

func loadPosition(ctx context.Context, tx repository.Tx, owner string, pet *model.Pet, staking *model.StakingInfo) error {
	found, err := tx.Get(ctx, repository.PetKey(owner), pet)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: no pet for owner %s", ErrNotFound, owner)
	}
	found, err = tx.Get(ctx, repository.StakingKey(owner), staking)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: no staking info for owner %s", ErrNotFound, owner)
	}
	return nil
}

func savePosition(ctx context.Context, tx repository.Tx, owner string, pet model.Pet, staking model.StakingInfo) error {
	if err := tx.Set(ctx, repository.PetKey(owner), pet); err != nil {
		return err
	}
	return tx.Set(ctx, repository.StakingKey(owner), staking)
}
