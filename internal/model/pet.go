package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PetKind enumerates the species a pet can be minted as.
type PetKind string

const (
	PetKindDragon PetKind = "Dragon"
	PetKindPig    PetKind = "Pig"
	PetKindPuppy  PetKind = "Puppy"
)

// ParsePetKind accepts the kind name in any letter case.
func ParsePetKind(s string) (PetKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dragon":
		return PetKindDragon, nil
	case "pig":
		return PetKindPig, nil
	case "puppy":
		return PetKindPuppy, nil
	}
	return "", fmt.Errorf("unknown pet kind %q", s)
}

// EvolutionStage is the cosmetic growth stage derived from total stake.
type EvolutionStage string

const (
	StageBaby  EvolutionStage = "baby"
	StageTeen  EvolutionStage = "teen"
	StageAdult EvolutionStage = "adult"
	StageMega  EvolutionStage = "mega"
)

// Pet is the per-owner virtual pet record.
//
// Health and Happiness are bounded to [0, 100]; Level is always
// 1 + floor(TotalStaked / 1000); TotalStaked mirrors StakingInfo.Amount.
type Pet struct {
	Owner          string          `json:"owner"`
	Name           string          `json:"name"`
	Kind           PetKind         `json:"kind"`
	Health         uint32          `json:"health"`
	Happiness      uint32          `json:"happiness"`
	Level          uint32          `json:"level"`
	TotalStaked    decimal.Decimal `json:"total_staked"`
	FeedingStreak  uint32          `json:"feeding_streak"`
	LastFedAt      uint64          `json:"last_fed_timestamp"`
	CreatedAt      uint64          `json:"created_at"`
	LastDecayAt    uint64          `json:"last_decay_at,omitempty"`
	EvolutionStage EvolutionStage  `json:"evolution_stage"`
}

// StakingInfo is the staking side of a pet, created at mint and updated in lockstep with it.
type StakingInfo struct {
	Amount        decimal.Decimal `json:"amount"`
	LastDeposit   uint64          `json:"last_deposit"`
	TotalDeposits uint32          `json:"total_deposits"`
}

// LeaderboardEntry is one ranked row of the stake leaderboard.
type LeaderboardEntry struct {
	Rank          int             `json:"rank"`
	Owner         string          `json:"owner"`
	PetName       string          `json:"pet_name"`
	Kind          PetKind         `json:"kind"`
	TotalStaked   decimal.Decimal `json:"total_staked"`
	FeedingStreak uint32          `json:"feeding_streak"`
	Health        uint32          `json:"health"`
	Level         uint32          `json:"level"`
}
