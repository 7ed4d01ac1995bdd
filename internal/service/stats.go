package service

import (
	"math"

	"github.com/shopspring/decimal"

	"stellar-pets-api/internal/model"
)

const (
	// MaxStat bounds health and happiness.
	MaxStat uint32 = 100

	// SecondsPerDay is the length of one decay/streak day.
	SecondsPerDay uint64 = 86400

	feedHealthGain    = 20
	feedHappinessGain = 25

	withdrawHealthPenalty    = 30
	withdrawHappinessPenalty = 40

	decayHealthPerDay    = 5
	decayHappinessPerDay = 3

	stakePerLevel = 1000
)

// Evolution thresholds in currency units, lowest first.
var evolutionThresholds = []struct {
	min   int64
	stage model.EvolutionStage
}{
	{0, model.StageBaby},
	{100, model.StageTeen},
	{500, model.StageAdult},
	{2000, model.StageMega},
}

// ClampStat returns current+delta bounded to [0, max].
func ClampStat(current uint32, delta int64, max uint32) uint32 {
	v := int64(current) + delta
	if v < 0 {
		return 0
	}
	if v > int64(max) {
		return max
	}
	return uint32(v)
}

// daysElapsed counts whole days from since to now. A clock behind since yields 0.
func daysElapsed(now, since uint64) uint64 {
	if now <= since {
		return 0
	}
	return (now - since) / SecondsPerDay
}

// levelFor returns 1 + floor(staked/1000), saturating at MaxUint32.
func levelFor(staked decimal.Decimal) uint32 {
	if !staked.IsPositive() {
		return 1
	}
	q := staked.Div(decimal.NewFromInt(stakePerLevel)).Floor()
	if q.GreaterThanOrEqual(decimal.NewFromInt(math.MaxUint32 - 1)) {
		return math.MaxUint32
	}
	return uint32(q.IntPart()) + 1
}

// stageFor maps total stake to an evolution stage.
func stageFor(staked decimal.Decimal) model.EvolutionStage {
	stage := model.StageBaby
	for _, t := range evolutionThresholds {
		if staked.GreaterThanOrEqual(decimal.NewFromInt(t.min)) {
			stage = t.stage
		}
	}
	return stage
}

// decayDelta is the negative stat change for days of neglect at perDay.
// Anything past MaxStat floors the stat anyway, so the product is capped there.
func decayDelta(perDay, days uint64) int64 {
	if days >= uint64(MaxStat) {
		return -int64(MaxStat)
	}
	d := perDay * days
	if d > uint64(MaxStat) {
		d = uint64(MaxStat)
	}
	return -int64(d)
}

func incSaturating(v uint32) uint32 {
	if v == math.MaxUint32 {
		return v
	}
	return v + 1
}
