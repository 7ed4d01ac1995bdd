package repository

import (
	"fmt"
	"strings"
)

// Key prefixes of the composite (record kind, owner) keys.
const (
	PetPrefix     = "pet:"
	StakingPrefix = "staking:"
	GoalPrefix    = "goal:"
	HistoryPrefix = "history:"

	historySeqPrefix = "history_seq:"

	// PetCounterKey holds the number of pets ever minted.
	PetCounterKey = "pet_counter"
)

// PetKey returns the key of an owner's pet.
func PetKey(owner string) string { return PetPrefix + owner }

// StakingKey returns the key of an owner's staking info.
func StakingKey(owner string) string { return StakingPrefix + owner }

// GoalKey returns the key of an owner's savings goal.
func GoalKey(owner string) string { return GoalPrefix + owner }

// HistoryOwnerPrefix returns the prefix of an owner's history entries in ledger.
func HistoryOwnerPrefix(ledger, owner string) string {
	return HistoryPrefix + ledger + ":" + owner + ":"
}

// HistoryKey returns the key of entry seq. The sequence is zero padded so keys sort in
// sequence order.
func HistoryKey(ledger, owner string, seq uint64) string {
	return fmt.Sprintf("%s%020d", HistoryOwnerPrefix(ledger, owner), seq)
}

// HistorySeqKey returns the key of the last sequence number used in an owner's history.
func HistorySeqKey(ledger, owner string) string {
	return historySeqPrefix + ledger + ":" + owner
}

// OwnerFromKey strips prefix from key. ok is false when key does not carry prefix.
func OwnerFromKey(key, prefix string) (owner string, ok bool) {
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	return strings.TrimPrefix(key, prefix), true
}
