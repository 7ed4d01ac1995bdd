// Package notify publishes ledger events after their transaction commits.
package notify

import (
	"context"
	"time"

	"stellar-pets-api/pkg/uid"
)

// Event sources.
const (
	SourcePets  = "pets"
	SourceGoals = "goals"
)

// Event topics.
const (
	TopicPetMint  = "pet_mint"
	TopicPetFed   = "pet_fed"
	TopicWithdraw = "withdraw"
	TopicGoalSet  = "goal_set"
	TopicDeposit  = "deposit"
)

// Event is one state-changing ledger operation.
type Event struct {
	ID         string                 `json:"id"`
	Source     string                 `json:"source"`
	Topic      string                 `json:"topic"`
	Owner      string                 `json:"owner"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	LedgerTime uint64                 `json:"ledger_time"`
	EmittedAt  time.Time              `json:"emitted_at"`
}

// NewEvent stamps a fresh ID and emission time.
func NewEvent(source, topic, owner string, ledgerTime uint64, payload map[string]interface{}) Event {
	return Event{
		ID:         uid.New(),
		Source:     source,
		Topic:      topic,
		Owner:      owner,
		Payload:    payload,
		LedgerTime: ledgerTime,
		EmittedAt:  time.Now().UTC(),
	}
}

// Sink receives committed events.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
