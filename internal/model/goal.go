package model

import "github.com/shopspring/decimal"

// Goal is the per-owner savings goal.
type Goal struct {
	Owner          string          `json:"owner"`
	GoalAmount     decimal.Decimal `json:"goal_amount"`
	DepositAmount  decimal.Decimal `json:"deposit_amount"`
	Frequency      string          `json:"frequency"`
	CurrentSaved   decimal.Decimal `json:"current_saved"`
	CreatedAt      uint64          `json:"created_at"`
	LastDepositAt  uint64          `json:"last_deposit_at,omitempty"`
	NextDepositDue uint64          `json:"next_deposit_due,omitempty"`
}

// DepositResult classifies a single goal deposit against the required amount.
type DepositResult string

const (
	DepositOnTime DepositResult = "ON_TIME"
	DepositUnder  DepositResult = "UNDER"
)
