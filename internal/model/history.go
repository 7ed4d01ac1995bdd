package model

import "github.com/shopspring/decimal"

// TransactionType is the direction of a ledger history entry.
type TransactionType string

const (
	TransactionDeposit  TransactionType = "deposit"
	TransactionWithdraw TransactionType = "withdraw"
)

// HistoryEntry is one committed deposit or withdrawal on an owner's ledger.
type HistoryEntry struct {
	Seq     uint64          `json:"seq"`
	Type    TransactionType `json:"transaction_type"`
	Amount  decimal.Decimal `json:"amount"`
	Balance decimal.Decimal `json:"balance"` // after this transaction
	Result  DepositResult   `json:"result,omitempty"` // goal deposits only
	At      uint64          `json:"at"`
}
