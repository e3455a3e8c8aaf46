package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Opportunity represents a detected cross-exchange price discrepancy for one
// token, net of modeled gas and protocol fees. Opportunities are immutable;
// each scan cycle replaces the previous set rather than mutating it.
type Opportunity struct {
	ID               string          `json:"id"`
	Token            string          `json:"token"`
	BuyExchange      string          `json:"buyExchange"`
	SellExchange     string          `json:"sellExchange"`
	BuyPrice         decimal.Decimal `json:"buyPrice"`
	SellPrice        decimal.Decimal `json:"sellPrice"`
	NetProfit        decimal.Decimal `json:"netProfit"` // USD, per unit traded
	NetProfitPercent decimal.Decimal `json:"netProfitPercent"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// ExecutionStatus is the lifecycle state of an execution.
type ExecutionStatus string

const (
	StatusExecuting ExecutionStatus = "executing"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

// Terminal reports whether no further transition can occur from s.
func (s ExecutionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrorCategory classifies an execution failure for the notification layer.
type ErrorCategory string

const (
	ErrUserRejected      ErrorCategory = "user_rejected"
	ErrInsufficientFunds ErrorCategory = "insufficient_funds"
	ErrReverted          ErrorCategory = "contract_reverted"
	ErrNetwork           ErrorCategory = "network"
	ErrUnknown           ErrorCategory = "unknown"
)

// ExecutionRecord tracks a single opportunity execution from start to its
// terminal outcome. The originating opportunity is snapshotted at start so a
// later scan cycle cannot change what was executed.
type ExecutionRecord struct {
	ID           string          `json:"id"`
	Opportunity  Opportunity     `json:"opportunity"`
	Status       ExecutionStatus `json:"status"`
	StartedAt    time.Time       `json:"startedAt"`
	EndedAt      time.Time       `json:"endedAt,omitempty"`
	ActualProfit decimal.Decimal `json:"actualProfit"`       // set on completed
	Error        string          `json:"error,omitempty"`    // set on failed
	Category     ErrorCategory   `json:"category,omitempty"` // set on failed
	TxHash       common.Hash     `json:"txHash,omitempty"`   // live path only
	Simulated    bool            `json:"simulated"`
}

// RunningStats holds process-lifetime execution counters. Counts only
// increment; cumulative profit may be adjusted downward by a losing
// execution. Reset happens only through an explicit external reset.
type RunningStats struct {
	Successful       uint64          `json:"successful"`
	Failed           uint64          `json:"failed"`
	CumulativeProfit decimal.Decimal `json:"cumulativeProfit"`
	CumulativeVolume decimal.Decimal `json:"cumulativeVolume"`
}

// DepositEntry is one row of the persisted deposit-history ledger.
type DepositEntry struct {
	Date   time.Time `json:"date"`
	Asset  string    `json:"asset"`
	Amount string    `json:"amount"`
	TxRef  string    `json:"txRef"`
	Note   string    `json:"note,omitempty"`
}
