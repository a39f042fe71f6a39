package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionSide is the direction of a recorded trade.
type TransactionSide string

const (
	SideBuy  TransactionSide = "BUY"
	SideSell TransactionSide = "SELL"
)

// Transaction is an immutable record of a single executed buy or sell. Rows
// are append-only: the log is the source of truth for realized history, while
// Position is a mutable rollup derived from it.
type Transaction struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"-"`
	Ticker     string          `json:"ticker"`
	Side       TransactionSide `json:"transaction_type"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	ExecutedAt time.Time       `json:"timestamp"`
}
