package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a registered portfolio owner. CashBalance is debited by buys and
// credited by sells; it must never go negative through the trade path.
type Account struct {
	ID          string
	Email       string
	Name        string
	APIToken    string
	CashBalance decimal.Decimal
	CreatedAt   time.Time
}
