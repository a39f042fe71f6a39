package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// costScale bounds the number of decimal places kept on the weighted-average
// cost after a buy. Eight places is well beyond any exchange tick size.
const costScale = 8

// Position is the open holding of one account in one ticker. At most one
// Position exists per (account, ticker); a position whose quantity reaches
// zero is removed from the open set entirely.
type Position struct {
	AccountID string
	Ticker    string
	Quantity  int64
	AvgCost   decimal.Decimal
	OpenedAt  time.Time
	UpdatedAt time.Time
}

// ApplyBuy folds a buy of qty units at price into the position and returns
// the updated copy. The average cost becomes the quantity-weighted mean of
// all acquisition prices; buys never realize gains.
func (p Position) ApplyBuy(qty int64, price decimal.Decimal) Position {
	newQty := p.Quantity + qty
	total := p.AvgCost.Mul(decimal.NewFromInt(p.Quantity)).
		Add(price.Mul(decimal.NewFromInt(qty)))
	p.AvgCost = total.DivRound(decimal.NewFromInt(newQty), costScale)
	p.Quantity = newQty
	return p
}

// ApplySell removes qty units at price and returns the updated position plus
// the realized profit/loss of the sold lot, (price - avgCost) * qty. The
// average cost of the remainder is unchanged: it reflects acquisition cost
// only. Selling more than held fails with ErrInsufficientPosition.
func (p Position) ApplySell(qty int64, price decimal.Decimal) (Position, decimal.Decimal, error) {
	if qty > p.Quantity {
		return p, decimal.Zero, ErrInsufficientPosition
	}
	realized := price.Sub(p.AvgCost).Mul(decimal.NewFromInt(qty))
	p.Quantity -= qty
	return p, realized, nil
}

// Closed reports whether the position has been fully squared off.
func (p Position) Closed() bool {
	return p.Quantity == 0
}

// Invested is the total acquisition cost of the held quantity.
func (p Position) Invested() decimal.Decimal {
	return p.AvgCost.Mul(decimal.NewFromInt(p.Quantity))
}
