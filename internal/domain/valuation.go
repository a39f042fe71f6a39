package domain

import "github.com/shopspring/decimal"

// percentScale is the rounding applied to profit/loss percentages in reports.
const percentScale = 2

// Valuation is the mark-to-market view of a single open position.
type Valuation struct {
	MarketValue   decimal.Decimal
	Invested      decimal.Decimal
	ProfitLoss    decimal.Decimal
	ProfitLossPct decimal.Decimal
}

// ValuePosition marks a position against currentPrice. The percentage is
// defined as zero when the invested amount is zero; valuation never divides
// by zero. Callers that could not obtain a live price pass the position's
// average cost, which yields a zero unrealized P/L by construction.
func ValuePosition(p Position, currentPrice decimal.Decimal) Valuation {
	invested := p.Invested()
	market := currentPrice.Mul(decimal.NewFromInt(p.Quantity))
	pl := market.Sub(invested)

	pct := decimal.Zero
	if !invested.IsZero() {
		pct = pl.Div(invested).Mul(decimal.NewFromInt(100)).Round(percentScale)
	}

	return Valuation{
		MarketValue:   market,
		Invested:      invested,
		ProfitLoss:    pl,
		ProfitLossPct: pct,
	}
}
