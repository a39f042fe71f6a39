package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ClosedPosition is a fully squared-off holding reconstructed from the
// transaction log. Because Position rows are deleted when quantity hits
// zero, closed-position history can only be derived by replay, never by
// scanning the live positions table.
type ClosedPosition struct {
	Ticker        string
	TotalInvested decimal.Decimal
	TotalReturned decimal.Decimal
	ProfitLoss    decimal.Decimal
	ProfitLossPct decimal.Decimal
}

// ReplayClosedPositions groups an account's transaction log by ticker,
// replays each group in execution order with weighted-average matching, and
// returns the tickers whose net quantity is zero. TotalInvested is the cost
// basis consumed by sells, TotalReturned the sell proceeds; their difference
// is the realized profit/loss. Results are ordered by ticker ascending.
//
// txns must be in chronological order, as returned by the transaction store.
func ReplayClosedPositions(txns []Transaction) []ClosedPosition {
	type replay struct {
		qty      int64
		avgCost  decimal.Decimal
		consumed decimal.Decimal
		proceeds decimal.Decimal
		sold     bool
	}

	byTicker := make(map[string]*replay)
	for _, txn := range txns {
		r, ok := byTicker[txn.Ticker]
		if !ok {
			r = &replay{avgCost: decimal.Zero, consumed: decimal.Zero, proceeds: decimal.Zero}
			byTicker[txn.Ticker] = r
		}

		q := decimal.NewFromInt(txn.Quantity)
		switch txn.Side {
		case SideBuy:
			total := r.avgCost.Mul(decimal.NewFromInt(r.qty)).Add(txn.Price.Mul(q))
			r.qty += txn.Quantity
			r.avgCost = total.DivRound(decimal.NewFromInt(r.qty), costScale)
		case SideSell:
			// Oversells cannot be recorded; guard anyway so a damaged log
			// degrades to skipping the entry instead of corrupting totals.
			if txn.Quantity > r.qty {
				continue
			}
			r.qty -= txn.Quantity
			r.consumed = r.consumed.Add(r.avgCost.Mul(q))
			r.proceeds = r.proceeds.Add(txn.Price.Mul(q))
			r.sold = true
		}
	}

	var closed []ClosedPosition
	for ticker, r := range byTicker {
		if r.qty != 0 || !r.sold {
			continue
		}
		pl := r.proceeds.Sub(r.consumed)
		pct := decimal.Zero
		if !r.consumed.IsZero() {
			pct = pl.Div(r.consumed).Mul(decimal.NewFromInt(100)).Round(percentScale)
		}
		closed = append(closed, ClosedPosition{
			Ticker:        ticker,
			TotalInvested: r.consumed,
			TotalReturned: r.proceeds,
			ProfitLoss:    pl,
			ProfitLossPct: pct,
		})
	}

	sort.Slice(closed, func(i, j int) bool { return closed[i].Ticker < closed[j].Ticker })
	return closed
}
