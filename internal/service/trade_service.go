// Package service implements the application's use cases on top of the
// domain stores: trade processing, portfolio valuation, and log archival.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pvaldes/stockfolio/internal/domain"
)

// TradeService applies buy and sell events: it validates input, maintains the
// position ledger and cash balance, and appends to the immutable transaction
// log. The three mutations of a trade commit or roll back as one unit.
type TradeService struct {
	txm          domain.TxManager
	accounts     domain.AccountStore
	positions    domain.PositionStore
	transactions domain.TransactionStore
	logger       *slog.Logger
}

// NewTradeService creates a TradeService with all required dependencies.
func NewTradeService(
	txm domain.TxManager,
	accounts domain.AccountStore,
	positions domain.PositionStore,
	transactions domain.TransactionStore,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		txm:          txm,
		accounts:     accounts,
		positions:    positions,
		transactions: transactions,
		logger:       logger,
	}
}

// normalizeTicker uppercases and trims a ticker symbol.
func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func validateTrade(ticker string, qty int64, price decimal.Decimal) error {
	if ticker == "" {
		return fmt.Errorf("%w: ticker is required", domain.ErrValidation)
	}
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}
	if price.Sign() <= 0 {
		return fmt.Errorf("%w: price must be positive", domain.ErrValidation)
	}
	return nil
}

// Buy debits the account, folds the lot into the position at weighted-average
// cost, and appends a BUY record. It fails with ErrInsufficientFunds when the
// cash balance cannot cover quantity*price, and with ErrNotFound when the
// account does not exist. Nothing is mutated on failure.
func (s *TradeService) Buy(ctx context.Context, accountID, ticker string, qty int64, price decimal.Decimal) (domain.Transaction, error) {
	ticker = normalizeTicker(ticker)
	if err := validateTrade(ticker, qty, price); err != nil {
		return domain.Transaction{}, err
	}

	now := time.Now().UTC()
	txn := domain.Transaction{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		Ticker:     ticker,
		Side:       domain.SideBuy,
		Quantity:   qty,
		Price:      price,
		ExecutedAt: now,
	}

	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		// Locking the account row first gives all trades for one account a
		// single lock order, so concurrent buys cannot deadlock.
		acct, err := s.accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		cost := price.Mul(decimal.NewFromInt(qty))
		if acct.CashBalance.LessThan(cost) {
			return fmt.Errorf("%w: cost %s exceeds balance %s",
				domain.ErrInsufficientFunds, cost, acct.CashBalance)
		}
		if err := s.accounts.UpdateCashBalance(ctx, accountID, acct.CashBalance.Sub(cost)); err != nil {
			return err
		}

		pos, err := s.positions.GetForUpdate(ctx, accountID, ticker)
		if errors.Is(err, domain.ErrNotFound) {
			pos = domain.Position{AccountID: accountID, Ticker: ticker, AvgCost: decimal.Zero, OpenedAt: now}
		} else if err != nil {
			return err
		}

		if err := s.positions.Upsert(ctx, pos.ApplyBuy(qty, price)); err != nil {
			return err
		}

		return s.transactions.Append(ctx, txn)
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "trade_service: buy executed",
		slog.String("account_id", accountID),
		slog.String("ticker", ticker),
		slog.Int64("quantity", qty),
		slog.String("price", price.String()),
	)
	return txn, nil
}

// Sell decrements the position, credits the proceeds to the cash balance, and
// appends a SELL record. The remaining position's average cost is unchanged;
// if the quantity reaches exactly zero the position row is removed. The
// realized profit/loss of the sold lot is returned alongside the record.
// Selling without a position, or more than held, fails with
// ErrInsufficientPosition and mutates nothing.
func (s *TradeService) Sell(ctx context.Context, accountID, ticker string, qty int64, price decimal.Decimal) (domain.Transaction, decimal.Decimal, error) {
	ticker = normalizeTicker(ticker)
	if err := validateTrade(ticker, qty, price); err != nil {
		return domain.Transaction{}, decimal.Zero, err
	}

	now := time.Now().UTC()
	txn := domain.Transaction{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		Ticker:     ticker,
		Side:       domain.SideSell,
		Quantity:   qty,
		Price:      price,
		ExecutedAt: now,
	}

	var realized decimal.Decimal
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		acct, err := s.accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		pos, err := s.positions.GetForUpdate(ctx, accountID, ticker)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: no open position in %s", domain.ErrInsufficientPosition, ticker)
		} else if err != nil {
			return err
		}

		pos, realized, err = pos.ApplySell(qty, price)
		if err != nil {
			return err
		}

		if pos.Closed() {
			if err := s.positions.Delete(ctx, accountID, ticker); err != nil {
				return err
			}
		} else {
			if err := s.positions.Upsert(ctx, pos); err != nil {
				return err
			}
		}

		proceeds := price.Mul(decimal.NewFromInt(qty))
		if err := s.accounts.UpdateCashBalance(ctx, accountID, acct.CashBalance.Add(proceeds)); err != nil {
			return err
		}

		return s.transactions.Append(ctx, txn)
	})
	if err != nil {
		return domain.Transaction{}, decimal.Zero, err
	}

	s.logger.InfoContext(ctx, "trade_service: sell executed",
		slog.String("account_id", accountID),
		slog.String("ticker", ticker),
		slog.Int64("quantity", qty),
		slog.String("price", price.String()),
		slog.String("realized_pl", realized.String()),
	)
	return txn, realized, nil
}
