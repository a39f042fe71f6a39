package domain

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// TxManager wraps fn in a single storage transaction. Every store call made
// through the ctx passed to fn joins that transaction; if fn returns an
// error, none of the mutations become visible.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AccountStore persists accounts.
type AccountStore interface {
	Create(ctx context.Context, a Account) error
	GetByID(ctx context.Context, id string) (Account, error)
	GetByToken(ctx context.Context, token string) (Account, error)
	// GetForUpdate locks the account row for the duration of the enclosing
	// transaction.
	GetForUpdate(ctx context.Context, id string) (Account, error)
	UpdateCashBalance(ctx context.Context, id string, balance decimal.Decimal) error
}

// PositionStore persists open positions, unique per (account, ticker).
type PositionStore interface {
	Get(ctx context.Context, accountID, ticker string) (Position, error)
	// GetForUpdate locks the position row for the duration of the enclosing
	// transaction; it is the per-(account,ticker) serialization point for
	// concurrent buys and sells.
	GetForUpdate(ctx context.Context, accountID, ticker string) (Position, error)
	Upsert(ctx context.Context, p Position) error
	Delete(ctx context.Context, accountID, ticker string) error
	// ListOpen returns all open positions ordered by ticker ascending.
	ListOpen(ctx context.Context, accountID string) ([]Position, error)
}

// TransactionStore persists the append-only transaction log. There is no
// update or delete path.
type TransactionStore interface {
	Append(ctx context.Context, t Transaction) error
	// ListByAccount returns the full log in chronological order, suitable
	// for replay.
	ListByAccount(ctx context.Context, accountID string) ([]Transaction, error)
	// ListByTicker returns one ticker's history newest first, for display.
	ListByTicker(ctx context.Context, accountID, ticker string) ([]Transaction, error)
	ListRecent(ctx context.Context, accountID string, limit int) ([]Transaction, error)
	// ListBefore returns all transactions executed strictly before the
	// cutoff, for archival.
	ListBefore(ctx context.Context, before time.Time) ([]Transaction, error)
}

// PriceSource supplies market quotes. Both calls may fail per ticker with
// ErrPriceUnavailable; callers degrade rather than fail a whole report.
type PriceSource interface {
	CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
	HistoricalPrice(ctx context.Context, ticker string, on time.Time) (decimal.Decimal, error)
}

// QuoteCache is a short-lived cache sitting in front of the PriceSource.
type QuoteCache interface {
	GetQuote(ctx context.Context, ticker string) (decimal.Decimal, time.Time, error)
	SetQuote(ctx context.Context, ticker string, price decimal.Decimal, ts time.Time) error
}

// BlobWriter uploads a single object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
