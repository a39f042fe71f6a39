package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pvaldes/stockfolio/internal/domain"
)

// TransactionStore implements domain.TransactionStore using PostgreSQL. The
// transactions table is append-only; this type deliberately exposes no
// update or delete operation.
type TransactionStore struct {
	pool *pgxpool.Pool
}

// NewTransactionStore creates a new TransactionStore backed by the given
// connection pool.
func NewTransactionStore(pool *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

const transactionSelectCols = `id, account_id, ticker, side, quantity, price, executed_at`

func scanTransactionRows(rows pgx.Rows) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var side string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Ticker, &side, &t.Quantity, &t.Price, &t.ExecutedAt); err != nil {
			return nil, err
		}
		t.Side = domain.TransactionSide(side)
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// Append inserts a new immutable transaction record.
func (s *TransactionStore) Append(ctx context.Context, t domain.Transaction) error {
	const query = `
		INSERT INTO transactions (id, account_id, ticker, side, quantity, price, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := txOrPool(ctx, s.pool).Exec(ctx, query,
		t.ID, t.AccountID, t.Ticker, string(t.Side), t.Quantity, t.Price, t.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append transaction %s: %w", t.ID, err)
	}
	return nil
}

// ListByAccount returns the account's full log in chronological order.
func (s *TransactionStore) ListByAccount(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	rows, err := txOrPool(ctx, s.pool).Query(ctx,
		`SELECT `+transactionSelectCols+` FROM transactions
		 WHERE account_id = $1
		 ORDER BY executed_at ASC, id ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions: %w", err)
	}
	defer rows.Close()

	txns, err := scanTransactionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan transactions: %w", err)
	}
	return txns, nil
}

// ListByTicker returns one ticker's history for the account, newest first.
func (s *TransactionStore) ListByTicker(ctx context.Context, accountID, ticker string) ([]domain.Transaction, error) {
	rows, err := txOrPool(ctx, s.pool).Query(ctx,
		`SELECT `+transactionSelectCols+` FROM transactions
		 WHERE account_id = $1 AND ticker = $2
		 ORDER BY executed_at DESC, id DESC`, accountID, ticker)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions for %s: %w", ticker, err)
	}
	defer rows.Close()

	txns, err := scanTransactionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan transactions for %s: %w", ticker, err)
	}
	return txns, nil
}

// ListRecent returns the account's most recent transactions, newest first.
func (s *TransactionStore) ListRecent(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	rows, err := txOrPool(ctx, s.pool).Query(ctx,
		`SELECT `+transactionSelectCols+` FROM transactions
		 WHERE account_id = $1
		 ORDER BY executed_at DESC, id DESC
		 LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent transactions: %w", err)
	}
	defer rows.Close()

	txns, err := scanTransactionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent transactions: %w", err)
	}
	return txns, nil
}

// ListBefore returns all transactions executed strictly before the cutoff,
// across accounts, in chronological order. Used by the archiver.
func (s *TransactionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Transaction, error) {
	rows, err := txOrPool(ctx, s.pool).Query(ctx,
		`SELECT `+transactionSelectCols+` FROM transactions
		 WHERE executed_at < $1
		 ORDER BY executed_at ASC, id ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	txns, err := scanTransactionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan transactions before cutoff: %w", err)
	}
	return txns, nil
}

// Compile-time interface check.
var _ domain.TransactionStore = (*TransactionStore)(nil)
