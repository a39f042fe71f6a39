package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pvaldes/stockfolio/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL. A position
// row exists only while its quantity is positive; closing a position deletes
// the row.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given connection pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionSelectCols = `account_id, ticker, quantity, avg_cost, opened_at, updated_at`

func scanPositionRow(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	err := row.Scan(&p.AccountID, &p.Ticker, &p.Quantity, &p.AvgCost, &p.OpenedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Position{}, err
	}
	return p, nil
}

// Get retrieves the position for (accountID, ticker).
func (s *PositionStore) Get(ctx context.Context, accountID, ticker string) (domain.Position, error) {
	row := txOrPool(ctx, s.pool).QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE account_id = $1 AND ticker = $2`, accountID, ticker)

	p, err := scanPositionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s/%s: %w", accountID, ticker, err)
	}
	return p, nil
}

// GetForUpdate retrieves the position and locks its row until the enclosing
// transaction ends. Concurrent buys and sells on the same (account, ticker)
// serialize on this lock.
func (s *PositionStore) GetForUpdate(ctx context.Context, accountID, ticker string) (domain.Position, error) {
	row := txOrPool(ctx, s.pool).QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE account_id = $1 AND ticker = $2 FOR UPDATE`, accountID, ticker)

	p, err := scanPositionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s/%s for update: %w", accountID, ticker, err)
	}
	return p, nil
}

// Upsert inserts the position or, when the (account, ticker) row already
// exists, replaces its quantity and average cost.
func (s *PositionStore) Upsert(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (account_id, ticker, quantity, avg_cost, opened_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (account_id, ticker) DO UPDATE SET
			quantity   = EXCLUDED.quantity,
			avg_cost   = EXCLUDED.avg_cost,
			updated_at = NOW()`

	_, err := txOrPool(ctx, s.pool).Exec(ctx, query,
		p.AccountID, p.Ticker, p.Quantity, p.AvgCost, p.OpenedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %s/%s: %w", p.AccountID, p.Ticker, err)
	}
	return nil
}

// Delete removes a position row. Called when a sell drives the quantity to
// exactly zero.
func (s *PositionStore) Delete(ctx context.Context, accountID, ticker string) error {
	tag, err := txOrPool(ctx, s.pool).Exec(ctx,
		`DELETE FROM positions WHERE account_id = $1 AND ticker = $2`, accountID, ticker)
	if err != nil {
		return fmt.Errorf("postgres: delete position %s/%s: %w", accountID, ticker, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListOpen returns all open positions for the account, ordered by ticker
// ascending. The order is part of the reporting contract: it makes the
// best-performer tie-break deterministic.
func (s *PositionStore) ListOpen(ctx context.Context, accountID string) ([]domain.Position, error) {
	rows, err := txOrPool(ctx, s.pool).Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE account_id = $1
		 ORDER BY ticker ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.AccountID, &p.Ticker, &p.Quantity, &p.AvgCost, &p.OpenedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan open position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}
	return positions, nil
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)
