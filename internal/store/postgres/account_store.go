package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pvaldes/stockfolio/internal/domain"
)

// AccountStore implements domain.AccountStore using PostgreSQL.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates a new AccountStore backed by the given connection pool.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

const accountSelectCols = `id, email, name, api_token, cash_balance, created_at`

func scanAccountRow(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.APIToken, &a.CashBalance, &a.CreatedAt)
	if err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

// Create inserts a new account.
func (s *AccountStore) Create(ctx context.Context, a domain.Account) error {
	const query = `
		INSERT INTO accounts (id, email, name, api_token, cash_balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := txOrPool(ctx, s.pool).Exec(ctx, query,
		a.ID, a.Email, a.Name, a.APIToken, a.CashBalance, a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create account %s: %w", a.ID, err)
	}
	return nil
}

// GetByID retrieves a single account by its ID.
func (s *AccountStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := txOrPool(ctx, s.pool).QueryRow(ctx,
		`SELECT `+accountSelectCols+` FROM accounts WHERE id = $1`, id)

	a, err := scanAccountRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("postgres: get account %s: %w", id, err)
	}
	return a, nil
}

// GetByToken retrieves the account owning the given API token.
func (s *AccountStore) GetByToken(ctx context.Context, token string) (domain.Account, error) {
	row := txOrPool(ctx, s.pool).QueryRow(ctx,
		`SELECT `+accountSelectCols+` FROM accounts WHERE api_token = $1`, token)

	a, err := scanAccountRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("postgres: get account by token: %w", err)
	}
	return a, nil
}

// GetForUpdate retrieves an account and locks its row until the enclosing
// transaction commits or rolls back.
func (s *AccountStore) GetForUpdate(ctx context.Context, id string) (domain.Account, error) {
	row := txOrPool(ctx, s.pool).QueryRow(ctx,
		`SELECT `+accountSelectCols+` FROM accounts WHERE id = $1 FOR UPDATE`, id)

	a, err := scanAccountRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("postgres: get account %s for update: %w", id, err)
	}
	return a, nil
}

// UpdateCashBalance sets the account's cash balance.
func (s *AccountStore) UpdateCashBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	tag, err := txOrPool(ctx, s.pool).Exec(ctx,
		`UPDATE accounts SET cash_balance = $2 WHERE id = $1`, id, balance)
	if err != nil {
		return fmt.Errorf("postgres: update cash balance %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.AccountStore = (*AccountStore)(nil)
