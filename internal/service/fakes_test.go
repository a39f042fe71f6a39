package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pvaldes/stockfolio/internal/domain"
)

// fakeTxManager runs fn directly; the in-memory stores have no transactions
// to join.
type fakeTxManager struct{}

func (fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memStore is an in-memory implementation of AccountStore, PositionStore,
// and TransactionStore.
type memStore struct {
	mu        sync.Mutex
	accounts  map[string]domain.Account
	positions map[string]domain.Position // keyed accountID + "|" + ticker
	log       []domain.Transaction
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  make(map[string]domain.Account),
		positions: make(map[string]domain.Position),
	}
}

func posKey(accountID, ticker string) string { return accountID + "|" + ticker }

func (m *memStore) Create(ctx context.Context, a domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return a, nil
}

func (m *memStore) GetByToken(ctx context.Context, token string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.APIToken == token {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrNotFound
}

func (m *memStore) GetForUpdate(ctx context.Context, id string) (domain.Account, error) {
	return m.GetByID(ctx, id)
}

func (m *memStore) UpdateCashBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.CashBalance = balance
	m.accounts[id] = a
	return nil
}

func (m *memStore) Get(ctx context.Context, accountID, ticker string) (domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[posKey(accountID, ticker)]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memStore) GetPositionForUpdate(ctx context.Context, accountID, ticker string) (domain.Position, error) {
	return m.Get(ctx, accountID, ticker)
}

func (m *memStore) Upsert(ctx context.Context, p domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[posKey(p.AccountID, p.Ticker)] = p
	return nil
}

func (m *memStore) Delete(ctx context.Context, accountID, ticker string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := posKey(accountID, ticker)
	if _, ok := m.positions[key]; !ok {
		return domain.ErrNotFound
	}
	delete(m.positions, key)
	return nil
}

func (m *memStore) ListOpen(ctx context.Context, accountID string) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Position
	for _, p := range m.positions {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (m *memStore) Append(ctx context.Context, t domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, t)
	return nil
}

func (m *memStore) ListByAccount(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transaction
	for _, t := range m.log {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListByTicker(ctx context.Context, accountID, ticker string) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transaction
	for i := len(m.log) - 1; i >= 0; i-- {
		if m.log[i].AccountID == accountID && m.log[i].Ticker == ticker {
			out = append(out, m.log[i])
		}
	}
	return out, nil
}

func (m *memStore) ListRecent(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transaction
	for i := len(m.log) - 1; i >= 0 && len(out) < limit; i-- {
		if m.log[i].AccountID == accountID {
			out = append(out, m.log[i])
		}
	}
	return out, nil
}

func (m *memStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transaction
	for _, t := range m.log {
		if t.ExecutedAt.Before(before) {
			out = append(out, t)
		}
	}
	return out, nil
}

// positionStoreAdapter renames GetPositionForUpdate to GetForUpdate so one
// memStore can satisfy both AccountStore and PositionStore despite the
// clashing method names.
type positionStoreAdapter struct{ *memStore }

func (a positionStoreAdapter) GetForUpdate(ctx context.Context, accountID, ticker string) (domain.Position, error) {
	return a.memStore.GetPositionForUpdate(ctx, accountID, ticker)
}

var (
	_ domain.AccountStore     = (*memStore)(nil)
	_ domain.PositionStore    = positionStoreAdapter{}
	_ domain.TransactionStore = (*memStore)(nil)
)

// fakePrices serves quotes from fixed maps. Missing tickers fail with
// ErrPriceUnavailable, exercising the fallback paths.
type fakePrices struct {
	mu         sync.Mutex
	current    map[string]decimal.Decimal
	historical map[string]decimal.Decimal
}

func newFakePrices() *fakePrices {
	return &fakePrices{
		current:    make(map[string]decimal.Decimal),
		historical: make(map[string]decimal.Decimal),
	}
}

func (f *fakePrices) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.current[ticker]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, ticker)
	}
	return p, nil
}

func (f *fakePrices) HistoricalPrice(ctx context.Context, ticker string, on time.Time) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.historical[ticker]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, ticker)
	}
	return p, nil
}

var _ domain.PriceSource = (*fakePrices)(nil)

// fixture bundles the services under test with their backing fakes.
type fixture struct {
	store  *memStore
	prices *fakePrices
	trades *TradeService
	folio  *PortfolioService
}

const testAccountID = "acct-1"

func newFixture() *fixture {
	store := newMemStore()
	store.accounts[testAccountID] = domain.Account{
		ID:          testAccountID,
		Email:       "trader@example.com",
		Name:        "Trader",
		APIToken:    "token-1",
		CashBalance: decimal.NewFromInt(10000),
		CreatedAt:   time.Now().UTC(),
	}

	prices := newFakePrices()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	positions := positionStoreAdapter{store}

	return &fixture{
		store:  store,
		prices: prices,
		trades: NewTradeService(fakeTxManager{}, store, positions, store, logger),
		folio:  NewPortfolioService(fakeTxManager{}, store, positions, store, prices, logger),
	}
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}
