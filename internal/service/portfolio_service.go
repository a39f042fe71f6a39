package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pvaldes/stockfolio/internal/domain"
)

const (
	// recentTransactionLimit caps the recent-transactions list in analytics.
	recentTransactionLimit = 5
	// performanceMonths is the number of monthly snapshots in the trend.
	performanceMonths = 6
	// stockPerformanceDays is the lookback for per-ticker performance.
	stockPerformanceDays = 30
)

// PortfolioService is the read path: it values open positions against market
// prices, reconstructs squared-off positions from the transaction log, and
// assembles the portfolio and analytics reports.
type PortfolioService struct {
	txm          domain.TxManager
	accounts     domain.AccountStore
	positions    domain.PositionStore
	transactions domain.TransactionStore
	prices       domain.PriceSource
	logger       *slog.Logger

	now func() time.Time
}

// NewPortfolioService creates a PortfolioService with all required dependencies.
func NewPortfolioService(
	txm domain.TxManager,
	accounts domain.AccountStore,
	positions domain.PositionStore,
	transactions domain.TransactionStore,
	prices domain.PriceSource,
	logger *slog.Logger,
) *PortfolioService {
	return &PortfolioService{
		txm:          txm,
		accounts:     accounts,
		positions:    positions,
		transactions: transactions,
		prices:       prices,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// snapshot is the ledger state read under one transaction, so positions and
// the log cannot diverge mid-report.
type snapshot struct {
	account   domain.Account
	positions []domain.Position
	log       []domain.Transaction
}

func (s *PortfolioService) readSnapshot(ctx context.Context, accountID string) (snapshot, error) {
	var snap snapshot
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if snap.account, err = s.accounts.GetByID(ctx, accountID); err != nil {
			return err
		}
		if snap.positions, err = s.positions.ListOpen(ctx, accountID); err != nil {
			return err
		}
		snap.log, err = s.transactions.ListByAccount(ctx, accountID)
		return err
	})
	if err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

// currentPrices fetches live quotes for all open positions concurrently.
// A ticker whose quote cannot be obtained falls back to its own average
// cost, which values it at zero unrealized P/L instead of failing the
// report.
func (s *PortfolioService) currentPrices(ctx context.Context, positions []domain.Position) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(positions))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, pos := range positions {
		g.Go(func() error {
			price, err := s.prices.CurrentPrice(gctx, pos.Ticker)
			if err != nil {
				s.logger.WarnContext(ctx, "portfolio_service: price unavailable, using average cost",
					slog.String("ticker", pos.Ticker),
					slog.String("error", err.Error()),
				)
				price = pos.AvgCost
			}
			mu.Lock()
			prices[pos.Ticker] = price
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; fallback is per ticker
	return prices
}

// historyByTicker splits the chronological log into per-ticker lists,
// newest first, for display in reports.
func historyByTicker(log []domain.Transaction) map[string][]domain.Transaction {
	byTicker := make(map[string][]domain.Transaction)
	for i := len(log) - 1; i >= 0; i-- {
		t := log[i]
		byTicker[t.Ticker] = append(byTicker[t.Ticker], t)
	}
	return byTicker
}

func buildPositionReports(
	positions []domain.Position,
	prices map[string]decimal.Decimal,
	history map[string][]domain.Transaction,
) []domain.PositionReport {
	reports := make([]domain.PositionReport, 0, len(positions))
	for _, pos := range positions {
		price := prices[pos.Ticker]
		v := domain.ValuePosition(pos, price)
		reports = append(reports, domain.PositionReport{
			Ticker:       pos.Ticker,
			Shares:       pos.Quantity,
			AveragePrice: pos.AvgCost,
			CurrentPrice: price,
			TotalValue:   v.MarketValue,
			ProfitLoss:   domain.ProfitLoss{Dollars: v.ProfitLoss, Percent: v.ProfitLossPct},
			Transactions: txnsOrEmpty(history[pos.Ticker]),
		})
	}
	return reports
}

func buildClosedReports(log []domain.Transaction, history map[string][]domain.Transaction) []domain.ClosedPositionReport {
	closed := domain.ReplayClosedPositions(log)
	reports := make([]domain.ClosedPositionReport, 0, len(closed))
	for _, cp := range closed {
		reports = append(reports, domain.ClosedPositionReport{
			Ticker:        cp.Ticker,
			TotalInvested: cp.TotalInvested,
			TotalReturned: cp.TotalReturned,
			ProfitLoss:    domain.ProfitLoss{Dollars: cp.ProfitLoss, Percent: cp.ProfitLossPct},
			Transactions:  txnsOrEmpty(history[cp.Ticker]),
		})
	}
	return reports
}

func txnsOrEmpty(txns []domain.Transaction) []domain.Transaction {
	if txns == nil {
		return []domain.Transaction{}
	}
	return txns
}

// Portfolio assembles the holdings report for an account: open positions
// valued at current prices plus squared-off positions replayed from the log.
func (s *PortfolioService) Portfolio(ctx context.Context, accountID string) (domain.PortfolioReport, error) {
	snap, err := s.readSnapshot(ctx, accountID)
	if err != nil {
		return domain.PortfolioReport{}, err
	}

	prices := s.currentPrices(ctx, snap.positions)
	history := historyByTicker(snap.log)

	return domain.PortfolioReport{
		AccountID:   accountID,
		CashBalance: snap.account.CashBalance,
		Portfolio:   buildPositionReports(snap.positions, prices, history),
		SquaredOff:  buildClosedReports(snap.log, history),
	}, nil
}

// Analytics assembles the aggregate report: totals, best performer,
// composition, per-ticker performance, and the historical valuation trend.
// With zero open positions the totals are zero, the lists empty, and the
// best performer absent.
func (s *PortfolioService) Analytics(ctx context.Context, accountID string) (domain.AnalyticsReport, error) {
	snap, err := s.readSnapshot(ctx, accountID)
	if err != nil {
		return domain.AnalyticsReport{}, err
	}

	prices := s.currentPrices(ctx, snap.positions)
	history := historyByTicker(snap.log)

	report := domain.AnalyticsReport{
		TotalValue:         decimal.Zero,
		TotalStocks:        len(snap.positions),
		TotalProfitLoss:    decimal.Zero,
		RecentTransactions: []domain.Transaction{},
		Composition:        []domain.CompositionSlice{},
		StockPerformance:   []domain.StockPerformance{},
		Portfolio:          buildPositionReports(snap.positions, prices, history),
		SquaredOff:         buildClosedReports(snap.log, history),
		CashBalance:        snap.account.CashBalance,
	}

	// Positions arrive ordered by ticker ascending, so on equal percentages
	// the first (lowest ticker) wins and the result is stable.
	bestPct := decimal.Zero
	for _, pos := range snap.positions {
		v := domain.ValuePosition(pos, prices[pos.Ticker])
		report.TotalValue = report.TotalValue.Add(v.MarketValue)
		report.TotalProfitLoss = report.TotalProfitLoss.Add(v.ProfitLoss)
		report.Composition = append(report.Composition, domain.CompositionSlice{
			Name:  pos.Ticker,
			Value: v.MarketValue,
		})
		if report.BestPerformer == nil || v.ProfitLossPct.GreaterThan(bestPct) {
			ticker := pos.Ticker
			report.BestPerformer = &ticker
			bestPct = v.ProfitLossPct
		}
	}

	report.StockPerformance = s.stockPerformance(ctx, snap.positions, prices)
	report.PerformanceData = s.performanceTrend(ctx, snap.positions)

	recent, err := s.transactions.ListRecent(ctx, accountID, recentTransactionLimit)
	if err != nil {
		return domain.AnalyticsReport{}, err
	}
	report.RecentTransactions = txnsOrEmpty(recent)

	return report, nil
}

// stockPerformance computes each open ticker's price change over the
// lookback window. Tickers without a historical price report zero.
func (s *PortfolioService) stockPerformance(
	ctx context.Context,
	positions []domain.Position,
	prices map[string]decimal.Decimal,
) []domain.StockPerformance {
	since := s.now().AddDate(0, 0, -stockPerformanceDays)

	perf := make([]domain.StockPerformance, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	for i, pos := range positions {
		g.Go(func() error {
			change := decimal.Zero
			initial, err := s.prices.HistoricalPrice(gctx, pos.Ticker, since)
			if err == nil && !initial.IsZero() {
				change = prices[pos.Ticker].Sub(initial).
					Div(initial).Mul(decimal.NewFromInt(100)).Round(2)
			}
			perf[i] = domain.StockPerformance{Name: pos.Ticker, Performance: change}
			return nil
		})
	}
	_ = g.Wait()
	return perf
}

// performanceTrend values the current holdings at monthly points going back
// performanceMonths, newest first. A ticker without a historical price for a
// point is valued at its average cost for that point.
func (s *PortfolioService) performanceTrend(ctx context.Context, positions []domain.Position) []domain.PerformancePoint {
	now := s.now()

	points := make([]domain.PerformancePoint, performanceMonths)
	g, gctx := errgroup.WithContext(ctx)
	for i := range performanceMonths {
		on := now.AddDate(0, 0, -30*i)
		g.Go(func() error {
			value := decimal.Zero
			for _, pos := range positions {
				price, err := s.prices.HistoricalPrice(gctx, pos.Ticker, on)
				if err != nil {
					price = pos.AvgCost
				}
				value = value.Add(price.Mul(decimal.NewFromInt(pos.Quantity)))
			}
			points[i] = domain.PerformancePoint{Date: on.Format("2006-01-02"), Value: value}
			return nil
		})
	}
	_ = g.Wait()
	return points
}
