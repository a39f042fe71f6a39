package domain

import "github.com/shopspring/decimal"

// ProfitLoss pairs an absolute and a percentage P/L figure.
type ProfitLoss struct {
	Dollars decimal.Decimal `json:"dollars"`
	Percent decimal.Decimal `json:"percent"`
}

// PositionReport is one open holding in a portfolio report.
type PositionReport struct {
	Ticker       string          `json:"ticker"`
	Shares       int64           `json:"shares"`
	AveragePrice decimal.Decimal `json:"average_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	TotalValue   decimal.Decimal `json:"total_value"`
	ProfitLoss   ProfitLoss      `json:"profit_loss"`
	Transactions []Transaction   `json:"transactions"`
}

// ClosedPositionReport is one squared-off holding, reconstructed from the
// transaction log.
type ClosedPositionReport struct {
	Ticker        string          `json:"ticker"`
	TotalInvested decimal.Decimal `json:"total_invested"`
	TotalReturned decimal.Decimal `json:"total_returned"`
	ProfitLoss    ProfitLoss      `json:"profit_loss"`
	Transactions  []Transaction   `json:"transactions"`
}

// PortfolioReport is the response of GET /api/portfolio.
type PortfolioReport struct {
	AccountID   string                 `json:"user_id"`
	CashBalance decimal.Decimal        `json:"cash_balance"`
	Portfolio   []PositionReport       `json:"portfolio"`
	SquaredOff  []ClosedPositionReport `json:"squared_off_positions"`
}

// CompositionSlice is one ticker's share of total market value, for charting.
type CompositionSlice struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// PerformancePoint is a point-in-time valuation of the whole portfolio.
type PerformancePoint struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// StockPerformance is one ticker's price change over the lookback window.
type StockPerformance struct {
	Name        string          `json:"name"`
	Performance decimal.Decimal `json:"performance"`
}

// AnalyticsReport is the response of GET /api/analytics.
type AnalyticsReport struct {
	TotalValue         decimal.Decimal        `json:"totalValue"`
	TotalStocks        int                    `json:"totalStocks"`
	TotalProfitLoss    decimal.Decimal        `json:"totalProfitLoss"`
	BestPerformer      *string                `json:"bestPerformer"`
	RecentTransactions []Transaction          `json:"recentTransactions"`
	Composition        []CompositionSlice     `json:"portfolioComposition"`
	PerformanceData    []PerformancePoint     `json:"performanceData"`
	StockPerformance   []StockPerformance     `json:"stockPerformance"`
	Portfolio          []PositionReport       `json:"portfolio"`
	SquaredOff         []ClosedPositionReport `json:"squared_off_positions"`
	CashBalance        decimal.Decimal        `json:"cash_balance"`
}
