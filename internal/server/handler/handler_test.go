package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pvaldes/stockfolio/internal/domain"
	"github.com/pvaldes/stockfolio/internal/server/middleware"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubResolver accepts the token "good" for account "acct-1".
type stubResolver struct{}

func (stubResolver) GetByToken(ctx context.Context, token string) (domain.Account, error) {
	if token != "good" {
		return domain.Account{}, domain.ErrNotFound
	}
	return domain.Account{ID: "acct-1", APIToken: token}, nil
}

// authed routes a request through the auth middleware the way the server does.
func authed(h http.HandlerFunc) http.Handler {
	return middleware.Auth(stubResolver{})(h)
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type stubTradeService struct {
	txn      domain.Transaction
	realized decimal.Decimal
	err      error

	gotAccount string
	gotTicker  string
	gotQty     int64
	gotPrice   decimal.Decimal
}

func (s *stubTradeService) Buy(ctx context.Context, accountID, ticker string, qty int64, price decimal.Decimal) (domain.Transaction, error) {
	s.gotAccount, s.gotTicker, s.gotQty, s.gotPrice = accountID, ticker, qty, price
	return s.txn, s.err
}

func (s *stubTradeService) Sell(ctx context.Context, accountID, ticker string, qty int64, price decimal.Decimal) (domain.Transaction, decimal.Decimal, error) {
	s.gotAccount, s.gotTicker, s.gotQty, s.gotPrice = accountID, ticker, qty, price
	return s.txn, s.realized, s.err
}

type stubPortfolioService struct {
	portfolio domain.PortfolioReport
	analytics domain.AnalyticsReport
	err       error
}

func (s *stubPortfolioService) Portfolio(ctx context.Context, accountID string) (domain.PortfolioReport, error) {
	return s.portfolio, s.err
}

func (s *stubPortfolioService) Analytics(ctx context.Context, accountID string) (domain.AnalyticsReport, error) {
	return s.analytics, s.err
}

type stubPriceSource struct {
	price decimal.Decimal
	err   error
}

func (s stubPriceSource) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	return s.price, s.err
}

func (s stubPriceSource) HistoricalPrice(ctx context.Context, ticker string, on time.Time) (decimal.Decimal, error) {
	return s.price, s.err
}

func TestBuyHandler(t *testing.T) {
	svc := &stubTradeService{txn: domain.Transaction{
		ID:         "t1",
		Ticker:     "AAPL",
		Side:       domain.SideBuy,
		Quantity:   10,
		Price:      decimal.NewFromInt(100),
		ExecutedAt: time.Now().UTC(),
	}}
	h := authed(NewTradeHandler(svc, testLogger()).Buy)

	rec := doJSON(t, h, http.MethodPost, "/api/buy", `{"ticker":"AAPL","quantity":10,"price":"100"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	if svc.gotAccount != "acct-1" || svc.gotTicker != "AAPL" || svc.gotQty != 10 || !svc.gotPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("service call = %s %s %d %s", svc.gotAccount, svc.gotTicker, svc.gotQty, svc.gotPrice)
	}

	var resp struct {
		Message     string             `json:"message"`
		Transaction domain.Transaction `json:"transaction"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message == "" || resp.Transaction.ID != "t1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestBuyHandlerAcceptsNumericPrice(t *testing.T) {
	svc := &stubTradeService{}
	h := authed(NewTradeHandler(svc, testLogger()).Buy)

	rec := doJSON(t, h, http.MethodPost, "/api/buy", `{"ticker":"AAPL","quantity":2,"price":99.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if !svc.gotPrice.Equal(decimal.RequireFromString("99.5")) {
		t.Errorf("price = %s, want 99.5", svc.gotPrice)
	}
}

func TestBuyHandlerMalformedBody(t *testing.T) {
	h := authed(NewTradeHandler(&stubTradeService{}, testLogger()).Buy)

	rec := doJSON(t, h, http.MethodPost, "/api/buy", `{"ticker":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTradeHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"Validation", fmt.Errorf("%w: quantity must be positive", domain.ErrValidation), http.StatusBadRequest},
		{"InsufficientFunds", fmt.Errorf("%w: cost 500 exceeds balance 100", domain.ErrInsufficientFunds), http.StatusBadRequest},
		{"InsufficientPosition", fmt.Errorf("%w: no open position", domain.ErrInsufficientPosition), http.StatusBadRequest},
		{"NotFound", domain.ErrNotFound, http.StatusNotFound},
		{"Internal", fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := authed(NewTradeHandler(&stubTradeService{err: tt.err}, testLogger()).Buy)
			rec := doJSON(t, h, http.MethodPost, "/api/buy", `{"ticker":"AAPL","quantity":1,"price":"1"}`)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body["error"] == "" {
				t.Errorf("missing error field: %s", rec.Body)
			}
			// Storage failures must not leak detail.
			if tt.want == http.StatusInternalServerError && body["error"] != "internal server error" {
				t.Errorf("internal error leaked: %q", body["error"])
			}
		})
	}
}

func TestSellHandlerReturnsRealizedPL(t *testing.T) {
	svc := &stubTradeService{
		txn:      domain.Transaction{ID: "t2", Ticker: "AAPL", Side: domain.SideSell, Quantity: 5, Price: decimal.NewFromInt(150)},
		realized: decimal.NewFromInt(200),
	}
	h := authed(NewTradeHandler(svc, testLogger()).Sell)

	rec := doJSON(t, h, http.MethodPost, "/api/sell", `{"ticker":"AAPL","quantity":5,"price":"150"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		RealizedPL decimal.Decimal `json:"realized_profit_loss"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.RealizedPL.Equal(decimal.NewFromInt(200)) {
		t.Errorf("realized = %s, want 200", resp.RealizedPL)
	}
}

func TestHandlersRequireAuth(t *testing.T) {
	h := authed(NewTradeHandler(&stubTradeService{}, testLogger()).Buy)

	req := httptest.NewRequest(http.MethodPost, "/api/buy", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/buy", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}
}

func TestPortfolioHandler(t *testing.T) {
	svc := &stubPortfolioService{portfolio: domain.PortfolioReport{
		AccountID:   "acct-1",
		CashBalance: decimal.NewFromInt(9000),
		Portfolio:   []domain.PositionReport{},
		SquaredOff:  []domain.ClosedPositionReport{},
	}}
	h := authed(NewPortfolioHandler(svc, testLogger()).Portfolio)

	rec := doJSON(t, h, http.MethodGet, "/api/portfolio", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, key := range []string{"user_id", "cash_balance", "portfolio", "squared_off_positions"} {
		if _, ok := body[key]; !ok {
			t.Errorf("response missing %q: %s", key, rec.Body)
		}
	}
	// Empty lists serialize as [], not null.
	if string(body["portfolio"]) != "[]" {
		t.Errorf("portfolio = %s, want []", body["portfolio"])
	}
}

func TestPortfolioHandlerNotFound(t *testing.T) {
	h := authed(NewPortfolioHandler(&stubPortfolioService{err: domain.ErrNotFound}, testLogger()).Portfolio)

	rec := doJSON(t, h, http.MethodGet, "/api/portfolio", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAnalyticsHandler(t *testing.T) {
	best := "AAPL"
	svc := &stubPortfolioService{analytics: domain.AnalyticsReport{
		TotalValue:         decimal.NewFromInt(2050),
		TotalStocks:        2,
		BestPerformer:      &best,
		RecentTransactions: []domain.Transaction{},
		Composition:        []domain.CompositionSlice{},
		StockPerformance:   []domain.StockPerformance{},
	}}
	h := authed(NewPortfolioHandler(svc, testLogger()).Analytics)

	rec := doJSON(t, h, http.MethodGet, "/api/analytics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, key := range []string{"totalValue", "totalStocks", "totalProfitLoss", "bestPerformer",
		"recentTransactions", "portfolioComposition", "performanceData", "stockPerformance"} {
		if _, ok := body[key]; !ok {
			t.Errorf("response missing %q: %s", key, rec.Body)
		}
	}
	if string(body["bestPerformer"]) != `"AAPL"` {
		t.Errorf("bestPerformer = %s", body["bestPerformer"])
	}
}

func TestQuoteHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /api/stocks/{ticker}/quote",
		authed(NewStockHandler(stubPriceSource{price: decimal.RequireFromString("187.45")}, testLogger()).Quote))

	rec := doJSON(t, mux, http.MethodGet, "/api/stocks/aapl/quote", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		Ticker string          `json:"ticker"`
		Price  decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Ticker != "AAPL" {
		t.Errorf("ticker = %s, want normalized AAPL", resp.Ticker)
	}
	if !resp.Price.Equal(decimal.RequireFromString("187.45")) {
		t.Errorf("price = %s, want 187.45", resp.Price)
	}
}

func TestQuoteHandlerUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /api/stocks/{ticker}/quote",
		authed(NewStockHandler(stubPriceSource{err: domain.ErrPriceUnavailable}, testLogger()).Quote))

	rec := doJSON(t, mux, http.MethodGet, "/api/stocks/AAPL/quote", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
