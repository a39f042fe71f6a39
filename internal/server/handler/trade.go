package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/pvaldes/stockfolio/internal/domain"
	"github.com/pvaldes/stockfolio/internal/server/middleware"
)

// TradeService defines the methods the trade handler requires.
type TradeService interface {
	Buy(ctx context.Context, accountID, ticker string, qty int64, price decimal.Decimal) (domain.Transaction, error)
	Sell(ctx context.Context, accountID, ticker string, qty int64, price decimal.Decimal) (domain.Transaction, decimal.Decimal, error)
}

// TradeHandler serves the buy and sell endpoints.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given service and logger.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

// tradeRequest is the shared request body of POST /api/buy and /api/sell.
// Price accepts both a JSON number and a quoted decimal string.
type tradeRequest struct {
	Ticker   string          `json:"ticker"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type buyResponse struct {
	Message     string             `json:"message"`
	Transaction domain.Transaction `json:"transaction"`
}

type sellResponse struct {
	Message     string             `json:"message"`
	Transaction domain.Transaction `json:"transaction"`
	RealizedPL  decimal.Decimal    `json:"realized_profit_loss"`
}

// Buy executes a buy for the authenticated account.
// POST /api/buy
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	accountID := middleware.AccountID(r.Context())
	txn, err := h.trades.Buy(r.Context(), accountID, req.Ticker, req.Quantity, req.Price)
	if err != nil {
		h.logError(r, "buy", req.Ticker, err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, buyResponse{
		Message:     "stock bought successfully",
		Transaction: txn,
	})
}

// Sell executes a sell for the authenticated account. The acknowledgement
// carries the realized profit/loss of the sold lot.
// POST /api/sell
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	accountID := middleware.AccountID(r.Context())
	txn, realized, err := h.trades.Sell(r.Context(), accountID, req.Ticker, req.Quantity, req.Price)
	if err != nil {
		h.logError(r, "sell", req.Ticker, err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sellResponse{
		Message:     "stock sold successfully",
		Transaction: txn,
		RealizedPL:  realized,
	})
}

func (h *TradeHandler) logError(r *http.Request, op, ticker string, err error) {
	// Business-rule rejections are expected traffic; only log real failures.
	if errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInsufficientFunds) ||
		errors.Is(err, domain.ErrInsufficientPosition) ||
		errors.Is(err, domain.ErrNotFound) {
		return
	}
	h.logger.ErrorContext(r.Context(), "handler: trade failed",
		slog.String("op", op),
		slog.String("ticker", ticker),
		slog.String("error", err.Error()),
	)
}
