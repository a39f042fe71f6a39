package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pvaldes/stockfolio/internal/domain"
)

// StockHandler serves single-ticker quote lookups.
type StockHandler struct {
	prices domain.PriceSource
	logger *slog.Logger
}

// NewStockHandler creates a StockHandler with the given price source and logger.
func NewStockHandler(prices domain.PriceSource, logger *slog.Logger) *StockHandler {
	return &StockHandler{prices: prices, logger: logger}
}

type quoteResponse struct {
	Ticker string          `json:"ticker"`
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"as_of"`
}

// Quote returns the current market price for one ticker.
// GET /api/stocks/{ticker}/quote
func (h *StockHandler) Quote(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.PathValue("ticker")))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	price, err := h.prices.CurrentPrice(r.Context(), ticker)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, quoteResponse{
		Ticker: ticker,
		Price:  price,
		AsOf:   time.Now().UTC(),
	})
}
