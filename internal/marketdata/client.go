// Package marketdata implements domain.PriceSource against an external
// HTTP quote API.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/pvaldes/stockfolio/internal/domain"
)

// Config holds connection parameters for the quote API.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Debug   bool
}

// Client fetches current and historical prices over HTTP.
type Client struct {
	client *resty.Client
	logger *slog.Logger
}

// New creates a Client for the configured quote API.
func New(cfg Config, logger *slog.Logger) *Client {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetDebug(cfg.Debug).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		c.SetHeader("X-Api-Key", cfg.APIKey)
	}
	return &Client{client: c, logger: logger}
}

type quoteResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

type historyResponse struct {
	Symbol string          `json:"symbol"`
	Date   string          `json:"date"`
	Close  decimal.Decimal `json:"close"`
}

// CurrentPrice returns the latest trade price for ticker. Unknown tickers
// and upstream failures map to domain.ErrPriceUnavailable so callers can
// degrade per ticker.
func (c *Client) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("ticker", ticker).
		Get("/v1/quotes/{ticker}")
	if err != nil {
		c.logger.WarnContext(ctx, "marketdata: quote request failed",
			slog.String("ticker", ticker),
			slog.String("error", err.Error()),
		)
		return decimal.Zero, fmt.Errorf("marketdata: quote %s: %w", ticker, domain.ErrPriceUnavailable)
	}
	if resp.StatusCode() != http.StatusOK {
		return decimal.Zero, fmt.Errorf("marketdata: quote %s: status %d: %w",
			ticker, resp.StatusCode(), domain.ErrPriceUnavailable)
	}

	var q quoteResponse
	if err := json.Unmarshal(resp.Body(), &q); err != nil {
		return decimal.Zero, fmt.Errorf("marketdata: decode quote %s: %w", ticker, domain.ErrPriceUnavailable)
	}
	if q.Price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("marketdata: quote %s: non-positive price: %w", ticker, domain.ErrPriceUnavailable)
	}
	return q.Price, nil
}

// HistoricalPrice returns the closing price for ticker on the given date.
func (c *Client) HistoricalPrice(ctx context.Context, ticker string, on time.Time) (decimal.Decimal, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("ticker", ticker).
		SetQueryParam("date", on.Format("2006-01-02")).
		Get("/v1/history/{ticker}")
	if err != nil {
		c.logger.WarnContext(ctx, "marketdata: history request failed",
			slog.String("ticker", ticker),
			slog.String("error", err.Error()),
		)
		return decimal.Zero, fmt.Errorf("marketdata: history %s: %w", ticker, domain.ErrPriceUnavailable)
	}
	if resp.StatusCode() != http.StatusOK {
		return decimal.Zero, fmt.Errorf("marketdata: history %s: status %d: %w",
			ticker, resp.StatusCode(), domain.ErrPriceUnavailable)
	}

	var h historyResponse
	if err := json.Unmarshal(resp.Body(), &h); err != nil {
		return decimal.Zero, fmt.Errorf("marketdata: decode history %s: %w", ticker, domain.ErrPriceUnavailable)
	}
	if h.Close.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("marketdata: history %s: non-positive close: %w", ticker, domain.ErrPriceUnavailable)
	}
	return h.Close, nil
}

// Compile-time interface check.
var _ domain.PriceSource = (*Client)(nil)
