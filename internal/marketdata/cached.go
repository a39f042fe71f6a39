package marketdata

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pvaldes/stockfolio/internal/domain"
)

// CachedSource decorates a PriceSource with a quote cache. Current-price
// lookups hit the cache first; misses fall through to the source and are
// written back. Historical prices are not cached — they are already
// immutable upstream and the analytics path asks for few of them.
type CachedSource struct {
	source domain.PriceSource
	cache  domain.QuoteCache
	logger *slog.Logger
}

// NewCachedSource wraps source with cache.
func NewCachedSource(source domain.PriceSource, cache domain.QuoteCache, logger *slog.Logger) *CachedSource {
	return &CachedSource{source: source, cache: cache, logger: logger}
}

// CurrentPrice returns the cached quote when present, otherwise fetches from
// the underlying source and stores the result. Cache failures are logged and
// ignored; the cache must never make a price lookup fail.
func (c *CachedSource) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if price, _, err := c.cache.GetQuote(ctx, ticker); err == nil {
		return price, nil
	}

	price, err := c.source.CurrentPrice(ctx, ticker)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.cache.SetQuote(ctx, ticker, price, time.Now().UTC()); err != nil {
		c.logger.WarnContext(ctx, "marketdata: quote cache write failed",
			slog.String("ticker", ticker),
			slog.String("error", err.Error()),
		)
	}
	return price, nil
}

// HistoricalPrice delegates to the underlying source.
func (c *CachedSource) HistoricalPrice(ctx context.Context, ticker string, on time.Time) (decimal.Decimal, error) {
	return c.source.HistoricalPrice(ctx, ticker, on)
}

// Compile-time interface check.
var _ domain.PriceSource = (*CachedSource)(nil)
