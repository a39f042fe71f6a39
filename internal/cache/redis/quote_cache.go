package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/pvaldes/stockfolio/internal/domain"
)

// QuoteCache implements domain.QuoteCache using Redis hashes. Each ticker's
// quote lives at key "quote:{TICKER}" with fields "price" and "ts" (Unix
// nanoseconds), expiring after the configured TTL so stale quotes fall
// through to the price source.
type QuoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuoteCache creates a QuoteCache backed by the given Client. A zero ttl
// disables expiry.
func NewQuoteCache(c *Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying(), ttl: ttl}
}

func quoteKey(ticker string) string {
	return "quote:" + ticker
}

// SetQuote stores the latest price and quote timestamp for a ticker.
func (qc *QuoteCache) SetQuote(ctx context.Context, ticker string, price decimal.Decimal, ts time.Time) error {
	key := quoteKey(ticker)
	fields := map[string]interface{}{
		"price": price.String(),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := qc.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", ticker, err)
	}
	if qc.ttl > 0 {
		if err := qc.rdb.Expire(ctx, key, qc.ttl).Err(); err != nil {
			return fmt.Errorf("redis: expire quote %s: %w", ticker, err)
		}
	}
	return nil
}

// GetQuote retrieves the cached price and timestamp for a ticker. It returns
// domain.ErrNotFound when the key does not exist or has expired.
func (qc *QuoteCache) GetQuote(ctx context.Context, ticker string) (decimal.Decimal, time.Time, error) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey(ticker)).Result()
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("redis: get quote %s: %w", ticker, err)
	}
	if len(vals) == 0 {
		return decimal.Zero, time.Time{}, domain.ErrNotFound
	}

	priceStr, ok := vals["price"]
	if !ok {
		return decimal.Zero, time.Time{}, domain.ErrNotFound
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("redis: parse quote price %s: %w", ticker, err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return decimal.Zero, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("redis: parse quote ts %s: %w", ticker, err)
	}

	return price, time.Unix(0, tsNano), nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
