package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pvaldes/stockfolio/internal/domain"
)

type stubSource struct {
	price decimal.Decimal
	err   error
	calls int
}

func (s *stubSource) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	s.calls++
	return s.price, s.err
}

func (s *stubSource) HistoricalPrice(ctx context.Context, ticker string, on time.Time) (decimal.Decimal, error) {
	s.calls++
	return s.price, s.err
}

type stubCache struct {
	quotes map[string]decimal.Decimal
	setErr error
	sets   int
}

func newStubCache() *stubCache {
	return &stubCache{quotes: make(map[string]decimal.Decimal)}
}

func (c *stubCache) GetQuote(ctx context.Context, ticker string) (decimal.Decimal, time.Time, error) {
	p, ok := c.quotes[ticker]
	if !ok {
		return decimal.Zero, time.Time{}, domain.ErrNotFound
	}
	return p, time.Now(), nil
}

func (c *stubCache) SetQuote(ctx context.Context, ticker string, price decimal.Decimal, ts time.Time) error {
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.quotes[ticker] = price
	return nil
}

func TestCachedSourceHitSkipsUpstream(t *testing.T) {
	cache := newStubCache()
	cache.quotes["AAPL"] = decimal.NewFromInt(187)
	source := &stubSource{price: decimal.NewFromInt(999)}

	c := NewCachedSource(source, cache, testLogger())
	price, err := c.CurrentPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("CurrentPrice() error = %v", err)
	}
	if !price.Equal(decimal.NewFromInt(187)) {
		t.Errorf("price = %s, want cached 187", price)
	}
	if source.calls != 0 {
		t.Errorf("upstream calls = %d, want 0", source.calls)
	}
}

func TestCachedSourceMissFetchesAndWritesBack(t *testing.T) {
	cache := newStubCache()
	source := &stubSource{price: decimal.NewFromInt(187)}

	c := NewCachedSource(source, cache, testLogger())
	price, err := c.CurrentPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("CurrentPrice() error = %v", err)
	}
	if !price.Equal(decimal.NewFromInt(187)) {
		t.Errorf("price = %s, want 187", price)
	}
	if source.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", source.calls)
	}
	if got, ok := cache.quotes["AAPL"]; !ok || !got.Equal(decimal.NewFromInt(187)) {
		t.Errorf("cache not written back: %v", cache.quotes)
	}
}

func TestCachedSourceCacheWriteFailureIsNonFatal(t *testing.T) {
	cache := newStubCache()
	cache.setErr = errors.New("redis down")
	source := &stubSource{price: decimal.NewFromInt(187)}

	c := NewCachedSource(source, cache, testLogger())
	price, err := c.CurrentPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("CurrentPrice() error = %v", err)
	}
	if !price.Equal(decimal.NewFromInt(187)) {
		t.Errorf("price = %s, want 187", price)
	}
}

func TestCachedSourcePropagatesSourceError(t *testing.T) {
	cache := newStubCache()
	source := &stubSource{err: domain.ErrPriceUnavailable}

	c := NewCachedSource(source, cache, testLogger())
	if _, err := c.CurrentPrice(context.Background(), "AAPL"); !errors.Is(err, domain.ErrPriceUnavailable) {
		t.Fatalf("CurrentPrice() error = %v, want ErrPriceUnavailable", err)
	}
	if cache.sets != 0 {
		t.Errorf("cache writes = %d, want 0", cache.sets)
	}
}
