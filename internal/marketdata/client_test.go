package marketdata

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pvaldes/stockfolio/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, testLogger())
}

func TestCurrentPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/quotes/AAPL" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"AAPL","price":"187.45"}`))
	})

	price, err := c.CurrentPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("CurrentPrice() error = %v", err)
	}
	if price.String() != "187.45" {
		t.Errorf("price = %s, want 187.45", price)
	}
}

func TestCurrentPriceFailures(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"UnknownTicker", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}},
		{"ServerError", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"MalformedBody", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"symbol":`))
		}},
		{"ZeroPrice", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"symbol":"AAPL","price":"0"}`))
		}},
		{"NegativePrice", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"symbol":"AAPL","price":"-1"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.h)
			_, err := c.CurrentPrice(context.Background(), "AAPL")
			if !errors.Is(err, domain.ErrPriceUnavailable) {
				t.Errorf("CurrentPrice() error = %v, want ErrPriceUnavailable", err)
			}
		})
	}
}

func TestHistoricalPrice(t *testing.T) {
	on := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/history/MSFT" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("date"); got != "2026-07-01" {
			t.Errorf("date = %s, want 2026-07-01", got)
		}
		w.Write([]byte(`{"symbol":"MSFT","date":"2026-07-01","close":"411.20"}`))
	})

	price, err := c.HistoricalPrice(context.Background(), "MSFT", on)
	if err != nil {
		t.Fatalf("HistoricalPrice() error = %v", err)
	}
	if price.String() != "411.2" {
		t.Errorf("price = %s, want 411.2", price)
	}
}

func TestCurrentPriceSendsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Api-Key"); got != "secret" {
			t.Errorf("X-Api-Key = %q, want secret", got)
		}
		w.Write([]byte(`{"symbol":"AAPL","price":"1"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "secret", Timeout: 2 * time.Second}, testLogger())
	if _, err := c.CurrentPrice(context.Background(), "AAPL"); err != nil {
		t.Fatalf("CurrentPrice() error = %v", err)
	}
}
