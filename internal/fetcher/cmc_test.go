package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func tickerPayload(errField any) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"name":         "Stellar",
			"symbol":       "XLM",
			"rank":         25,
			"last_updated": 1527812345,
			"quotes": map[string]any{
				"BTC": map[string]any{
					"price":              0.00000512,
					"volume_24h":         1234.56,
					"market_cap":         98765.43,
					"percent_change_1h":  0.12,
					"percent_change_24h": -1.5,
					"percent_change_7d":  nil,
				},
			},
		},
		"metadata": map[string]any{
			"timestamp": 1527812400,
			"error":     errField,
		},
	}
}

func TestFetchTickerSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/ticker/XLM/") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("convert") != "BTC" {
			t.Fatalf("expected convert=BTC, got %q", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(tickerPayload(nil))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	res := c.FetchTicker(context.Background(), "XLM", "BTC")

	if res.Kind != ResultOk {
		t.Fatalf("expected ok result, got kind %d (err=%v reason=%q)", res.Kind, res.Err, res.Reason)
	}

	snap := res.Snapshot
	if snap.Rank != 25 {
		t.Fatalf("rank = %d, want 25", snap.Rank)
	}
	if snap.LastUpdated != 1527812345 {
		t.Fatalf("last_updated = %d, want 1527812345", snap.LastUpdated)
	}
	if snap.QuoteCurrency != "BTC" {
		t.Fatalf("quote currency = %q, want BTC", snap.QuoteCurrency)
	}
	if snap.Quote.Price == nil || !snap.Quote.Price.Equal(decimal.RequireFromString("0.00000512")) {
		t.Fatalf("price = %v, want 0.00000512", snap.Quote.Price)
	}
	if snap.Quote.PercentChange7d != nil {
		t.Fatalf("percent_change_7d should be absent, got %v", snap.Quote.PercentChange7d)
	}
	if snap.FetchedAt.Unix() != 1527812400 {
		t.Fatalf("fetched_at = %v, want metadata timestamp", snap.FetchedAt)
	}
}

func TestFetchTickerInBandError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tickerPayload("rate limited"))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	res := c.FetchTicker(context.Background(), "XLM", "BTC")

	if res.Kind != ResultInBandError {
		t.Fatalf("expected in-band error, got kind %d", res.Kind)
	}
	if res.Reason != "rate limited" {
		t.Fatalf("reason = %q, want rate limited", res.Reason)
	}
}

func TestFetchTickerHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "slow down"})
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	res := c.FetchTicker(context.Background(), "XLM", "BTC")

	if res.Kind != ResultTransient {
		t.Fatalf("expected transient result, got kind %d", res.Kind)
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), "slow down") {
		t.Fatalf("error should carry api message, got %v", res.Err)
	}
}

func TestFetchTickerMissingQuoteCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tickerPayload(nil))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	res := c.FetchTicker(context.Background(), "XLM", "ETH")

	if res.Kind != ResultTransient {
		t.Fatalf("missing quote currency should be transient, got kind %d", res.Kind)
	}
}

func TestValidateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tickerPayload(nil))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if err := c.Validate(context.Background(), "XLM", "BTC"); err != nil {
		t.Fatalf("validate should succeed: %v", err)
	}
}

func TestValidateRejectsNullPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := tickerPayload(nil)
		payload["data"].(map[string]any)["quotes"].(map[string]any)["BTC"].(map[string]any)["price"] = nil
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if err := c.Validate(context.Background(), "XLM", "BTC"); err == nil {
		t.Fatal("validate should fail when price data is missing")
	}
}

func TestValidateEmptyProducts(t *testing.T) {
	c := NewClient(Options{}, noopLogger())
	if err := c.Validate(context.Background(), "", "BTC"); err == nil {
		t.Fatal("empty trade product should fail validation")
	}
}
