package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cmctracker/internal/fetcher"
	"cmctracker/internal/summary"
)

func testSnapshot(lastUpdated int64, price string) fetcher.Snapshot {
	p := decimal.RequireFromString(price)
	m := decimal.RequireFromString("3000000")
	return fetcher.Snapshot{
		Name:          "Stellar",
		Symbol:        "XLM",
		Rank:          25,
		LastUpdated:   lastUpdated,
		QuoteCurrency: "BTC",
		Quote: fetcher.Quote{
			Price:     &p,
			MarketCap: &m,
		},
		FetchedAt: time.Unix(lastUpdated, 0).UTC(),
	}
}

func newTestStore(t *testing.T, dir string) *FileStore {
	t.Helper()
	return NewFileStore(dir, "XLM", "BTC", zerolog.Nop())
}

func TestFileStoreAppendReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := newTestStore(t, dir)
	loaded, err := store.Open(ctx, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("fresh open returned %d snapshots, want 0", len(loaded))
	}

	for i, price := range []string{"0.00000512", "0.00000530", "0.00000550"} {
		if err := store.Append(ctx, testSnapshot(int64(100+i), price)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	reopened := newTestStore(t, dir)
	loaded, err = reopened.Open(ctx, true)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("resumed with %d snapshots, want 3", len(loaded))
	}
	if loaded[0].LastUpdated != 100 || loaded[2].LastUpdated != 102 {
		t.Fatalf("snapshot order not preserved: %+v", loaded)
	}
	if loaded[2].Quote.Price == nil || !loaded[2].Quote.Price.Equal(decimal.RequireFromString("0.00000550")) {
		t.Fatalf("price did not round-trip: %v", loaded[2].Quote.Price)
	}
}

func TestFileStoreFreshMovesPriorFileAside(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := newTestStore(t, dir)
	if _, err := store.Open(ctx, false); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Append(ctx, testSnapshot(100, "1.00")); err != nil {
		t.Fatalf("append: %v", err)
	}

	fresh := newTestStore(t, dir)
	loaded, err := fresh.Open(ctx, false)
	if err != nil {
		t.Fatalf("fresh open: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("fresh open should start empty, got %d", len(loaded))
	}

	oldPath := filepath.Join(dir, "XLM_BTC", "historical_data_OLD.json")
	payload, err := os.ReadFile(oldPath)
	if err != nil {
		t.Fatalf("prior file should be preserved at %s: %v", oldPath, err)
	}
	if !strings.Contains(string(payload), `"last_updated": 100`) {
		t.Fatalf("moved-aside file lost data: %s", payload)
	}
}

func TestFileStoreResumeWithCorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	marketDir := filepath.Join(dir, "XLM_BTC")
	if err := os.MkdirAll(marketDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(marketDir, "historical_data.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newTestStore(t, dir)
	loaded, err := store.Open(ctx, true)
	if err != nil {
		t.Fatalf("open should tolerate corrupt data: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("corrupt resume should start empty, got %d", len(loaded))
	}
}

func TestFileStoreAppendBeforeOpen(t *testing.T) {
	store := newTestStore(t, t.TempDir())
	if err := store.Append(context.Background(), testSnapshot(100, "1.00")); err != ErrNotOpen {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
}

func TestFileStoreRotate(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := newTestStore(t, dir)
	if _, err := store.Open(ctx, false); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Append(ctx, testSnapshot(100, "1.00")); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := store.Rotate(ctx); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "XLM_BTC", "historical_data.json")); !os.IsNotExist(err) {
		t.Fatal("live file should be gone after rotation")
	}

	entries, err := os.ReadDir(filepath.Join(dir, "XLM_BTC", "archive"))
	if err != nil {
		t.Fatalf("archive dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("archive dir has %d entries, want 1", len(entries))
	}
	name := entries[0].Name()
	if !strings.HasPrefix(name, "historical_data_") || !strings.HasSuffix(name, ".json") {
		t.Fatalf("unexpected archived file name %q", name)
	}

	// Rotating again with no live file is a no-op.
	if err := store.Rotate(ctx); err != nil {
		t.Fatalf("second rotate: %v", err)
	}
}

func TestFileStoreWriteResult(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := newTestStore(t, dir)
	if _, err := store.Open(ctx, false); err != nil {
		t.Fatalf("open: %v", err)
	}

	delta := summary.Delta{
		PriceFirst:     decimal.RequireFromString("0.00000512"),
		PriceLast:      decimal.RequireFromString("0.00000550"),
		PriceDiff:      decimal.RequireFromString("0.00000038"),
		DurationString: "0hours 0.67minutes",
	}
	if err := store.WriteResult(ctx, delta); err != nil {
		t.Fatalf("write result: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "XLM_BTC", "results"))
	if err != nil {
		t.Fatalf("results dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("results dir has %d entries, want 1", len(entries))
	}
	if !strings.HasPrefix(entries[0].Name(), "XLM-BTC_") {
		t.Fatalf("unexpected results file name %q", entries[0].Name())
	}

	payload, err := os.ReadFile(filepath.Join(dir, "XLM_BTC", "results", entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(payload), `"duration_string": "0hours 0.67minutes"`) {
		t.Fatalf("results file missing delta fields: %s", payload)
	}
}
