package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"cmctracker/internal/fetcher"
)

// Export renders archived snapshots as CSV and/or a PNG price chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	market := a.Config.ResolveMarket(opts.Market)
	if market == "" {
		return errors.New("no market configured; set tracker.market or pass --market")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx, market)
	if err != nil {
		return err
	}
	defer closeStore()

	snaps, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		a.Logger.Info().Str("market", market).Msg("no snapshots found for export")
		return nil
	}

	downsampled := downsampleSnapshots(snaps, opts.MaxPoints)
	a.Logger.Info().Int("total", len(snaps)).Int("exported", len(downsampled)).Msg("exporting snapshots")

	if opts.CSVPath != "" {
		if err := writeSnapshotsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSnapshotsPNG(opts.PNGPath, market, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleSnapshots(snaps []fetcher.Snapshot, max int) []fetcher.Snapshot {
	if max <= 0 || len(snaps) <= max {
		return snaps
	}

	result := make([]fetcher.Snapshot, 0, max)
	step := float64(len(snaps)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(snaps) {
			idx = len(snaps) - 1
		}
		result = append(result, snaps[idx])
	}
	return result
}

func writeSnapshotsCSV(path string, snaps []fetcher.Snapshot) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"fetched_at", "last_updated", "rank", "price", "volume_24h", "market_cap", "percent_change_1h", "percent_change_24h", "percent_change_7d"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, snap := range snaps {
		record := []string{
			snap.FetchedAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(snap.LastUpdated, 10),
			strconv.Itoa(snap.Rank),
			csvDecimal(snap.Quote.Price),
			csvDecimal(snap.Quote.Volume24h),
			csvDecimal(snap.Quote.MarketCap),
			csvDecimal(snap.Quote.PercentChange1h),
			csvDecimal(snap.Quote.PercentChange24h),
			csvDecimal(snap.Quote.PercentChange7d),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func csvDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func writeSnapshotsPNG(path, market string, snaps []fetcher.Snapshot) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, 0, len(snaps))
	price := make([]float64, 0, len(snaps))
	rank := make([]float64, 0, len(snaps))

	for _, snap := range snaps {
		if snap.Quote.Price == nil {
			continue
		}
		x = append(x, snap.FetchedAt)
		price = append(price, snap.Quote.Price.InexactFloat64())
		rank = append(rank, float64(snap.Rank))
	}

	if len(x) == 0 {
		return errors.New("no priced snapshots to chart")
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.8f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (" + market + ")",
			ValueFormatter: priceFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name: "Rank",
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Price",
				XValues: x,
				YValues: price,
			},
			chart.TimeSeries{
				Name:    "Rank",
				XValues: x,
				YValues: rank,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
