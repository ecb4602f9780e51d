package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

// Show prints the most recent archived snapshots for a market.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	market := a.Config.ResolveMarket(opts.Market)
	if market == "" {
		return errors.New("no market configured; set tracker.market or pass --market")
	}

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
		fmt.Fprintln(os.Stdout, "no snapshots found")
		return nil
	}

	if opts.Limit > 0 && len(snaps) > opts.Limit {
		snaps = snaps[len(snaps)-opts.Limit:]
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Fetched (UTC)\tLast Updated\tRank\tPrice\tMarket Cap\tVolume 24h")

	for _, snap := range snaps {
		fmt.Fprintf(
			writer,
			"%s\t%d\t%d\t%s\t%s\t%s\n",
			snap.FetchedAt.UTC().Format(time.RFC3339),
			snap.LastUpdated,
			snap.Rank,
			optionalDecimal(snap.Quote.Price, 8),
			optionalDecimal(snap.Quote.MarketCap, 2),
			optionalDecimal(snap.Quote.Volume24h, 2),
		)
	}

	writer.Flush()
	return nil
}

func optionalDecimal(d *decimal.Decimal, places int32) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(places)
}
