package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cmctracker/internal/format"
	"cmctracker/internal/summary"
	"cmctracker/internal/tracker"
)

// Summarize computes and prints the first-vs-last delta for a market's
// current archive without running a session.
func (a *App) Summarize(ctx context.Context, market string) error {
	market = a.Config.ResolveMarket(market)
	if market == "" {
		return errors.New("no market configured; set tracker.market or pass --market")
	}

	trade, quote, err := tracker.ParseMarket(market)
	if err != nil {
		return err
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

	delta, err := summary.Compute(snaps)
	if err != nil {
		return fmt.Errorf("summarize %s: %w", market, err)
	}

	formatter := format.New(market, trade, quote, a.Logger)
	fmt.Fprintln(os.Stdout, formatter.FinalMessage(delta))
	return nil
}
