package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"cmctracker/internal/alerting"
	"cmctracker/internal/fetcher"
	"cmctracker/internal/format"
	"cmctracker/internal/summary"
	"cmctracker/internal/tracker"
)

// SimulateAlert builds a synthetic two-snapshot session from the given first
// and last prices and pushes the resulting final alert. Useful for verifying
// Slack wiring without waiting out a session.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Slack.Enabled {
		return errors.New("slack alerts are not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	market := a.Config.ResolveMarket(opts.Market)
	trade, quote, err := tracker.ParseMarket(market)
	if err != nil {
		return err
	}

	duration := opts.Duration
	if duration <= 0 {
		duration = time.Hour
	}

	now := time.Now()
	first := syntheticSnapshot(trade, quote, opts.FirstPrice, now.Add(-duration), 1)
	last := syntheticSnapshot(trade, quote, opts.LastPrice, now, 2)

	delta, err := summary.Compute([]fetcher.Snapshot{first, last})
	if err != nil {
		return err
	}

	channelID := a.Config.Slack.ChannelID
	if channelID == "" {
		channelID, err = notifier.ResolveChannel(ctx, a.Config.Slack.Channel)
		if err != nil {
			return err
		}
	}

	formatter := format.New(market, trade, quote, a.Logger)
	_, err = notifier.Notify(ctx, alerting.Message{
		ChannelID: channelID,
		Text:      formatter.FinalMessage(delta),
	})
	return err
}

func syntheticSnapshot(trade, quote string, price float64, ts time.Time, seq int64) fetcher.Snapshot {
	p := decimal.NewFromFloat(price)
	mcap := p.Mul(decimal.NewFromInt(1_000_000))
	return fetcher.Snapshot{
		Name:          trade,
		Symbol:        trade,
		Rank:          1,
		LastUpdated:   ts.Unix() + seq,
		QuoteCurrency: quote,
		Quote: fetcher.Quote{
			Price:     &p,
			MarketCap: &mcap,
		},
		FetchedAt: ts,
	}
}
