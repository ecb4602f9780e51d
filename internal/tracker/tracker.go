package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cmctracker/internal/alerting"
	"cmctracker/internal/archive"
	"cmctracker/internal/fetcher"
	"cmctracker/internal/format"
	"cmctracker/internal/scheduler"
	"cmctracker/internal/summary"
)

// State names the tracker lifecycle phases.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateRunning
	StateFinalizing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateRunning:
		return "running"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Fetcher abstracts the ticker client for the session loop.
type Fetcher interface {
	FetchTicker(ctx context.Context, trade, quote string) fetcher.Result
	Validate(ctx context.Context, trade, quote string) error
}

// Heartbeat abstracts the liveness reporter.
type Heartbeat interface {
	Enable(ctx context.Context)
	Disable(ctx context.Context)
	Ping(ctx context.Context, label string)
}

// Options tune one tracking session.
type Options struct {
	LoopInterval  time.Duration
	AlertInterval time.Duration
	Channel       string
	ChannelID     string
	Resume        bool
}

// Tracker runs one tracking session for one trade/quote market pair: fetch,
// filter, archive, conditionally alert, and summarize at the wall-clock
// deadline. One market per instance; instances share no state.
type Tracker struct {
	fetcher  Fetcher
	store    archive.Store
	notifier alerting.Notifier
	monitor  Heartbeat
	opts     Options
	logger   zerolog.Logger

	state     State
	market    string
	trade     string
	quote     string
	endTime   time.Time
	channelID string
	formatter *format.Formatter

	thread        string
	firstAlerted  bool
	lastAlert     time.Time
	newDataReady  bool
	acceptedCount int
}

// New constructs a tracker. The notifier may be nil when alerts are disabled;
// the monitor must be non-nil (use a disabled heartbeat.Monitor).
func New(f Fetcher, store archive.Store, notifier alerting.Notifier, monitor Heartbeat, opts Options, logger zerolog.Logger) *Tracker {
	return &Tracker{
		fetcher:  f,
		store:    store,
		notifier: notifier,
		monitor:  monitor,
		opts:     opts,
		logger:   logger.With().Str("component", "tracker").Logger(),
		state:    StateIdle,
	}
}

// State reports the current lifecycle phase.
func (t *Tracker) State() State {
	return t.state
}

// ParseMarket splits a "TRADE/QUOTE" market name into upper-cased products.
func ParseMarket(market string) (string, string, error) {
	parts := strings.Split(market, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid market %q; expected TRADE/QUOTE", market)
	}
	return strings.ToUpper(parts[0]), strings.ToUpper(parts[1]), nil
}

// SetParameters validates the market pair against the provider, fixes the
// session deadline, resolves the alert channel, and initialises the archive.
// Any failure keeps the tracker in Idle and is reported to the caller.
func (t *Tracker) SetParameters(ctx context.Context, market string, duration time.Duration) error {
	if t.state != StateIdle {
		return fmt.Errorf("cannot set parameters in state %s", t.state)
	}

	trade, quote, err := ParseMarket(market)
	if err != nil {
		return err
	}

	t.state = StateValidating

	if err := t.fetcher.Validate(ctx, trade, quote); err != nil {
		t.logger.Error().Err(err).Str("market", market).Msg("market validation failed")
		t.state = StateIdle
		return fmt.Errorf("validate market %s: %w", market, err)
	}

	t.market = market
	t.trade = trade
	t.quote = quote
	t.endTime = time.Now().Add(duration)
	t.formatter = format.New(market, trade, quote, t.logger)

	if t.notifier != nil {
		channelID := t.opts.ChannelID
		if channelID == "" {
			channelID, err = t.notifier.ResolveChannel(ctx, t.opts.Channel)
			if err != nil {
				t.logger.Error().Err(err).Str("channel", t.opts.Channel).Msg("failed to resolve alert channel")
				t.state = StateIdle
				return fmt.Errorf("resolve alert channel: %w", err)
			}
		}
		t.channelID = channelID
	}

	if _, err := t.store.Open(ctx, t.opts.Resume); err != nil {
		t.logger.Error().Err(err).Msg("failed to initialise archive")
		t.state = StateIdle
		return fmt.Errorf("open archive: %w", err)
	}

	t.logger.Info().
		Str("market", market).
		Time("end_time", t.endTime).
		Msg("tracking session configured")

	t.state = StateRunning
	return nil
}

// Track runs the session loop until the deadline, then finalizes. The loop
// exits only on the wall-clock deadline or context cancellation; every
// per-tick failure is absorbed.
func (t *Tracker) Track(ctx context.Context) error {
	if t.state != StateRunning {
		return fmt.Errorf("cannot track in state %s", t.state)
	}

	t.monitor.Enable(ctx)
	defer t.monitor.Disable(context.Background())

	loop := scheduler.New(scheduler.Options{
		Interval: t.opts.LoopInterval,
		Deadline: t.endTime,
	}, t.logger)

	runErr := loop.Run(ctx, t.tick)

	t.state = StateFinalizing
	t.finalize()
	t.state = StateDone

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// tick performs one fetch/filter/archive/alert pass. It never returns an
// error that should stop the loop; the error return feeds loop logging only.
func (t *Tracker) tick(ctx context.Context) error {
	t.monitor.Ping(ctx, "Quote Check: "+t.market)

	res := t.fetcher.FetchTicker(ctx, t.trade, t.quote)
	switch res.Kind {
	case fetcher.ResultTransient:
		t.logger.Warn().Err(res.Err).Msg("transient fetch failure; discarding tick")
		return nil
	case fetcher.ResultInBandError:
		t.logger.Error().Str("error", res.Reason).Msg("provider metadata indicates an error; not adding to historical data")
		return nil
	}

	snap := res.Snapshot

	if t.isNovel(snap) {
		if err := t.store.Append(ctx, snap); err != nil {
			t.logger.Error().Err(err).Msg("failed to persist snapshot")
		}
		t.acceptedCount++
		t.newDataReady = true

		if !t.firstAlerted {
			t.sendFirstAlert(ctx, snap)
			return nil
		}
	} else {
		t.logger.Debug().Int64("last_updated", snap.LastUpdated).Msg("no new data available; skipping append")
	}

	if t.newDataReady && time.Since(t.lastAlert) > t.opts.AlertInterval {
		t.sendQuoteAlert(ctx, snap)
	}

	return nil
}

// isNovel applies the dedup policy: the first fetch of a session is always
// accepted; afterwards only a strictly newer provider timestamp counts.
func (t *Tracker) isNovel(snap fetcher.Snapshot) bool {
	if t.acceptedCount == 0 {
		return true
	}
	snaps := t.store.Snapshots()
	if len(snaps) == 0 {
		return true
	}
	return snap.LastUpdated > snaps[len(snaps)-1].LastUpdated
}

func (t *Tracker) sendFirstAlert(ctx context.Context, snap fetcher.Snapshot) {
	text := fmt.Sprintf("*_Started tracking %s at %s._*\n", snap.Name, time.Now().Format(time.RFC1123))
	text += fmt.Sprintf("_Tracking product until %s._\n\n", t.endTime.Format(time.RFC1123))
	text += t.formatter.QuoteMessage(snap)

	ts, delivered := t.deliver(ctx, text)
	if delivered && ts != "" {
		// Follow-up alerts reply in the thread opened by this message.
		t.thread = ts
	}

	t.firstAlerted = true
	t.lastAlert = time.Now()
	t.newDataReady = false
}

func (t *Tracker) sendQuoteAlert(ctx context.Context, snap fetcher.Snapshot) {
	remaining := time.Until(t.endTime).Minutes()
	text := t.formatter.QuoteMessage(snap)
	text += fmt.Sprintf("\n\n*_Tracking time remaining:_* %.2f min", remaining)

	t.deliver(ctx, text)

	t.lastAlert = time.Now()
	t.newDataReady = false
}

func (t *Tracker) sendFinalAlert(ctx context.Context, delta summary.Delta) {
	t.deliver(ctx, t.formatter.FinalMessage(delta))
}

// deliver pushes one message; notifier failures are logged and absorbed.
func (t *Tracker) deliver(ctx context.Context, text string) (string, bool) {
	if t.notifier == nil || t.channelID == "" {
		return "", false
	}

	ts, err := t.notifier.Notify(ctx, alerting.Message{
		ChannelID: t.channelID,
		Text:      text,
		ThreadID:  t.thread,
		Broadcast: true,
	})
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to deliver alert")
		return "", false
	}
	return ts, true
}

// finalize summarizes the session and always rotates the archive, even when
// summarization is skipped or fails.
func (t *Tracker) finalize() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	defer func() {
		if err := t.store.Rotate(ctx); err != nil {
			t.logger.Error().Err(err).Msg("failed to rotate archive")
		}
	}()

	snaps := t.store.Snapshots()
	if len(snaps) < 2 {
		t.logger.Warn().Int("archived", len(snaps)).Msg("fewer than 2 updates archived; skipping final analysis")
		return
	}

	delta, err := summary.Compute(snaps)
	if err != nil {
		t.logger.Warn().Err(err).Msg("failed to prepare final results; skipping final alert")
		return
	}

	if err := t.store.WriteResult(ctx, delta); err != nil {
		t.logger.Error().Err(err).Msg("failed to write results record")
	}

	t.sendFinalAlert(ctx, delta)

	t.logger.Info().
		Str("duration", delta.DurationString).
		Str("price_difference", delta.PriceDiff.String()).
		Int("rank_difference", delta.RankDiff).
		Msg("tracking session complete")
}
