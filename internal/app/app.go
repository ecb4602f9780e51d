package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"cmctracker/internal/alerting"
	"cmctracker/internal/archive"
	"cmctracker/internal/config"
	"cmctracker/internal/fetcher"
	"cmctracker/internal/heartbeat"
	"cmctracker/internal/tracker"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() *fetcher.Client {
	return fetcher.NewClient(fetcher.Options{
		BaseURL:   a.Config.CoinMarketCap.BaseURL,
		Timeout:   a.Config.CoinMarketCap.RequestTimeout,
		UserAgent: a.Config.CoinMarketCap.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Slack.Enabled {
		return nil
	}
	cfg := a.Config.Slack
	return alerting.NewSlackNotifier(cfg.Token, cfg.BotUser, cfg.BotIcon, cfg.APIBase, cfg.RequestTimeout, a.Logger)
}

func (a *App) newMonitor() *heartbeat.Monitor {
	cfg := a.Config.Heartbeat
	return heartbeat.New(cfg.PingURL, cfg.Enabled, cfg.Timeout, a.Logger)
}

// openStore selects and initialises the archive backend for a market pair.
func (a *App) openStore(ctx context.Context, market string) (archive.Store, func(), error) {
	trade, quote, err := tracker.ParseMarket(market)
	if err != nil {
		return nil, nil, err
	}

	switch a.Config.Storage.Backend {
	case config.BackendFile:
		store := archive.NewFileStore(a.Config.Tracker.DataDir, trade, quote, a.Logger)
		return store, func() {}, nil

	case config.BackendPostgres:
		pool, err := archive.NewPool(ctx, a.Config.Storage.Database)
		if err != nil {
			return nil, nil, err
		}
		store := archive.NewPostgresStore(pool, trade+"_"+quote, a.Logger)
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", a.Config.Storage.Backend)
	}
}

// RunOptions hold parameters for one tracking run.
type RunOptions struct {
	Market string
	Resume *bool
}

// Run executes one full tracking session.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	market := a.Config.ResolveMarket(opts.Market)
	if market == "" {
		return errors.New("no market configured; set tracker.market or pass --market")
	}

	resume := a.Config.Tracker.Resume
	if opts.Resume != nil {
		resume = *opts.Resume
	}

	store, closeStore, err := a.openStore(ctx, market)
	if err != nil {
		return err
	}
	defer closeStore()

	trk := tracker.New(
		a.newFetcher(),
		store,
		a.newNotifier(),
		a.newMonitor(),
		tracker.Options{
			LoopInterval:  a.Config.Tracker.LoopInterval,
			AlertInterval: a.Config.Tracker.AlertInterval,
			Channel:       a.Config.Slack.Channel,
			ChannelID:     a.Config.Slack.ChannelID,
			Resume:        resume,
		},
		a.Logger,
	)

	if err := trk.SetParameters(ctx, market, a.Config.Tracker.Duration); err != nil {
		return err
	}

	a.Logger.Info().Str("market", market).Msg("starting tracking session")
	err = trk.Track(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("tracking session terminated with error")
		return err
	}

	a.Logger.Info().Msg("tracking session stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Market string
	Limit  int
}

// ExportOptions hold parameters for exporting archived snapshots.
type ExportOptions struct {
	Market    string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SimulateOptions parameterise a simulated end-of-session alert.
type SimulateOptions struct {
	Market     string
	FirstPrice float64
	LastPrice  float64
	Duration   time.Duration
}
