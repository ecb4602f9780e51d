package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked once per loop iteration.
type TickFunc func(ctx context.Context) error

// Options tune loop behaviour.
type Options struct {
	Interval time.Duration
	Deadline time.Time
}

// Loop drives a deadline-bounded polling loop: the tick runs immediately,
// then after every interval, until wall-clock time reaches the deadline.
type Loop struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Loop instance.
func New(opts Options, logger zerolog.Logger) *Loop {
	if opts.Interval <= 0 {
		panic("loop interval must be positive")
	}
	return &Loop{opts: opts, logger: logger.With().Str("component", "loop").Logger()}
}

// Run blocks, invoking the tick function each iteration. It returns nil when
// the deadline passes, or ctx.Err() on cancellation. Tick errors are logged
// and absorbed; nothing a tick does terminates the loop.
func (l *Loop) Run(ctx context.Context, tick TickFunc) error {
	count := 0
	for time.Now().Before(l.opts.Deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}

		count++
		l.logger.Debug().Int("loop_count", count).Msg("executing tick")

		if err := tick(ctx); err != nil {
			l.logger.Error().Err(err).Int("loop_count", count).Msg("tick execution failed")
		}

		remaining := time.Until(l.opts.Deadline)
		l.logger.Debug().
			Str("time_remaining", remaining.Round(time.Second).String()).
			Str("sleep", l.opts.Interval.String()).
			Msg("sleeping until next tick")

		timer := time.NewTimer(l.opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return nil
}
