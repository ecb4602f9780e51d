package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunStopsAtDeadline(t *testing.T) {
	loop := New(Options{
		Interval: 5 * time.Millisecond,
		Deadline: time.Now().Add(40 * time.Millisecond),
	}, zerolog.Nop())

	ticks := 0
	err := loop.Run(context.Background(), func(ctx context.Context) error {
		ticks++
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if ticks < 2 {
		t.Fatalf("expected multiple ticks before the deadline, got %d", ticks)
	}
}

func TestRunSkipsExpiredDeadline(t *testing.T) {
	loop := New(Options{
		Interval: 5 * time.Millisecond,
		Deadline: time.Now().Add(-time.Second),
	}, zerolog.Nop())

	err := loop.Run(context.Background(), func(ctx context.Context) error {
		t.Fatal("tick must not run past the deadline")
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunAbsorbsTickErrors(t *testing.T) {
	loop := New(Options{
		Interval: 5 * time.Millisecond,
		Deadline: time.Now().Add(30 * time.Millisecond),
	}, zerolog.Nop())

	ticks := 0
	err := loop.Run(context.Background(), func(ctx context.Context) error {
		ticks++
		return errors.New("boom")
	})
	if err != nil {
		t.Fatalf("tick errors must not terminate the loop: %v", err)
	}
	if ticks < 2 {
		t.Fatalf("loop should continue after tick errors, got %d ticks", ticks)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	loop := New(Options{
		Interval: 5 * time.Millisecond,
		Deadline: time.Now().Add(time.Hour),
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	err := loop.Run(ctx, func(ctx context.Context) error {
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-positive interval")
		}
	}()
	New(Options{Interval: 0, Deadline: time.Now()}, zerolog.Nop())
}
