package driver

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultTickLength = time.Second * 3
)

type Ticker interface {
	Tick(context.Context) error
}

// Driver fires every tick and runs its tickers in order on a single
// goroutine, so a tick never starts while the previous one is running.
type Driver struct {
	tickLength time.Duration
	tickers    []Ticker
}

func NewDriver(tickers []Ticker, opts ...DriverOpt) *Driver {
	d := &Driver{
		tickLength: DefaultTickLength,
		tickers:    tickers,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *Driver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()

	slog.InfoContext(ctx, "simulation clock started", "tick", d.tickLength)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick runs every ticker once. A failing ticker is logged and does not stop
// the ones after it.
func (d *Driver) Tick(ctx context.Context) {
	for _, t := range d.tickers {
		if err := t.Tick(ctx); err != nil {
			slog.ErrorContext(ctx, "tick failed", "error", err)
		}
	}
}

// TickLength returns the interval between ticks.
func (d *Driver) TickLength() time.Duration {
	return d.tickLength
}
