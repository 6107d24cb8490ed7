package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/pixil98/arbor/internal/game"
	"github.com/pixil98/arbor/internal/queue"
)

// Applier writes a single delta to durable storage.
type Applier interface {
	Apply(game.Delta) error
}

// FailureRecorder counts writes that could not be applied.
type FailureRecorder interface {
	PersistFailed()
}

// flushTimeout bounds how long a stopping writer waits for its producers.
const flushTimeout = 5 * time.Second

// Writer applies deltas in the background, in the order they were queued.
// Failed writes are logged and dropped.
type Writer struct {
	store   Applier
	queue   *queue.Queue[game.Delta]
	metrics FailureRecorder
	after   []<-chan struct{}
}

func NewWriter(store Applier, metrics FailureRecorder) *Writer {
	return &Writer{
		store:   store,
		queue:   queue.New[game.Delta](),
		metrics: metrics,
	}
}

// FlushAfter delays the final flush on shutdown until done is closed, so
// changes made while other workers wind down are still written. It must be
// called before Start.
func (w *Writer) FlushAfter(done <-chan struct{}) {
	w.after = append(w.after, done)
}

// Enqueue queues deltas for writing. It never blocks.
func (w *Writer) Enqueue(deltas ...game.Delta) {
	w.queue.Push(deltas...)
}

// Start applies queued deltas until ctx is done, then writes whatever is
// still queued.
func (w *Writer) Start(ctx context.Context) error {
	for {
		deltas, err := w.queue.Wait(ctx)
		if err != nil {
			w.flush(context.WithoutCancel(ctx))
			return nil
		}
		w.apply(ctx, deltas)
	}
}

func (w *Writer) flush(ctx context.Context) {
	waitCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	for _, done := range w.after {
		select {
		case <-done:
		case <-waitCtx.Done():
		}
	}
	if waitCtx.Err() != nil {
		slog.WarnContext(ctx, "flushing world changes before every producer stopped")
	}
	w.apply(ctx, w.queue.Drain())
}

func (w *Writer) apply(ctx context.Context, deltas []game.Delta) {
	for _, d := range deltas {
		if err := w.store.Apply(d); err != nil {
			slog.WarnContext(ctx, "persisting world change", "delta", deltaName(d), "error", err)
			if w.metrics != nil {
				w.metrics.PersistFailed()
			}
		}
	}
}

func deltaName(d game.Delta) string {
	switch d.(type) {
	case game.PutCreature:
		return "put_creature"
	case game.DeleteCreature:
		return "delete_creature"
	case game.DeleteAllFauna:
		return "delete_all_fauna"
	case game.PutFood:
		return "put_food"
	case game.DeleteFood:
		return "delete_food"
	case game.DeleteAllFood:
		return "delete_all_food"
	case game.PutTiles:
		return "put_tiles"
	case game.PutUser:
		return "put_user"
	default:
		return "unknown"
	}
}
