package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/arbor/internal/game"
	"github.com/pixil98/arbor/internal/messaging"
	"github.com/pixil98/go-testutil"
)

func TestHub_NewIDUnique(t *testing.T) {
	h := NewHub(newMemBus())

	seen := map[string]bool{}
	for range 500 {
		id := h.NewID()
		testutil.AssertEqual(t, "id length", len(id), 8)
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestHub_RegisterBeforeReady(t *testing.T) {
	h := NewHub(newMemBus())
	s := newSession(h.NewID(), newFakeConn(), 4, time.Second, nopMetrics{})

	err := h.Register(s)
	if !errors.Is(err, ErrHubNotReady) {
		t.Fatalf("expected ErrHubNotReady, got %v", err)
	}
}

type orderedBus struct {
	*memBus
	mu   sync.Mutex
	seqs []uint64
}

func (b *orderedBus) Publish(subject string, m messaging.Message) error {
	b.mu.Lock()
	b.seqs = append(b.seqs, m.Seq)
	b.mu.Unlock()
	return b.memBus.Publish(subject, m)
}

func (b *orderedBus) published() []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uint64(nil), b.seqs...)
}

func TestHub_PublishesInOrder(t *testing.T) {
	bus := &orderedBus{memBus: newMemBus()}
	h := NewHub(bus)

	// events emitted before the hub starts are held until it is ready
	h.Emit(game.Event{Seq: 1, Data: []byte(`{}`)}, game.Event{Seq: 2, Data: []byte(`{}`)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.Start(ctx)
	}()
	<-h.Ready()

	h.Emit(game.Event{Seq: 3, Data: []byte(`{}`)})
	waitFor(t, "publishes", func() bool { return len(bus.published()) == 3 })

	cancel()
	<-done
	testutil.AssertEqual(t, "seqs", bus.published(), []uint64{1, 2, 3})
}

func TestHub_RegisterDeregister(t *testing.T) {
	bus := newMemBus()
	h := NewHub(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.Start(ctx) }()
	<-h.Ready()

	s := newSession(h.NewID(), newFakeConn(), 4, time.Second, nopMetrics{})
	if err := h.Register(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "sessions", h.Len(), 1)
	testutil.AssertEqual(t, "subscribers", bus.subscribers(), 1)

	h.Deregister(s.ID())
	h.Deregister(s.ID())
	testutil.AssertEqual(t, "sessions", h.Len(), 0)
	testutil.AssertEqual(t, "subscribers", bus.subscribers(), 0)
}
