package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pixil98/arbor/internal/game"
	"github.com/pixil98/arbor/internal/messaging"
	"github.com/pixil98/arbor/internal/queue"
)

// Subject is the bus subject every world event is published on.
const Subject = "arbor.world.events"

// Bus is a publish/subscribe transport. *messaging.NatsServer satisfies it.
type Bus interface {
	Ready() <-chan struct{}
	Publish(subject string, m messaging.Message) error
	Subscribe(subject string, handler func(messaging.Message)) (func(), error)
}

// Hub hands out session ids, tracks joined sessions and fans world events
// out to them over the bus.
type Hub struct {
	bus   Bus
	queue *queue.Queue[game.Event]
	ready chan struct{}

	mu       sync.Mutex
	ids      map[string]struct{}
	sessions map[string]*Session
}

func NewHub(bus Bus) *Hub {
	return &Hub{
		bus:      bus,
		queue:    queue.New[game.Event](),
		ready:    make(chan struct{}),
		ids:      map[string]struct{}{},
		sessions: map[string]*Session{},
	}
}

// Emit queues events for publishing. It never blocks, so the world can call
// it with its lock held.
func (h *Hub) Emit(events ...game.Event) {
	h.queue.Push(events...)
}

// Start publishes queued events, in order, once the bus is ready.
func (h *Hub) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-h.bus.Ready():
	}
	close(h.ready)

	for {
		events, err := h.queue.Wait(ctx)
		if err != nil {
			return nil
		}
		for _, e := range events {
			if err := h.bus.Publish(Subject, messaging.Message{Seq: e.Seq, Data: e.Data}); err != nil {
				slog.WarnContext(ctx, "publishing world event", "seq", e.Seq, "error", err)
			}
		}
	}
}

// Ready is closed once sessions can be registered.
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

// NewID reserves a short id no other open connection is using.
func (h *Hub) NewID() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		if _, ok := h.ids[id]; ok {
			continue
		}
		h.ids[id] = struct{}{}
		return id
	}
}

// ReleaseID frees an id reserved by NewID.
func (h *Hub) ReleaseID(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.ids, id)
}

// Register subscribes s to world events.
func (h *Hub) Register(s *Session) error {
	select {
	case <-h.ready:
	default:
		return ErrHubNotReady
	}

	unsub, err := h.bus.Subscribe(Subject, s.deliver)
	if err != nil {
		return fmt.Errorf("subscribing session %s: %w", s.ID(), err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	s.unsub = unsub
	h.sessions[s.ID()] = s
	return nil
}

// Deregister stops delivering events to the session with id. It is safe to
// call more than once.
func (h *Hub) Deregister(id string) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()

	if ok && s.unsub != nil {
		s.unsub()
	}
}

// Len returns the number of registered sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}
