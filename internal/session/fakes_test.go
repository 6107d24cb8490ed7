package session

import (
	"errors"
	"sync"
	"time"

	"github.com/pixil98/arbor/internal/game"
	"github.com/pixil98/arbor/internal/messaging"
)

// memBus is an in-process Bus that delivers synchronously.
type memBus struct {
	mu    sync.Mutex
	subs  map[int]func(messaging.Message)
	next  int
	ready chan struct{}
}

func newMemBus() *memBus {
	b := &memBus{subs: map[int]func(messaging.Message){}, ready: make(chan struct{})}
	close(b.ready)
	return b
}

func (b *memBus) Ready() <-chan struct{} {
	return b.ready
}

func (b *memBus) Publish(_ string, m messaging.Message) error {
	b.mu.Lock()
	subs := make([]func(messaging.Message), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(m)
	}
	return nil
}

func (b *memBus) Subscribe(_ string, handler func(messaging.Message)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs[id] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}, nil
}

func (b *memBus) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

type recordingWrites struct {
	mu     sync.Mutex
	deltas []game.Delta
}

func (r *recordingWrites) Enqueue(deltas ...game.Delta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, deltas...)
}

func (r *recordingWrites) users() []game.UserRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []game.UserRecord
	for _, d := range r.deltas {
		if u, ok := d.(game.PutUser); ok {
			out = append(out, u.User)
		}
	}
	return out
}

type fakePositions map[string]game.Vec

func (f fakePositions) PlayerPosition(name string) (game.Vec, bool, error) {
	v, ok := f[name]
	return v, ok, nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	opened   int
	closed   int
	commands map[string]int
	dropped  int
}

func (m *fakeMetrics) SessionOpened() { m.mu.Lock(); m.opened++; m.mu.Unlock() }
func (m *fakeMetrics) SessionClosed() { m.mu.Lock(); m.closed++; m.mu.Unlock() }
func (m *fakeMetrics) BroadcastDropped() {
	m.mu.Lock()
	m.dropped++
	m.mu.Unlock()
}
func (m *fakeMetrics) CommandHandled(typ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commands == nil {
		m.commands = map[string]int{}
	}
	m.commands[typ]++
}

var errConnClosed = errors.New("use of closed connection")

// fakeConn records writes. Reads block until the connection is closed.
type fakeConn struct {
	mu       sync.Mutex
	written  [][]byte
	controls int
	closed   chan struct{}
	once     sync.Once
	writeErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errConnClosed
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) WriteControl(int, []byte, time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls++
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error {
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) writes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.written))
	for i, w := range c.written {
		out[i] = string(w)
	}
	return out
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// blockingCloseConn holds the close frame until release is closed.
type blockingCloseConn struct {
	*fakeConn
	entered chan struct{}
	release chan struct{}
}

func newBlockingCloseConn() *blockingCloseConn {
	return &blockingCloseConn{
		fakeConn: newFakeConn(),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (c *blockingCloseConn) WriteControl(typ int, data []byte, deadline time.Time) error {
	close(c.entered)
	<-c.release
	return c.fakeConn.WriteControl(typ, data, deadline)
}

// stallingConn sends join as its first message, accepts allowed writes and
// then blocks every further write until the connection is closed, like a
// client that stopped reading.
type stallingConn struct {
	*fakeConn
	join    []byte
	allowed int
	reads   int
}

func newStallingConn(join string, allowed int) *stallingConn {
	return &stallingConn{fakeConn: newFakeConn(), join: []byte(join), allowed: allowed}
}

func (c *stallingConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	c.reads++
	first := c.reads == 1
	c.mu.Unlock()

	if first {
		return 1, c.join, nil
	}
	return c.fakeConn.ReadMessage()
}

func (c *stallingConn) WriteMessage(typ int, data []byte) error {
	c.mu.Lock()
	if len(c.written) < c.allowed {
		c.written = append(c.written, data)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	<-c.closed
	return errConnClosed
}
