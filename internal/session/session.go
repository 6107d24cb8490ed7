package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pixil98/arbor/internal/messaging"
)

const (
	DefaultSendBuffer   = 256
	DefaultWriteTimeout = 10 * time.Second
)

type outbound struct {
	seq    uint64
	direct bool
	data   []byte
}

// Session is one websocket connection. Broadcasts and direct replies are
// queued on a bounded buffer and written by a single pump goroutine; a
// session that cannot keep up is closed.
type Session struct {
	id           string
	conn         Conn
	send         chan outbound
	writeTimeout time.Duration
	metrics      Metrics

	// broadcasts with a sequence number at or below after are already
	// reflected in a snapshot the client holds
	after atomic.Uint64

	unsub func()

	done     chan struct{}
	closeErr error
	once     sync.Once
}

func newSession(id string, conn Conn, buffer int, writeTimeout time.Duration, metrics Metrics) *Session {
	return &Session{
		id:           id,
		conn:         conn,
		send:         make(chan outbound, buffer),
		writeTimeout: writeTimeout,
		metrics:      metrics,
		done:         make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Done is closed once the session has been closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// deliver queues a broadcast without blocking.
func (s *Session) deliver(m messaging.Message) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.send <- outbound{seq: m.Seq, data: m.Data}:
	default:
		s.metrics.BroadcastDropped()
		s.kick()
	}
}

// Reply queues a message for this session only, without blocking. Any
// broadcast up to seq is dropped, since the reply already reflects it.
// Reply is safe to call under the world lock: when the buffer is full it
// returns ErrSlowConsumer and leaves closing the session to the caller.
func (s *Session) Reply(seq uint64, data []byte) error {
	for {
		cur := s.after.Load()
		if seq <= cur || s.after.CompareAndSwap(cur, seq) {
			break
		}
	}

	select {
	case s.send <- outbound{direct: true, data: data}:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// kick closes a session that fell behind.
func (s *Session) kick() {
	s.close(websocket.ClosePolicyViolation, ErrSlowConsumer)
}

// write sends data immediately. It must not be called once the pump runs.
func (s *Session) write(data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case m := <-s.send:
			if !m.direct && m.seq <= s.after.Load() {
				continue
			}
			if err := s.write(m.data); err != nil {
				s.close(websocket.CloseInternalServerErr, fmt.Errorf("writing message: %w", err))
				return
			}
		}
	}
}

// close sends a close frame and closes the connection. Only the first call
// has any effect.
func (s *Session) close(code int, reason error) {
	s.once.Do(func() {
		s.closeErr = reason
		close(s.done)

		if reason != nil && !errors.Is(reason, ErrSessionClosed) {
			slog.Warn("closing session", "session", s.id, "reason", reason)
		}

		msg := websocket.FormatCloseMessage(code, "")
		if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.writeTimeout)); err != nil {
			slog.Debug("writing close frame", "session", s.id, "error", err)
		}
		if err := s.conn.Close(); err != nil {
			slog.Debug("closing connection", "session", s.id, "error", err)
		}
	})
}

// Err returns why the session was closed, if it was.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.closeErr
	default:
		return nil
	}
}
