package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pixil98/arbor/internal/game"
	"github.com/pixil98/go-service"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultAdultAge is one second past the default Young threshold.
	DefaultAdultAge = 301

	spawnMinX, spawnMaxX = 50, 750
	spawnMinY, spawnMaxY = 50, 550

	resetAdults = 3
)

// Handler runs websocket sessions against the world: the join handshake,
// command dispatch and disconnect cleanup.
type Handler struct {
	world *game.WorldState
	hub   *Hub
	store PositionStore

	rand         Rand
	adultAge     float64
	sendBuffer   int
	writeTimeout time.Duration
	metrics      Metrics
	tracer       trace.Tracer
}

func NewHandler(world *game.WorldState, hub *Hub, store PositionStore, opts ...HandlerOpt) *Handler {
	h := &Handler{
		world:        world,
		hub:          hub,
		store:        store,
		rand:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		adultAge:     DefaultAdultAge,
		sendBuffer:   DefaultSendBuffer,
		writeTimeout: DefaultWriteTimeout,
		tracer:       otel.Tracer("github.com/pixil98/arbor/internal/session"),
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.metrics == nil {
		h.metrics = nopMetrics{}
	}

	return h
}

// Serve runs a single connection until the client leaves, the connection
// fails, the session is kicked or ctx is done.
func (h *Handler) Serve(ctx context.Context, conn Conn) error {
	h.metrics.SessionOpened()
	defer h.metrics.SessionClosed()

	id := h.hub.NewID()
	defer h.hub.ReleaseID(id)

	s := newSession(id, conn, h.sendBuffer, h.writeTimeout, h.metrics)
	defer s.close(websocket.CloseNormalClosure, ErrSessionClosed)

	stop := context.AfterFunc(ctx, func() {
		s.close(websocket.CloseGoingAway, ErrSessionClosed)
	})
	defer stop()

	name, err := readJoinRequest(conn)
	if err != nil {
		s.close(websocket.ClosePolicyViolation, ErrSessionClosed)
		return err
	}

	err = h.join(ctx, s, name)
	if errors.Is(err, game.ErrNameTaken) {
		h.reject(s, game.ReasonNameTaken)
		return fmt.Errorf("joining as %q: %w", name, err)
	}
	if err != nil {
		return fmt.Errorf("joining as %q: %w", name, err)
	}
	defer h.leave(ctx, s)

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		s.writePump()
	}()
	defer func() { <-pumpDone }()
	defer s.close(websocket.CloseNormalClosure, ErrSessionClosed)

	slog.InfoContext(ctx, "player joined", "session", id, "name", name)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("reading message: %w", err)
		}
		h.dispatch(ctx, s, data)
	}
}

func readJoinRequest(conn Conn) (string, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("reading join request: %w", err)
	}

	typ, err := service.TypeOf(data)
	if err != nil || typ != MsgJoinRequest {
		return "", ErrNotJoined
	}

	var req joinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotJoined, err)
	}

	return game.NormalizeName(req.Name), nil
}

// join registers s and adds its player to the world. The session is
// subscribed before the snapshot is taken, so the client sees every event
// after the snapshot and none before it.
func (h *Handler) join(ctx context.Context, s *Session, name string) error {
	saved, found, err := h.store.PlayerPosition(name)
	if err != nil {
		slog.WarnContext(ctx, "loading player position", "name", name, "error", err)
		found = false
	}

	if err := h.hub.Register(s); err != nil {
		return err
	}

	var snap *game.Snapshot
	var joinErr error
	h.world.Update(func(tx *game.Txn) {
		p := &game.Player{ID: s.ID(), Name: name, Pos: saved}
		if !found {
			p.Pos = h.spawnPoint()
		}

		if joinErr = tx.AddPlayer(p); joinErr != nil {
			return
		}
		if !found {
			tx.Persist(game.PutUser{User: game.UserRecord{Name: p.Name, Pos: p.Pos}})
		}

		snap = tx.Snapshot()
		s.after.Store(tx.Seq())

		view := p.View()
		tx.Emit(game.PlayerMessage{Type: game.MsgPlayerJoined, PlayerID: p.ID, Data: &view})
	})
	if joinErr != nil {
		h.hub.Deregister(s.ID())
		return joinErr
	}

	for _, msg := range []any{
		game.JoinSuccessMessage{Type: game.MsgJoinSuccess},
		game.WorldMessage{Type: game.MsgWorldState, PlayerID: s.ID(), World: snap},
	} {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshalling join reply: %w", err)
		}
		if err := s.write(data); err != nil {
			h.leave(ctx, s)
			return fmt.Errorf("writing join reply: %w", err)
		}
	}

	return nil
}

func (h *Handler) reject(s *Session, reason string) {
	data, err := json.Marshal(game.ErrorMessage{Type: game.MsgError, Reason: reason})
	if err != nil {
		slog.Error("marshalling rejection", "error", err)
		return
	}
	if err := s.write(data); err != nil {
		slog.Debug("writing rejection", "session", s.ID(), "error", err)
	}
	s.close(websocket.ClosePolicyViolation, ErrSessionClosed)
}

// leave removes the session's player, saves where it was and tells everyone.
func (h *Handler) leave(ctx context.Context, s *Session) {
	h.hub.Deregister(s.ID())

	var p *game.Player
	h.world.Update(func(tx *game.Txn) {
		var err error
		p, err = tx.RemovePlayer(s.ID())
		if err != nil {
			return
		}
		tx.Persist(game.PutUser{User: game.UserRecord{Name: p.Name, Pos: p.Pos}})
		tx.Emit(game.PlayerMessage{Type: game.MsgPlayerLeft, PlayerID: p.ID})
	})

	if p != nil {
		slog.InfoContext(ctx, "player left", "session", s.ID(), "name", p.Name)
	}
}

func (h *Handler) dispatch(ctx context.Context, s *Session, data []byte) {
	typ, err := service.TypeOf(data)
	if err != nil {
		slog.WarnContext(ctx, "dropping malformed message", "session", s.ID(), "error", err)
		return
	}

	ctx, span := h.tracer.Start(ctx, "session.command", trace.WithAttributes(
		attribute.String("session", s.ID()),
		attribute.String("type", typ),
	))
	defer span.End()

	switch typ {
	case MsgChat:
		err = h.chat(ctx, s, data)
	case MsgMove:
		err = h.move(s, data)
	case MsgTill:
		err = h.till(data)
	case MsgDropFood:
		err = h.dropFood(data)
	case MsgRequestZoneRefresh:
		err = h.refresh(s)
	default:
		err = fmt.Errorf("unknown message type %q", typ)
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "dropping message", "session", s.ID(), "type", typ, "error", err)
		return
	}
	h.metrics.CommandHandled(typ)
}

func (h *Handler) spawnPoint() game.Vec {
	return game.Vec{
		X: float64(spawnMinX + h.rand.IntN(spawnMaxX-spawnMinX+1)),
		Y: float64(spawnMinY + h.rand.IntN(spawnMaxY-spawnMinY+1)),
	}
}
