package listener

import (
	"context"
	"log/slog"

	"github.com/pixil98/arbor/internal/session"
)

// SessionServer runs a single client connection to completion.
type SessionServer interface {
	Serve(ctx context.Context, conn session.Conn) error
}

type ConnectionManager struct {
	sessions SessionServer
}

func NewConnectionManager(sessions SessionServer) *ConnectionManager {
	return &ConnectionManager{
		sessions: sessions,
	}
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn session.Conn) {
	if err := m.sessions.Serve(ctx, conn); err != nil {
		slog.WarnContext(ctx, "player session", "error", err)
	}
}
