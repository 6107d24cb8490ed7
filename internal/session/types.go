package session

import (
	"time"

	"github.com/pixil98/arbor/internal/game"
)

// Inbound message types.
const (
	MsgJoinRequest        = "player_join_request"
	MsgChat               = "player_chat"
	MsgMove               = "player_move"
	MsgTill               = "action_till"
	MsgDropFood           = "action_drop_food"
	MsgRequestZoneRefresh = "request_zone_refresh"
)

// CommandResetZone is the chat command that resets the world.
const CommandResetZone = "/reset_zone"

// Conn is the part of a websocket connection a session uses.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Rand is the source of randomness used for spawn positions.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Metrics receives session measurements.
type Metrics interface {
	SessionOpened()
	SessionClosed()
	CommandHandled(typ string)
	BroadcastDropped()
}

type nopMetrics struct{}

func (nopMetrics) SessionOpened()        {}
func (nopMetrics) SessionClosed()        {}
func (nopMetrics) CommandHandled(string) {}
func (nopMetrics) BroadcastDropped()     {}

// PositionStore looks up where a returning player last was.
type PositionStore interface {
	PlayerPosition(name string) (game.Vec, bool, error)
}

type joinRequest struct {
	Name string `json:"name"`
}

type chatRequest struct {
	Text string `json:"text"`
}

type moveRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type tileRef struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type tillRequest struct {
	Tile tileRef `json:"tile"`
}

type dropFoodRequest struct {
	Pos game.Vec `json:"pos"`
}
