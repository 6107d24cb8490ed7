package session

import "errors"

var (
	ErrNotJoined     = errors.New("first message must be a join request")
	ErrSlowConsumer  = errors.New("send buffer full")
	ErrSessionClosed = errors.New("session closed")
	ErrHubNotReady   = errors.New("hub not ready")
)
