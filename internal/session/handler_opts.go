package session

import "time"

type HandlerOpt func(*Handler)

// WithRand replaces the source used for spawn positions.
func WithRand(r Rand) HandlerOpt {
	return func(h *Handler) {
		h.rand = r
	}
}

// WithAdultAge sets the age given to the adults a world reset spawns.
func WithAdultAge(seconds float64) HandlerOpt {
	return func(h *Handler) {
		h.adultAge = seconds
	}
}

// WithSendBuffer sets how many outbound messages a session may have queued
// before it is disconnected.
func WithSendBuffer(n int) HandlerOpt {
	return func(h *Handler) {
		h.sendBuffer = n
	}
}

func WithWriteTimeout(d time.Duration) HandlerOpt {
	return func(h *Handler) {
		h.writeTimeout = d
	}
}

func WithMetrics(m Metrics) HandlerOpt {
	return func(h *Handler) {
		h.metrics = m
	}
}
