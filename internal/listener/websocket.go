package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultPath        = "/ws"
	DefaultMetricsPath = "/metrics"

	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// WebsocketListener serves the websocket endpoint, and optionally metrics,
// over HTTP.
type WebsocketListener struct {
	addr        string
	path        string
	cm          *ConnectionManager
	ready       <-chan struct{}
	metrics     http.Handler
	metricsPath string

	upgrader websocket.Upgrader
	bound    chan net.Addr
	done     chan struct{}

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

type WebsocketOpt func(*WebsocketListener)

// WithPath sets the path the websocket endpoint is served on.
func WithPath(path string) WebsocketOpt {
	return func(l *WebsocketListener) {
		l.path = path
	}
}

// WithReady refuses connections until ready is closed.
func WithReady(ready <-chan struct{}) WebsocketOpt {
	return func(l *WebsocketListener) {
		l.ready = ready
	}
}

// WithMetricsHandler serves h on path.
func WithMetricsHandler(path string, h http.Handler) WebsocketOpt {
	return func(l *WebsocketListener) {
		l.metricsPath = path
		l.metrics = h
	}
}

func NewWebsocketListener(addr string, cm *ConnectionManager, opts ...WebsocketOpt) *WebsocketListener {
	l := &WebsocketListener{
		addr: addr,
		path: DefaultPath,
		cm:   cm,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		bound: make(chan net.Addr, 1),
		done:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *WebsocketListener) Start(ctx context.Context) error {
	defer close(l.done)

	listener, err := net.Listen("tcp", l.addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("address %s is already in use (another server running?)", l.addr)
		}
		return fmt.Errorf("listening on %s: %w", l.addr, err)
	}
	l.bound <- listener.Addr()

	// Connections outlive the request that upgraded them, so they get their
	// own context, canceled once the server stops accepting.
	connCtx, cancelConns := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelConns()

	mux := http.NewServeMux()
	mux.HandleFunc(l.path, func(w http.ResponseWriter, r *http.Request) {
		l.serveWebsocket(connCtx, w, r)
	})
	if l.metrics != nil {
		path := l.metricsPath
		if path == "" {
			path = DefaultMetricsPath
		}
		mux.Handle(path, l.metrics)
	}

	svr := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := svr.Shutdown(shutdownCtx); err != nil {
			slog.WarnContext(ctx, "shutting down http server", "error", err)
		}
	}()

	slog.InfoContext(ctx, "listening for websockets", "addr", listener.Addr().String(), "path", l.path)

	err = svr.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving on %s: %w", l.addr, err)
	}
	<-stopped

	l.mu.Lock()
	l.closing = true
	l.mu.Unlock()

	cancelConns()
	l.wg.Wait()

	return nil
}

// Addr blocks until the listener is bound and returns its address.
func (l *WebsocketListener) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case addr := <-l.bound:
		l.bound <- addr
		return addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once Start has returned and every session has finished.
func (l *WebsocketListener) Done() <-chan struct{} {
	return l.done
}

func (l *WebsocketListener) serveWebsocket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if l.ready != nil {
		select {
		case <-l.ready:
		default:
			http.Error(w, "starting up", http.StatusServiceUnavailable)
			return
		}
	}

	if !l.track() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	defer l.wg.Done()

	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.DebugContext(ctx, "upgrading connection", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.DebugContext(ctx, "closing websocket", "error", err)
		}
	}()

	l.cm.AcceptConnection(ctx, conn)
}

func (l *WebsocketListener) track() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closing {
		return false
	}
	l.wg.Add(1)
	return true
}
