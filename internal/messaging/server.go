package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// HeaderSeq carries a message's sequence number.
const HeaderSeq = "Arbor-Seq"

// Message is a payload plus the sequence number it was emitted with.
type Message struct {
	Seq  uint64
	Data []byte
}

// NatsServer runs an embedded NATS server together with the client
// connection the rest of the process publishes and subscribes through.
type NatsServer struct {
	ns    *server.Server
	conn  *nats.Conn
	ready chan struct{}

	startupTimeout time.Duration
	host           string
	port           int
}

func NewNatsServer(opts ...NatsServerOpt) (*NatsServer, error) {
	s := &NatsServer{
		ready:          make(chan struct{}),
		startupTimeout: 10 * time.Second,
		host:           "127.0.0.1",
	}

	for _, opt := range opts {
		opt(s)
	}

	ns, err := server.NewServer(&server.Options{
		Host:   s.host,
		Port:   s.port,
		NoSigs: true, // Let the application handle signals
	})
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	s.ns = ns

	return s, nil
}

func (n *NatsServer) Start(ctx context.Context) error {
	n.ns.Start()

	if !n.ns.ReadyForConnections(n.startupTimeout) {
		n.ns.Shutdown()
		return fmt.Errorf("nats server not ready for connections")
	}

	conn, err := nats.Connect(n.ns.ClientURL())
	if err != nil {
		n.ns.Shutdown()
		return fmt.Errorf("creating nats client connection: %w", err)
	}
	n.conn = conn
	close(n.ready)

	slog.InfoContext(ctx, "nats server listening", "addr", n.ns.Addr())

	<-ctx.Done()
	if err := n.conn.Drain(); err != nil {
		slog.Warn("draining nats connection", "error", err)
	}
	n.ns.Shutdown()
	n.ns.WaitForShutdown()

	return nil
}

// Ready is closed once the server accepts publishes and subscriptions.
func (n *NatsServer) Ready() <-chan struct{} {
	return n.ready
}

func (n *NatsServer) started() bool {
	select {
	case <-n.ready:
		return true
	default:
		return false
	}
}

// Subscribe creates a subscription on the given subject.
// The handler is called for each message received, one at a time.
// Returns an unsubscribe function to remove the subscription.
func (n *NatsServer) Subscribe(subject string, handler func(Message)) (func(), error) {
	if !n.started() {
		return nil, fmt.Errorf("nats server not started")
	}
	sub, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		var seq uint64
		if v := msg.Header.Get(HeaderSeq); v != "" {
			seq, _ = strconv.ParseUint(v, 10, 64)
		}
		handler(Message{Seq: seq, Data: msg.Data})
	})
	if err != nil {
		return nil, err
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil {
			slog.Debug("unsubscribing", "subject", subject, "error", err)
		}
	}, nil
}

// Publish sends a message to the given subject.
func (n *NatsServer) Publish(subject string, m Message) error {
	if !n.started() {
		return fmt.Errorf("nats server not started")
	}
	msg := nats.NewMsg(subject)
	msg.Header.Set(HeaderSeq, strconv.FormatUint(m.Seq, 10))
	msg.Data = m.Data
	return n.conn.PublishMsg(msg)
}
