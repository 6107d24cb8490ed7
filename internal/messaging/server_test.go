package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func startTestServer(t *testing.T) *NatsServer {
	t.Helper()

	s, err := NewNatsServer(WithPort(-1), WithStartTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-s.Ready():
	case err := <-done:
		t.Fatalf("server exited: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server not ready")
	}
	return s
}

func TestNatsServer_NotStarted(t *testing.T) {
	s, err := NewNatsServer(WithPort(-1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = s.Subscribe("x", func(Message) {})
	testutil.AssertErrorContains(t, err, "nats server not started")

	err = s.Publish("x", Message{Data: []byte("hi")})
	testutil.AssertErrorContains(t, err, "nats server not started")
}

func TestNatsServer_PublishSubscribe(t *testing.T) {
	s := startTestServer(t)

	got := make(chan Message, 10)
	unsub, err := s.Subscribe("world.events", func(m Message) { got <- m })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, payload := range []string{"first", "second", "third"} {
		if err := s.Publish("world.events", Message{Seq: uint64(i + 1), Data: []byte(payload)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	var received []Message
	for len(received) < 3 {
		select {
		case m := <-got:
			received = append(received, m)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %d messages", len(received))
		}
	}

	testutil.AssertEqual(t, "messages", received, []Message{
		{Seq: 1, Data: []byte("first")},
		{Seq: 2, Data: []byte("second")},
		{Seq: 3, Data: []byte("third")},
	})

	unsub()
	if err := s.Publish("world.events", Message{Seq: 4, Data: []byte("late")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case m := <-got:
		t.Errorf("received after unsubscribe: %s", m.Data)
	case <-time.After(100 * time.Millisecond):
	}
}
