package session

import (
	"errors"
	"testing"
	"time"

	"github.com/pixil98/arbor/internal/messaging"
	"github.com/pixil98/go-testutil"
)

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", desc)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSession_DeliverOverflowCloses(t *testing.T) {
	conn := newFakeConn()
	metrics := &fakeMetrics{}
	s := newSession("abcd1234", conn, 1, time.Second, metrics)

	s.deliver(messaging.Message{Seq: 1, Data: []byte(`{}`)})
	testutil.AssertEqual(t, "open after first", s.Err() == nil, true)

	s.deliver(messaging.Message{Seq: 2, Data: []byte(`{}`)})
	if !errors.Is(s.Err(), ErrSlowConsumer) {
		t.Fatalf("expected slow consumer, got %v", s.Err())
	}
	testutil.AssertEqual(t, "conn closed", conn.isClosed(), true)
	testutil.AssertEqual(t, "close frame", conn.controls, 1)
	testutil.AssertEqual(t, "drops", metrics.dropped, 1)

	// closed sessions ignore further broadcasts
	s.deliver(messaging.Message{Seq: 3, Data: []byte(`{}`)})
	testutil.AssertEqual(t, "drops", metrics.dropped, 1)
}

func TestSession_PumpSkipsSnapshottedBroadcasts(t *testing.T) {
	conn := newFakeConn()
	s := newSession("abcd1234", conn, 8, time.Second, nopMetrics{})
	s.after.Store(5)

	s.deliver(messaging.Message{Seq: 4, Data: []byte(`"four"`)})
	s.deliver(messaging.Message{Seq: 5, Data: []byte(`"five"`)})
	s.deliver(messaging.Message{Seq: 6, Data: []byte(`"six"`)})
	s.Reply(0, []byte(`"direct"`))

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writePump()
	}()

	waitFor(t, "writes", func() bool { return len(conn.writes()) == 2 })
	s.close(1000, ErrSessionClosed)
	<-done

	testutil.AssertEqual(t, "writes", conn.writes(), []string{`"six"`, `"direct"`})
}

func TestSession_ReplyRaisesWatermark(t *testing.T) {
	tests := map[string]struct {
		start uint64
		reply uint64
		exp   uint64
	}{
		"raises":        {start: 3, reply: 10, exp: 10},
		"never lowers":  {start: 10, reply: 5, exp: 10},
		"equal is kept": {start: 7, reply: 7, exp: 7},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := newSession("abcd1234", newFakeConn(), 4, time.Second, nopMetrics{})
			s.after.Store(tt.start)
			s.Reply(tt.reply, []byte(`{}`))
			testutil.AssertEqual(t, "after", s.after.Load(), tt.exp)
		})
	}
}

func TestSession_WriteFailureCloses(t *testing.T) {
	conn := newFakeConn()
	conn.writeErr = errors.New("broken pipe")
	s := newSession("abcd1234", conn, 4, time.Second, nopMetrics{})

	s.deliver(messaging.Message{Seq: 1, Data: []byte(`{}`)})
	s.writePump()

	testutil.AssertErrorContains(t, s.Err(), "writing message", "broken pipe")
	testutil.AssertEqual(t, "conn closed", conn.isClosed(), true)
}

func TestSession_CloseOnce(t *testing.T) {
	conn := newFakeConn()
	s := newSession("abcd1234", conn, 4, time.Second, nopMetrics{})

	s.close(1000, ErrSlowConsumer)
	s.close(1001, ErrSessionClosed)

	if !errors.Is(s.Err(), ErrSlowConsumer) {
		t.Errorf("expected first reason to stick, got %v", s.Err())
	}
	testutil.AssertEqual(t, "close frames", conn.controls, 1)
}

func TestSession_ReplyOverflowLeavesCloseToCaller(t *testing.T) {
	conn := newFakeConn()
	s := newSession("abcd1234", conn, 1, time.Second, nopMetrics{})

	if err := s.Reply(1, []byte(`"first"`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.Reply(2, []byte(`"second"`))
	if !errors.Is(err, ErrSlowConsumer) {
		t.Fatalf("expected slow consumer, got %v", err)
	}
	testutil.AssertEqual(t, "still open", s.Err() == nil, true)
	testutil.AssertEqual(t, "close frames", conn.controls, 0)

	s.kick()
	if !errors.Is(s.Err(), ErrSlowConsumer) {
		t.Fatalf("expected slow consumer, got %v", s.Err())
	}
	testutil.AssertEqual(t, "conn closed", conn.isClosed(), true)
}
