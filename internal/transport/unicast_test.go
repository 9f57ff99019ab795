package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/transport/codec"
)

// pipeLink adapts a net.Conn (as produced by net.Pipe) to the link.Link
// interface for tests that don't need a real socket.
type pipeLink struct {
	net.Conn
}

func (p pipeLink) Locator() string  { return "pipe/test" }
func (p pipeLink) IsReliable() bool { return true }

func newUnicastPair(t *testing.T) (*Unicast, *Unicast) {
	t.Helper()
	a, b := net.Pipe()
	ua := NewUnicast(pipeLink{a}, codec.VarintLengthCodec{}, 8)
	ub := NewUnicast(pipeLink{b}, codec.VarintLengthCodec{}, 8)
	t.Cleanup(func() {
		ua.Close()
		ub.Close()
	})
	return ua, ub
}

func TestUnicastSendRecvRoundTrip(t *testing.T) {
	ua, ub := newUnicastPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ua.Send(ctx, Message{Payload: []byte("hello"), QoS: model.DefaultQoS}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case msg := <-ub.Recv():
		if string(msg.Payload) != "hello" {
			t.Fatalf("got payload %q", msg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestUnicastExpressBypassesQueue(t *testing.T) {
	ua, ub := newUnicastPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg := Message{Payload: []byte("urgent"), QoS: model.QoS{Express: true}}
	if err := ua.Send(ctx, msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-ub.Recv():
		if string(got.Payload) != "urgent" {
			t.Fatalf("got payload %q", got.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for express message")
	}
}

func TestUnicastDropOnFullQueueReturnsBackpressure(t *testing.T) {
	a, b := net.Pipe()
	// b is never read from, so once drainLoop picks up the one in-flight
	// item its Write to the pipe blocks forever: the queue's single slot
	// can never be freed, guaranteeing the next Send observes it full.
	ua := NewUnicast(pipeLink{a}, codec.VarintLengthCodec{}, 1)
	defer ua.Close()
	defer b.Close()

	ctx := context.Background()
	drop := model.QoS{CongestionControl: model.CongestionControlDrop}

	if err := ua.Send(ctx, Message{Payload: []byte("x"), QoS: drop}); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	// Give drainLoop a moment to pop the item and block on the unread pipe,
	// holding the queue's only slot open forever.
	time.Sleep(20 * time.Millisecond)
	if err := ua.Send(ctx, Message{Payload: []byte("y"), QoS: drop}); err != ErrBackpressure {
		t.Fatalf("expected ErrBackpressure, got %v", err)
	}
}

func TestUnicastLastActivityAdvancesOnSend(t *testing.T) {
	ua, _ := newUnicastPair(t)
	before := ua.LastActivity()
	time.Sleep(time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ua.Send(ctx, Message{Payload: []byte("a"), QoS: model.QoS{Express: true}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !ua.LastActivity().After(before) {
		t.Fatal("LastActivity did not advance after Send")
	}
}

func TestUnicastCloseIsIdempotent(t *testing.T) {
	ua, _ := newUnicastPair(t)
	if err := ua.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := ua.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
