package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/zenoh-pico/pico/config"
	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/transport"
	"github.com/zenoh-pico/pico/internal/transport/codec"
)

// memLink adapts a net.Conn to the transport link.Link shape this package
// needs for tests, without depending on internal/transport/link (which
// would import this package's eventual consumers in the other direction).
type memLink struct {
	net.Conn
	locator string
}

func (m memLink) Locator() string  { return m.locator }
func (m memLink) IsReliable() bool { return true }

func newSessionPair(t *testing.T) (*Session, *Session) {
	t.Helper()
	a, b := net.Pipe()
	ua := transport.NewUnicast(memLink{a, "mem/a"}, codec.VarintLengthCodec{}, 16)
	ub := transport.NewUnicast(memLink{b, "mem/b"}, codec.VarintLengthCodec{}, 16)

	zidA, err := model.NewZenohId()
	if err != nil {
		t.Fatalf("NewZenohId: %v", err)
	}
	zidB, err := model.NewZenohId()
	if err != nil {
		t.Fatalf("NewZenohId: %v", err)
	}

	cfg := config.New()
	ctx := context.Background()
	sa, err := Open(ctx, cfg, zidA, ua, nil)
	if err != nil {
		t.Fatalf("Open a: %v", err)
	}
	sb, err := Open(ctx, cfg, zidB, ub, nil)
	if err != nil {
		t.Fatalf("Open b: %v", err)
	}

	t.Cleanup(func() {
		sa.Close()
		sb.Close()
	})
	return sa, sb
}

func TestSessionOpenReachesEstablished(t *testing.T) {
	sa, _ := newSessionPair(t)
	if sa.State() != StateEstablished {
		t.Fatalf("State() = %v, want %v", sa.State(), StateEstablished)
	}
}

func TestSessionLocalPutReachesOwnSubscription(t *testing.T) {
	sa, _ := newSessionPair(t)

	got := make(chan model.Sample, 1)
	_, err := sa.DeclareSubscriber(context.Background(), "demo/sensor/temp", model.ReliabilityReliable, model.Closure[model.Sample]{
		Call: func(s model.Sample) { got <- s },
	})
	if err != nil {
		t.Fatalf("DeclareSubscriber: %v", err)
	}

	if err := sa.Put(context.Background(), "demo/sensor/temp", model.Value{Payload: []byte("21.5")}, model.DefaultQoS); err != nil {
		t.Fatalf("Put: %v", err)
	}

	select {
	case s := <-got:
		if string(s.Payload) != "21.5" {
			t.Fatalf("Payload = %q", s.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for local delivery")
	}
}

func TestSessionPutReachesRemoteSubscription(t *testing.T) {
	sa, sb := newSessionPair(t)

	got := make(chan model.Sample, 1)
	_, err := sb.DeclareSubscriber(context.Background(), "demo/**", model.ReliabilityReliable, model.Closure[model.Sample]{
		Call: func(s model.Sample) { got <- s },
	})
	if err != nil {
		t.Fatalf("DeclareSubscriber: %v", err)
	}

	if err := sa.Put(context.Background(), "demo/sensor/temp", model.Value{Payload: []byte("21.5")}, model.DefaultQoS); err != nil {
		t.Fatalf("Put: %v", err)
	}

	select {
	case s := <-got:
		if s.KeyExpr != "demo/sensor/temp" || string(s.Payload) != "21.5" {
			t.Fatalf("got %+v", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for remote delivery")
	}
}

func TestSessionGetLocalQueryable(t *testing.T) {
	sa, _ := newSessionPair(t)

	_, err := sa.DeclareQueryable(context.Background(), "demo/**", true, model.Closure[*model.Query]{
		Call: func(q *model.Query) {
			sa.QueryReply(context.Background(), q, model.Sample{
				KeyExpr: q.KeyExpr,
				Payload: []byte("pong"),
			})
		},
	})
	if err != nil {
		t.Fatalf("DeclareQueryable: %v", err)
	}

	replies := make(chan model.Reply, 1)
	err = sa.Get(context.Background(), "demo/ping", "", nil, model.QueryTargetAll, model.ConsolidationNone, 200*time.Millisecond,
		model.Closure[model.Reply]{Call: func(r model.Reply) { replies <- r }})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	select {
	case r := <-replies:
		if !r.Ok || string(r.Data.Sample.Payload) != "pong" {
			t.Fatalf("got %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
	}
}

func TestSessionDeclarePublisherAllocatesResourceOverUnicast(t *testing.T) {
	sa, _ := newSessionPair(t)

	pub, err := sa.DeclarePublisher(context.Background(), "demo/pub/temp", model.DefaultQoS)
	if err != nil {
		t.Fatalf("DeclarePublisher: %v", err)
	}
	if pub.ResourceId == 0 {
		t.Fatal("DeclarePublisher over Unicast should allocate a resource id")
	}

	got := make(chan model.Sample, 1)
	_, err = sa.DeclareSubscriber(context.Background(), "demo/pub/temp", model.ReliabilityReliable, model.Closure[model.Sample]{
		Call: func(s model.Sample) { got <- s },
	})
	if err != nil {
		t.Fatalf("DeclareSubscriber: %v", err)
	}

	if err := sa.PublisherPut(context.Background(), pub, model.Value{Payload: []byte("21.5")}); err != nil {
		t.Fatalf("PublisherPut: %v", err)
	}

	select {
	case s := <-got:
		if s.KeyExpr != "demo/pub/temp" || string(s.Payload) != "21.5" {
			t.Fatalf("got %+v", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery via publisher")
	}
}

func TestSessionUndeclareSubscriberStopsDelivery(t *testing.T) {
	sa, _ := newSessionPair(t)

	var calls int
	sub, err := sa.DeclareSubscriber(context.Background(), "demo/x", model.ReliabilityReliable, model.Closure[model.Sample]{
		Call: func(model.Sample) { calls++ },
	})
	if err != nil {
		t.Fatalf("DeclareSubscriber: %v", err)
	}
	if err := sa.UndeclareSubscriber(context.Background(), sub); err != nil {
		t.Fatalf("UndeclareSubscriber: %v", err)
	}
	if err := sa.Put(context.Background(), "demo/x", model.Value{Payload: []byte("x")}, model.DefaultQoS); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if calls != 0 {
		t.Fatalf("calls = %d, want 0 after undeclare", calls)
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	sa, _ := newSessionPair(t)
	if err := sa.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := sa.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if sa.State() != StateClosed {
		t.Fatalf("State() = %v, want %v", sa.State(), StateClosed)
	}
}
