package registry

import (
	"testing"

	"github.com/zenoh-pico/pico/internal/domain/model"
)

func TestSubscriptionTableMatchingSubscriptions(t *testing.T) {
	st := NewSubscriptionTable()
	var got []model.Sample
	sub := st.Declare("a/**", model.ReliabilityReliable, model.Closure[model.Sample]{
		Call: func(s model.Sample) { got = append(got, s) },
	})
	if sub.ID == 0 {
		t.Fatal("Declare returned zero EntityId")
	}

	st.Declare("x/**", model.ReliabilityBestEffort, model.Closure[model.Sample]{})

	matched := 0
	st.MatchingSubscriptions("a/b/c", func(s *Subscription) {
		matched++
		s.Deliver(model.Sample{KeyExpr: "a/b/c"})
	})
	if matched != 1 {
		t.Fatalf("matched %d subscriptions, want 1", matched)
	}
	if len(got) != 1 || got[0].KeyExpr != "a/b/c" {
		t.Errorf("callback received %+v", got)
	}
}

func TestSubscriptionPullBuffersUntilPulled(t *testing.T) {
	st := NewSubscriptionTable()
	var got []model.Sample
	sub := st.DeclareWithMode("a/**", model.ReliabilityReliable, model.SubModePull, model.Closure[model.Sample]{
		Call: func(s model.Sample) { got = append(got, s) },
	})

	st.MatchingSubscriptions("a/b", func(s *Subscription) { s.Deliver(model.Sample{KeyExpr: "a/b", Payload: []byte("1")}) })
	if len(got) != 0 {
		t.Fatalf("pull subscriber invoked callback before Pull: %+v", got)
	}

	st.MatchingSubscriptions("a/b", func(s *Subscription) { s.Deliver(model.Sample{KeyExpr: "a/b", Payload: []byte("2")}) })
	if !sub.Pull() {
		t.Fatal("Pull reported no buffered sample")
	}
	if len(got) != 1 || string(got[0].Payload) != "2" {
		t.Fatalf("Pull delivered %+v, want the latest buffered sample", got)
	}
	if sub.Pull() {
		t.Fatal("second Pull should find an empty buffer")
	}
}

func TestSubscriptionTableUndeclareReleasesClosure(t *testing.T) {
	st := NewSubscriptionTable()
	released := false
	sub := st.Declare("a/b", model.ReliabilityReliable, model.Closure[model.Sample]{
		Drop: func() { released = true },
	})
	st.Undeclare(sub.ID)
	if !released {
		t.Error("Undeclare did not run Drop")
	}
	st.Undeclare(sub.ID) // idempotent, must not panic or double-release visibly
	if st.Len() != 0 {
		t.Errorf("Len = %d, want 0", st.Len())
	}
}

func TestSubscriptionTableCloseAll(t *testing.T) {
	st := NewSubscriptionTable()
	n := 0
	for i := 0; i < 3; i++ {
		st.Declare("a/b", model.ReliabilityReliable, model.Closure[model.Sample]{
			Drop: func() { n++ },
		})
	}
	st.CloseAll()
	if n != 3 {
		t.Errorf("released %d closures, want 3", n)
	}
	if st.Len() != 0 {
		t.Errorf("Len after CloseAll = %d, want 0", st.Len())
	}
}
