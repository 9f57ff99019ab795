package registry

import (
	"testing"

	"github.com/zenoh-pico/pico/internal/domain/model"
)

func reply(key string, t uint64) model.Reply {
	return model.Reply{
		Ok: true,
		Data: model.ReplyData{
			Sample: model.Sample{KeyExpr: key, Timestamp: model.Timestamp{Time: t}},
		},
	}
}

func TestPendingQueryNoneForwardsEveryReply(t *testing.T) {
	pt := NewPendingQueryTable()
	var got []model.Reply
	pq := pt.Register(model.ZeroZenohId, model.ConsolidationNone, model.Closure[model.Reply]{
		Call: func(r model.Reply) { got = append(got, r) },
	})
	pq.HandleReply(reply("a/b", 1))
	pq.HandleReply(reply("a/b", 1)) // duplicate timestamp, still forwarded under None
	pq.Finish()
	if len(got) != 2 {
		t.Fatalf("got %d replies, want 2", len(got))
	}
}

func TestPendingQueryMonotonicDropsStale(t *testing.T) {
	pt := NewPendingQueryTable()
	var got []model.Reply
	pq := pt.Register(model.ZeroZenohId, model.ConsolidationMonotonic, model.Closure[model.Reply]{
		Call: func(r model.Reply) { got = append(got, r) },
	})
	pq.HandleReply(reply("a/b", 5))
	pq.HandleReply(reply("a/b", 3)) // stale, dropped
	pq.HandleReply(reply("a/b", 9)) // newer, forwarded
	pq.Finish()
	if len(got) != 2 {
		t.Fatalf("got %d replies, want 2", len(got))
	}
	if got[0].Data.Sample.Timestamp.Time != 5 || got[1].Data.Sample.Timestamp.Time != 9 {
		t.Errorf("got timestamps %v, want [5 9]", []uint64{got[0].Data.Sample.Timestamp.Time, got[1].Data.Sample.Timestamp.Time})
	}
}

func TestPendingQueryLatestBuffersUntilFinish(t *testing.T) {
	pt := NewPendingQueryTable()
	var got []model.Reply
	pq := pt.Register(model.ZeroZenohId, model.ConsolidationLatest, model.Closure[model.Reply]{
		Call: func(r model.Reply) { got = append(got, r) },
	})
	pq.HandleReply(reply("a/b", 1))
	pq.HandleReply(reply("a/b", 7))
	if len(got) != 0 {
		t.Fatalf("Latest delivered before Finish: %d replies", len(got))
	}
	pq.Finish()
	if len(got) != 1 || got[0].Data.Sample.Timestamp.Time != 7 {
		t.Fatalf("got %+v, want a single reply with timestamp 7", got)
	}
}

func TestPendingQueryFinishReleasesClosureOnce(t *testing.T) {
	pt := NewPendingQueryTable()
	releases := 0
	pq := pt.Register(model.ZeroZenohId, model.ConsolidationNone, model.Closure[model.Reply]{
		Drop: func() { releases++ },
	})
	pq.Finish()
	pq.Finish()
	if releases != 1 {
		t.Errorf("Drop ran %d times, want 1", releases)
	}
}

func TestResolveConsolidationAuto(t *testing.T) {
	if got := ResolveConsolidation(model.ConsolidationAuto, "_time=[now(-1h)..now()]"); got != model.ConsolidationNone {
		t.Errorf("Auto with _time= resolved to %v, want ConsolidationNone", got)
	}
	if got := ResolveConsolidation(model.ConsolidationAuto, ""); got != model.ConsolidationLatest {
		t.Errorf("Auto with no selector resolved to %v, want ConsolidationLatest", got)
	}
	if got := ResolveConsolidation(model.ConsolidationMonotonic, ""); got != model.ConsolidationMonotonic {
		t.Errorf("non-Auto mode %v was rewritten", got)
	}
}
