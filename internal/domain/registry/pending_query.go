package registry

import (
	"strings"
	"sync"

	"github.com/zenoh-pico/pico/internal/domain/model"
)

// ResolveConsolidation turns ConsolidationAuto into a concrete mode based
// on the query's selector parameters: a "_time=" range parameter marks a
// time-series style query, where every reply is significant and none
// should be discarded as a stale duplicate, so Auto resolves to None. Any
// other selector resolves Auto to Latest, the common case of "give me the
// freshest value per key".
func ResolveConsolidation(mode model.ConsolidationMode, parameters string) model.ConsolidationMode {
	if mode != model.ConsolidationAuto {
		return mode
	}
	if strings.Contains(parameters, "_time=") {
		return model.ConsolidationNone
	}
	return model.ConsolidationLatest
}

// PendingQuery tracks one in-flight get: the replies collected so far, the
// consolidation policy governing which of them reach the caller, and the
// closure the caller provided.
type PendingQuery struct {
	Token         model.ZenohId
	Consolidation model.ConsolidationMode

	mu       sync.Mutex
	best     map[string]model.ReplyData // keyed by sample key expr, for Monotonic/Latest
	callback model.Closure[model.Reply]
	finished bool
}

// PendingQueryTable holds every get awaiting replies on a session, keyed
// by its correlation token.
type PendingQueryTable struct {
	entries sync.Map // model.ZenohId -> *PendingQuery
}

// NewPendingQueryTable returns an empty table.
func NewPendingQueryTable() *PendingQueryTable {
	return &PendingQueryTable{}
}

// Register starts tracking a new get under token and returns its
// PendingQuery.
func (t *PendingQueryTable) Register(token model.ZenohId, consolidation model.ConsolidationMode, cb model.Closure[model.Reply]) *PendingQuery {
	pq := &PendingQuery{
		Token:         token,
		Consolidation: consolidation,
		best:          make(map[string]model.ReplyData),
		callback:      cb,
	}
	t.entries.Store(token, pq)
	return pq
}

// Lookup returns the PendingQuery registered under token.
func (t *PendingQueryTable) Lookup(token model.ZenohId) (*PendingQuery, bool) {
	v, ok := t.entries.Load(token)
	if !ok {
		return nil, false
	}
	return v.(*PendingQuery), true
}

// Remove drops token from the table without running its closure; callers
// that want the closure released should call Finish first.
func (t *PendingQueryTable) Remove(token model.ZenohId) {
	t.entries.Delete(token)
}

// HandleReply applies the consolidation policy to an incoming reply.
// Under None every reply is forwarded immediately. Under Monotonic a
// reply is forwarded immediately only if it strictly postdates the best
// timestamp seen so far for that key; older or tied replies are dropped.
// Under Latest replies are buffered per key and only the most recent
// survives to be flushed at Finish.
func (pq *PendingQuery) HandleReply(reply model.Reply) {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	if pq.finished {
		return
	}

	switch pq.Consolidation {
	case model.ConsolidationNone:
		pq.callback.Invoke(reply)
	case model.ConsolidationMonotonic:
		key := reply.Data.Sample.KeyExpr
		prev, ok := pq.best[key]
		if !ok || reply.Data.Sample.Timestamp.After(prev.Sample.Timestamp) {
			pq.best[key] = reply.Data
			pq.callback.Invoke(reply)
		}
	default: // Latest (and Auto already resolved to one of the above by the caller)
		key := reply.Data.Sample.KeyExpr
		prev, ok := pq.best[key]
		if !ok || reply.Data.Sample.Timestamp.After(prev.Sample.Timestamp) {
			pq.best[key] = reply.Data
		}
	}
}

// Finish flushes any buffered Latest replies, releases the callback
// closure exactly once, and marks the query as finished so any reply
// that arrives after a timeout is silently dropped. It is the caller's
// responsibility to remove the token from the owning table once Finish
// returns.
func (pq *PendingQuery) Finish() {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	if pq.finished {
		return
	}
	pq.finished = true

	if pq.Consolidation == model.ConsolidationLatest {
		for _, data := range pq.best {
			pq.callback.Invoke(model.Reply{Ok: true, Data: data})
		}
	}
	pq.callback.Release()
}
