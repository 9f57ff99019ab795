package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/zenoh-pico/pico/internal/domain/keyexpr"
	"github.com/zenoh-pico/pico/internal/domain/model"
)

// EntityId is the session-local handle returned by every declare
// operation (subscriber, queryable, publisher): an opaque, monotonically
// increasing counter, never reused within a session's lifetime.
type EntityId uint32

// Subscription is one declared subscriber: its match key and the closure
// to invoke for every sample that matches it. A push subscription (the
// default) invokes callback as soon as a matching sample is dispatched; a
// pull subscription instead buffers the latest matching sample and only
// invokes callback when Pull is called.
type Subscription struct {
	ID          EntityId
	KeyExpr     string
	Reliability model.Reliability
	Mode        model.SubMode
	callback    model.Closure[model.Sample]

	mu       sync.Mutex
	buffered *model.Sample
}

// SubscriptionTable holds every subscriber declared on a session, keyed by
// EntityId, with a sync.Map so concurrent dispatch reads never contend
// with a concurrent declare/undeclare on an unrelated entity.
type SubscriptionTable struct {
	entries sync.Map // EntityId -> *Subscription
	nextID  uint32
}

// NewSubscriptionTable returns an empty table.
func NewSubscriptionTable() *SubscriptionTable {
	return &SubscriptionTable{}
}

// Declare registers a new push subscriber and returns its handle. full must
// already be a canon key expression; callers that pass a possibly
// non-canon user expression should canonize it first.
func (t *SubscriptionTable) Declare(full string, reliability model.Reliability, cb model.Closure[model.Sample]) *Subscription {
	return t.DeclareWithMode(full, reliability, model.SubModePush, cb)
}

// DeclareWithMode registers a new subscriber in the given mode and returns
// its handle.
func (t *SubscriptionTable) DeclareWithMode(full string, reliability model.Reliability, mode model.SubMode, cb model.Closure[model.Sample]) *Subscription {
	id := EntityId(atomic.AddUint32(&t.nextID, 1))
	sub := &Subscription{ID: id, KeyExpr: full, Reliability: reliability, Mode: mode, callback: cb}
	t.entries.Store(id, sub)
	return sub
}

// Undeclare removes the subscription and releases its closure exactly
// once. Undeclaring an unknown or already-removed id is a no-op.
func (t *SubscriptionTable) Undeclare(id EntityId) {
	v, ok := t.entries.LoadAndDelete(id)
	if !ok {
		return
	}
	v.(*Subscription).callback.Release()
}

// MatchingSubscriptions invokes fn once per subscription whose key
// expression intersects sampleKey, in registration (EntityId) order,
// passing the subscriber's own callback so the dispatcher can invoke it
// directly.
func (t *SubscriptionTable) MatchingSubscriptions(sampleKey string, fn func(*Subscription)) {
	var matched []*Subscription
	t.entries.Range(func(_, v any) bool {
		sub := v.(*Subscription)
		if keyexpr.Intersects(sub.KeyExpr, sampleKey) {
			matched = append(matched, sub)
		}
		return true
	})
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	for _, sub := range matched {
		fn(sub)
	}
}

// Deliver invokes the subscriber's callback with sample, or, for a pull
// subscription, buffers sample (overwriting any previously buffered,
// un-pulled one) until the next Pull. Call sites that need to recover from
// a panicking user callback (session/dispatch.go) wrap this call, not
// Closure.Invoke itself.
func (s *Subscription) Deliver(sample model.Sample) {
	if s.Mode == model.SubModePull {
		cp := sample
		s.mu.Lock()
		s.buffered = &cp
		s.mu.Unlock()
		return
	}
	s.callback.Invoke(sample)
}

// Pull invokes the callback with the most recently buffered sample, if one
// is waiting, and clears the buffer. Reports whether a sample was
// delivered. A no-op (returning false) on a push subscription, which has
// no buffer to drain.
func (s *Subscription) Pull() bool {
	s.mu.Lock()
	sample := s.buffered
	s.buffered = nil
	s.mu.Unlock()
	if sample == nil {
		return false
	}
	s.callback.Invoke(*sample)
	return true
}

// Len returns the number of currently declared subscriptions.
func (t *SubscriptionTable) Len() int {
	n := 0
	t.entries.Range(func(_, _ any) bool { n++; return true })
	return n
}

// CloseAll undeclares every subscription, releasing all closures. Used by
// session teardown.
func (t *SubscriptionTable) CloseAll() {
	t.entries.Range(func(k, v any) bool {
		t.entries.Delete(k)
		v.(*Subscription).callback.Release()
		return true
	})
}
