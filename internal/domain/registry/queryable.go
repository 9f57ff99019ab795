package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/zenoh-pico/pico/internal/domain/keyexpr"
	"github.com/zenoh-pico/pico/internal/domain/model"
)

// Queryable is one declared queryable: its match key, completeness flag,
// and the closure invoked for every matching query.
type Queryable struct {
	ID       EntityId
	KeyExpr  string
	Complete bool
	callback model.Closure[*model.Query]
}

// QueryableTable holds every queryable declared on a session.
type QueryableTable struct {
	entries sync.Map // EntityId -> *Queryable
	nextID  uint32
}

// NewQueryableTable returns an empty table.
func NewQueryableTable() *QueryableTable {
	return &QueryableTable{}
}

// Declare registers a new queryable and returns its handle.
func (t *QueryableTable) Declare(full string, complete bool, cb model.Closure[*model.Query]) *Queryable {
	id := EntityId(atomic.AddUint32(&t.nextID, 1))
	q := &Queryable{ID: id, KeyExpr: full, Complete: complete, callback: cb}
	t.entries.Store(id, q)
	return q
}

// Undeclare removes the queryable and releases its closure exactly once.
func (t *QueryableTable) Undeclare(id EntityId) {
	v, ok := t.entries.LoadAndDelete(id)
	if !ok {
		return
	}
	v.(*Queryable).callback.Release()
}

// MatchingQueryables invokes fn once per queryable whose key expression
// intersects selector, in registration (EntityId) order.
func (t *QueryableTable) MatchingQueryables(selector string, fn func(*Queryable)) {
	var matched []*Queryable
	t.entries.Range(func(_, v any) bool {
		q := v.(*Queryable)
		if keyexpr.Intersects(q.KeyExpr, selector) {
			matched = append(matched, q)
		}
		return true
	})
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	for _, q := range matched {
		fn(q)
	}
}

// Deliver invokes the queryable's callback with query.
func (q *Queryable) Deliver(query *model.Query) {
	q.callback.Invoke(query)
}

// CloseAll undeclares every queryable, releasing all closures.
func (t *QueryableTable) CloseAll() {
	t.entries.Range(func(k, v any) bool {
		t.entries.Delete(k)
		v.(*Queryable).callback.Release()
		return true
	})
}
