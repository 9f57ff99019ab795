// Package registry holds the session-scoped entity tables: the resource-id
// alias table, and the subscription/queryable/publisher/pending-query
// registries that own the user's Closure callbacks. Every table follows the
// same shape as the actor registry it is grounded on: a concurrency-safe
// map keyed by a small integer handle, idempotent registration, and an
// explicit, single-owner teardown path.
package registry

import (
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/zenoh-pico/pico/internal/domain/keyexpr"
	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/status"
)

// resolveCacheSize bounds the (id, suffix) -> expanded-key cache every
// ResourceTable keeps for Resolve: dispatch resolves the same handful of
// hot key expressions on every inbound Data/Query frame, so a small LRU in
// front of the prefix lookup turns that into an O(1) cache hit instead of
// a map lookup plus string concatenation every message.
const resolveCacheSize = 256

// DeclaredKeyExpr is a resource-id alias for a full key expression,
// registered via Session.DeclareKeyExpr without binding a subscriber,
// queryable, or publisher to it — a bare optimization a caller reaches for
// when it will reference the same key expression repeatedly.
type DeclaredKeyExpr struct {
	ID      uint16
	KeyExpr string
}

// ResourceTable maps resource ids to the canon key expression they alias,
// letting wire traffic reference a previously-declared prefix by a 16-bit
// id instead of repeating the full string on every message.
type ResourceTable struct {
	mu     sync.RWMutex
	byID   map[uint16]string
	nextID uint32

	resolved *lru.Cache[model.KeyExpr, string]
}

// NewResourceTable returns an empty table. Id 0 is never issued: it is the
// reserved ResourceIdNone "no alias" sentinel.
func NewResourceTable() *ResourceTable {
	cache, _ := lru.New[model.KeyExpr, string](resolveCacheSize)
	return &ResourceTable{
		byID:     make(map[uint16]string),
		nextID:   1,
		resolved: cache,
	}
}

// Declare registers suffix as the expansion for a freshly allocated id and
// returns it. The caller is expected to have already canonized suffix.
func (t *ResourceTable) Declare(suffix string) (uint16, error) {
	id, err := t.allocate()
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	t.byID[id] = suffix
	t.mu.Unlock()
	return id, nil
}

// DeclareWithID registers suffix under an explicit id, as happens when a
// remote peer's declaration arrives already carrying a wire-assigned id.
func (t *ResourceTable) DeclareWithID(id uint16, suffix string) {
	t.mu.Lock()
	t.byID[id] = suffix
	t.mu.Unlock()
}

func (t *ResourceTable) allocate() (uint16, error) {
	for {
		n := atomic.LoadUint32(&t.nextID)
		if n > 0xFFFF {
			return 0, status.New(status.KindResource, "resource id space exhausted")
		}
		if atomic.CompareAndSwapUint32(&t.nextID, n, n+1) {
			return uint16(n), nil
		}
	}
}

// Undeclare removes id from the table. Undeclaring an unknown id is a
// silent no-op, matching the idempotent-undeclare discipline used
// throughout the entity registries.
func (t *ResourceTable) Undeclare(id uint16) {
	t.mu.Lock()
	delete(t.byID, id)
	t.mu.Unlock()
	t.resolved.Purge()
}

// Lookup returns the literal suffix registered under id.
func (t *ResourceTable) Lookup(id uint16) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.byID[id]
	return s, ok
}

// Resolve expands a possibly-aliased KeyExpr into its full canon literal
// string. A KeyExpr with no resource id is returned unchanged (after
// canonization); one with a resource id is resolved against the prefix
// registered at that id and concatenated with any trailing Suffix.
func (t *ResourceTable) Resolve(ke model.KeyExpr) (string, error) {
	if !ke.HasResourceId() {
		canon, st := keyexpr.Canonize(ke.Suffix)
		if st != keyexpr.StatusOK && keyexpr.IsCanon(canon) != keyexpr.StatusOK {
			return "", status.New(status.KindInput, "key expression is not canon: "+st.Error())
		}
		return canon, nil
	}

	if full, ok := t.resolved.Get(ke); ok {
		return full, nil
	}

	prefix, ok := t.Lookup(ke.Id)
	if !ok {
		return "", status.New(status.KindInput, "unknown resource id")
	}
	if ke.Suffix == "" {
		t.resolved.Add(ke, prefix)
		return prefix, nil
	}
	full := prefix + ke.Suffix
	t.resolved.Add(ke, full)
	return full, nil
}

// SplitWildcardPrefix splits a key expression into the longest
// wildcard-free leading segment run and the remaining wildcard-bearing
// tail, so that a subscriber can auto-declare a resource for the stable
// prefix while keeping the matching logic on the full expression for the
// wildcard portion. If the whole expression is wildcard-free, prefix
// equals the full string and tail is empty. When prefix is non-empty, tail
// retains its separating "/" (mirroring the original C implementation's
// one-segment backup before the wildcard) so that Resolve can rebuild the
// full key by plain concatenation of prefix and tail, with no separator
// logic of its own.
func SplitWildcardPrefix(full string) (prefix, tail string) {
	segs := strings.Split(full, "/")
	cut := len(segs)
	for i, seg := range segs {
		if strings.ContainsAny(seg, "*$") {
			cut = i
			break
		}
	}
	if cut == len(segs) {
		return full, ""
	}
	prefix = strings.Join(segs[:cut], "/")
	tail = strings.Join(segs[cut:], "/")
	if prefix != "" {
		tail = "/" + tail
	}
	return prefix, tail
}
