package registry

import (
	"sync"
	"sync/atomic"

	"github.com/zenoh-pico/pico/internal/domain/model"
)

// Publisher is one declared publisher: the key expression every put/delete
// issued through it carries, plus the QoS defaults it was configured with.
// ResourceId is the alias auto-declared for KeyExpr's wildcard-free prefix
// over Unicast transports; 0 means no resource id was allocated (every
// put/delete this publisher issues then carries the literal key instead).
type Publisher struct {
	ID         EntityId
	KeyExpr    string
	QoS        model.QoS
	ResourceId uint16
}

// PublisherTable holds every publisher declared on a session. Unlike
// subscriptions and queryables, publishers carry no user callback, so
// undeclare needs no closure release — it only frees the handle.
type PublisherTable struct {
	mu      sync.Mutex
	entries map[EntityId]*Publisher
	nextID  uint32
}

// NewPublisherTable returns an empty table.
func NewPublisherTable() *PublisherTable {
	return &PublisherTable{entries: make(map[EntityId]*Publisher)}
}

// Declare registers a new publisher and returns it.
func (t *PublisherTable) Declare(full string, qos model.QoS) *Publisher {
	id := EntityId(atomic.AddUint32(&t.nextID, 1))
	pub := &Publisher{ID: id, KeyExpr: full, QoS: qos}
	t.mu.Lock()
	t.entries[id] = pub
	t.mu.Unlock()
	return pub
}

// Undeclare removes the publisher. Undeclaring an unknown id is a no-op.
func (t *PublisherTable) Undeclare(id EntityId) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()
}

// Lookup returns the publisher registered under id.
func (t *PublisherTable) Lookup(id EntityId) (*Publisher, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.entries[id]
	return p, ok
}

// CloseAll removes every publisher.
func (t *PublisherTable) CloseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[EntityId]*Publisher)
}
