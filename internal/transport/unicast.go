package transport

import (
	"bufio"
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/status"
	"github.com/zenoh-pico/pico/internal/transport/codec"
	"github.com/zenoh-pico/pico/internal/transport/link"
	"github.com/zenoh-pico/pico/internal/wire"
)

// DefaultQueueCapacity is the outbound queue size a caller without a
// specific backpressure budget in mind should pass to NewUnicast or
// NewMulticast.
const DefaultQueueCapacity = 256

// unicastItem is one queued outbound message, ordered first by priority
// band (lower numeric value drains first) and then by arrival order within
// that band.
type unicastItem struct {
	msg Message
	seq uint64
}

type itemHeap []unicastItem

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].msg.Priority != h[j].msg.Priority {
		return h[i].msg.Priority < h[j].msg.Priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)        { *h = append(*h, x.(unicastItem)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Unicast is a point-to-point Transport over a single Link: one TCP or
// WebSocket socket carrying every priority band, queued through a single
// priority heap rather than per-band channels so that CongestionControlDrop
// and CongestionControlBlock can be enforced with one capacity counter
// instead of coordinating seven independent ones.
type Unicast struct {
	lk     link.Link
	reader *bufio.Reader
	writer *bufio.Writer
	cd     codec.Codec

	capacity int
	sem      chan struct{} // one token per free queue slot

	mu      sync.Mutex
	cond    *sync.Cond
	q       itemHeap
	seq     uint64
	writeMu sync.Mutex // serializes actual link writes (queued drain vs. Express bypass)

	breaker *gobreaker.CircuitBreaker

	recvCh       chan Message
	closed       chan struct{}
	closeOnce    sync.Once
	lastActivity int64 // unix nanos, atomic
}

// NewUnicast wraps l as a Unicast transport. capacity bounds the number of
// queued-but-not-yet-sent messages across all priority bands combined.
func NewUnicast(l link.Link, cd codec.Codec, capacity int) *Unicast {
	u := &Unicast{
		lk:       l,
		reader:   bufio.NewReader(l),
		writer:   bufio.NewWriter(l),
		cd:       cd,
		capacity: capacity,
		sem:      make(chan struct{}, capacity),
		recvCh:   make(chan Message, capacity),
		closed:   make(chan struct{}),
	}
	for i := 0; i < capacity; i++ {
		u.sem <- struct{}{}
	}
	u.cond = sync.NewCond(&u.mu)
	u.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "unicast-" + l.Locator(),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	u.touch()
	go u.drainLoop()
	go u.readLoop()
	return u
}

func (u *Unicast) Kind() Kind { return KindUnicast }

func (u *Unicast) touch() {
	atomic.StoreInt64(&u.lastActivity, time.Now().UnixNano())
}

func (u *Unicast) LastActivity() time.Time {
	return time.Unix(0, atomic.LoadInt64(&u.lastActivity))
}

// Send enqueues msg, or writes it immediately if QoS.Express is set: an
// express message skips the priority queue entirely so it is never stuck
// behind a burst of lower-priority traffic.
func (u *Unicast) Send(ctx context.Context, msg Message) error {
	select {
	case <-u.closed:
		return status.ErrSessionClosed
	default:
	}

	if msg.QoS.Express {
		return u.writeNow(msg)
	}

	if msg.QoS.CongestionControl == model.CongestionControlDrop {
		select {
		case <-u.sem:
		default:
			return ErrBackpressure
		}
	} else {
		select {
		case <-u.sem:
		case <-ctx.Done():
			return status.Wrap(status.KindTransport, "send blocked on full queue", ctx.Err())
		case <-u.closed:
			return status.ErrSessionClosed
		}
	}

	u.mu.Lock()
	u.seq++
	heap.Push(&u.q, unicastItem{msg: msg, seq: u.seq})
	u.mu.Unlock()
	u.cond.Signal()
	return nil
}

func (u *Unicast) writeNow(msg Message) error {
	u.writeMu.Lock()
	defer u.writeMu.Unlock()
	_, err := u.breaker.Execute(func() (any, error) {
		if err := u.cd.WriteFrame(u.writer, msg.Payload); err != nil {
			return nil, err
		}
		return nil, u.writer.Flush()
	})
	if err != nil {
		return status.Wrap(status.KindTransport, "express write", err)
	}
	u.touch()
	return nil
}

// drainLoop pulls the highest-priority queued message and writes it,
// returning its queue slot to sem afterward. It stops when Close fires.
func (u *Unicast) drainLoop() {
	for {
		u.mu.Lock()
		for u.q.Len() == 0 {
			select {
			case <-u.closed:
				u.mu.Unlock()
				return
			default:
			}
			u.cond.Wait()
		}
		item := heap.Pop(&u.q).(unicastItem)
		u.mu.Unlock()

		u.writeMu.Lock()
		_, err := u.breaker.Execute(func() (any, error) {
			if err := u.cd.WriteFrame(u.writer, item.msg.Payload); err != nil {
				return nil, err
			}
			return nil, u.writer.Flush()
		})
		u.writeMu.Unlock()
		if err == nil {
			u.touch()
		}

		select {
		case u.sem <- struct{}{}:
		default:
		}
	}
}

func (u *Unicast) readLoop() {
	defer close(u.recvCh)
	for {
		payload, err := u.cd.ReadFrame(u.reader)
		if err != nil {
			return
		}
		u.touch()
		select {
		case u.recvCh <- Message{Payload: payload}:
		case <-u.closed:
			return
		}
	}
}

func (u *Unicast) Recv() <-chan Message { return u.recvCh }

func (u *Unicast) SendKeepAlive(ctx context.Context) error {
	payload, err := wire.Encode(wire.Envelope{Kind: wire.KindKeepAlive})
	if err != nil {
		return status.Wrap(status.KindProtocol, "encode keep-alive", err)
	}
	return u.Send(ctx, Message{Payload: payload, QoS: model.QoS{Express: true}})
}

// SendJoin is meaningless on a point-to-point link; Unicast peers announce
// liveness with SendKeepAlive instead.
func (u *Unicast) SendJoin(ctx context.Context, zid model.ZenohId, whatami model.WhatAmI, lease time.Duration) error {
	return status.New(status.KindInput, "send_join is multicast-only")
}

func (u *Unicast) Close() error {
	var err error
	u.closeOnce.Do(func() {
		close(u.closed)
		u.mu.Lock()
		u.cond.Broadcast()
		u.mu.Unlock()
		err = u.lk.Close()
	})
	return err
}
