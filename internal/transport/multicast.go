package transport

import (
	"bufio"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/status"
	"github.com/zenoh-pico/pico/internal/transport/codec"
	"github.com/zenoh-pico/pico/internal/transport/link"
	"github.com/zenoh-pico/pico/internal/wire"
)

// DefaultPeerEvictionInterval and DefaultPeerTimeout mirror the idle-reap
// cadence a scouting-group member uses to forget peers it has stopped
// hearing from.
const (
	DefaultPeerEvictionInterval = 20 * time.Second
	DefaultPeerTimeout          = 60 * time.Second
)

// Multicast is a Transport over a single shared link (a UDP multicast
// socket, typically): every peer in the scouting group reads and writes the
// same carrier, so unlike Unicast there is no per-peer socket to hold open —
// instead Multicast tracks which peers are still alive by the zid each
// inbound frame carries, reaping ones that go quiet the way an idle session
// actor would be reaped from a user registry.
//
// The wire header that carries a frame's sender zid is parsed by the
// session layer, not here. The session's read dispatch calls TouchWithRole
// for each inbound Join; other frames carry no sender zid and do not
// refresh any peer's entry, so a peer stays alive only while its Joins keep
// arriving within peerTimeout.
type Multicast struct {
	lk     link.Link
	reader *bufio.Reader
	writer *bufio.Writer
	cd     codec.Codec

	sendCh chan Message
	recvCh chan Message

	peers sync.Map // model.ZenohId -> *peerState

	evictionInterval time.Duration
	peerTimeout      time.Duration
	onPeerLost       func(model.ZenohId)

	writeMu      sync.Mutex
	closed       chan struct{}
	closeOnce    sync.Once
	lastActivity int64
}

// NewMulticast wraps l (already joined to its multicast group) as a
// Multicast transport. onPeerLost, if non-nil, is invoked by the eviction
// loop for every peer reaped for inactivity.
func NewMulticast(l link.Link, cd codec.Codec, queueSize int, onPeerLost func(model.ZenohId)) *Multicast {
	m := &Multicast{
		lk:               l,
		reader:           bufio.NewReader(l),
		writer:           bufio.NewWriter(l),
		cd:               cd,
		sendCh:           make(chan Message, queueSize),
		recvCh:           make(chan Message, queueSize),
		evictionInterval: DefaultPeerEvictionInterval,
		peerTimeout:      DefaultPeerTimeout,
		onPeerLost:       onPeerLost,
		closed:           make(chan struct{}),
	}
	m.touch()
	go m.writeLoop()
	go m.readLoop()
	go m.evictLoop()
	return m
}

func (m *Multicast) Kind() Kind { return KindMulticast }

func (m *Multicast) touch() {
	atomic.StoreInt64(&m.lastActivity, time.Now().UnixNano())
}

func (m *Multicast) LastActivity() time.Time {
	return time.Unix(0, atomic.LoadInt64(&m.lastActivity))
}

// peerState is the liveness bookkeeping kept per peer zid: its last-seen
// timestamp (refreshed on every touch) and the role it announced on join.
type peerState struct {
	lastSeen int64 // unix nanos, atomic
	whatami  model.WhatAmI
}

// Touch records that a frame was just received from zid, refreshing its
// liveness window. Declaring the peer for the first time is implicit; its
// role defaults to Peer until a Join carrying its actual WhatAmI is seen.
func (m *Multicast) Touch(zid model.ZenohId) {
	if v, ok := m.peers.Load(zid); ok {
		atomic.StoreInt64(&v.(*peerState).lastSeen, time.Now().UnixNano())
		return
	}
	m.TouchWithRole(zid, model.WhatAmIPeer)
}

// TouchWithRole is Touch plus recording the peer's announced role, used by
// the session dispatch path when handling an inbound Join that carries a
// WhatAmI.
func (m *Multicast) TouchWithRole(zid model.ZenohId, whatami model.WhatAmI) {
	now := time.Now().UnixNano()
	if v, ok := m.peers.Load(zid); ok && v.(*peerState).whatami == whatami {
		atomic.StoreInt64(&v.(*peerState).lastSeen, now)
		return
	}
	// A peerState's whatami is never written after creation, so a new or
	// changed role replaces the entry instead of mutating it.
	m.peers.Store(zid, &peerState{lastSeen: now, whatami: whatami})
}

// Peers returns a snapshot of zids currently considered alive.
func (m *Multicast) Peers() []model.ZenohId {
	var out []model.ZenohId
	m.peers.Range(func(key, _ any) bool {
		out = append(out, key.(model.ZenohId))
		return true
	})
	return out
}

// PeersMatching returns the zids of currently alive peers whose announced
// role intersects what, for info_peers_zid/info_routers_zid.
func (m *Multicast) PeersMatching(what model.WhatAmI) []model.ZenohId {
	var out []model.ZenohId
	m.peers.Range(func(key, value any) bool {
		if value.(*peerState).whatami&what != 0 {
			out = append(out, key.(model.ZenohId))
		}
		return true
	})
	return out
}

func (m *Multicast) evictLoop() {
	ticker := time.NewTicker(m.evictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.closed:
			return
		case <-ticker.C:
			m.reapStale()
		}
	}
}

func (m *Multicast) reapStale() {
	now := time.Now()
	m.peers.Range(func(key, value any) bool {
		last := time.Unix(0, atomic.LoadInt64(&value.(*peerState).lastSeen))
		if now.Sub(last) > m.peerTimeout {
			m.peers.Delete(key)
			if m.onPeerLost != nil {
				m.onPeerLost(key.(model.ZenohId))
			}
		}
		return true
	})
}

// Send enqueues msg for transmission onto the shared link. Priority bands
// carry no meaning on a broadcast medium everyone reads at the same rate,
// so Multicast queues in arrival order and only honors Drop vs Block.
func (m *Multicast) Send(ctx context.Context, msg Message) error {
	select {
	case <-m.closed:
		return status.ErrSessionClosed
	default:
	}

	if msg.QoS.CongestionControl == model.CongestionControlDrop {
		select {
		case m.sendCh <- msg:
			return nil
		default:
			return ErrBackpressure
		}
	}

	select {
	case m.sendCh <- msg:
		return nil
	case <-ctx.Done():
		return status.Wrap(status.KindTransport, "send blocked on full queue", ctx.Err())
	case <-m.closed:
		return status.ErrSessionClosed
	}
}

func (m *Multicast) writeLoop() {
	for {
		select {
		case <-m.closed:
			return
		case msg := <-m.sendCh:
			m.writeMu.Lock()
			err := m.cd.WriteFrame(m.writer, msg.Payload)
			if err == nil {
				err = m.writer.Flush()
			}
			m.writeMu.Unlock()
			if err == nil {
				m.touch()
			}
		}
	}
}

func (m *Multicast) readLoop() {
	defer close(m.recvCh)
	for {
		payload, err := m.cd.ReadFrame(m.reader)
		if err != nil {
			return
		}
		m.touch()
		select {
		case m.recvCh <- Message{Payload: payload}:
		case <-m.closed:
			return
		}
	}
}

func (m *Multicast) Recv() <-chan Message { return m.recvCh }

func (m *Multicast) SendKeepAlive(ctx context.Context) error {
	payload, err := wire.Encode(wire.Envelope{Kind: wire.KindKeepAlive})
	if err != nil {
		return status.Wrap(status.KindProtocol, "encode keep-alive", err)
	}
	return m.Send(ctx, Message{Payload: payload, QoS: model.QoS{CongestionControl: model.CongestionControlDrop}})
}

// SendJoin broadcasts a Join announcement to the scouting group, the
// multicast analogue of SendKeepAlive.
func (m *Multicast) SendJoin(ctx context.Context, zid model.ZenohId, whatami model.WhatAmI, lease time.Duration) error {
	env := wire.Envelope{Kind: wire.KindJoin, Join: &wire.JoinBody{
		Zid:        zid,
		WhatAmI:    whatami,
		LeaseNanos: int64(lease),
	}}
	payload, err := wire.Encode(env)
	if err != nil {
		return status.Wrap(status.KindProtocol, "encode join", err)
	}
	return m.Send(ctx, Message{Payload: payload, QoS: model.QoS{CongestionControl: model.CongestionControlDrop}})
}

func (m *Multicast) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.closed)
		err = m.lk.Close()
	})
	return err
}
