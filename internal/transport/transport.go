// Package transport implements the Unicast and Multicast carriers a
// Session drives: bounded outbound queues with congestion control
// (priority-ordered on Unicast, arrival-ordered on Multicast),
// a cooperative read loop, and the keep-alive/lease bookkeeping a session's
// lease task depends on to detect a dead peer.
package transport

import (
	"context"
	"time"

	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/status"
)

// Kind distinguishes the two carrier shapes a session can open.
type Kind uint8

const (
	KindUnicast Kind = iota
	KindMulticast
)

func (k Kind) String() string {
	if k == KindMulticast {
		return "multicast"
	}
	return "unicast"
}

// Message is one outbound or inbound frame at the transport layer: already
// serialized payload bytes plus the QoS that governs how Send queues it.
type Message struct {
	Payload  []byte
	Priority model.Priority
	QoS      model.QoS
}

// ErrBackpressure is returned by Send when CongestionControlDrop is set
// and the transport's outbound queue (one capacity shared by all priority
// bands) is saturated.
var ErrBackpressure = status.New(status.KindTransport, "send queue saturated, message dropped")

// Transport is the abstraction internal/session drives: it knows nothing
// about key expressions, declarations, or queries, only about moving
// framed messages and reporting liveness.
type Transport interface {
	Kind() Kind

	// Send enqueues msg for transmission. Under CongestionControlBlock it
	// waits for queue space or ctx cancellation; under Drop it returns
	// ErrBackpressure immediately rather than wait.
	Send(ctx context.Context, msg Message) error

	// Recv returns the channel of inbound messages. It is closed when the
	// transport's read task observes the link close or an unrecoverable
	// protocol error.
	Recv() <-chan Message

	// SendKeepAlive transmits a keep-alive frame, refreshing the peer's
	// view of this side's liveness.
	SendKeepAlive(ctx context.Context) error

	// SendJoin transmits a Join announcement advertising zid, whatami, and
	// lease to a multicast scouting group, refreshing this side's liveness
	// the way SendKeepAlive does over Unicast. Multicast only: Unicast
	// returns a status.KindInput error without sending anything, since a
	// point-to-point link has no group to announce to.
	SendJoin(ctx context.Context, zid model.ZenohId, whatami model.WhatAmI, lease time.Duration) error

	// LastActivity returns the last time any frame was sent or received,
	// for the lease task's liveness check.
	LastActivity() time.Time

	// Close tears the transport down. Idempotent.
	Close() error
}
