// Package link implements the byte-stream/datagram carriers a Transport
// rides on: TCP unicast, a WebSocket unicast alternative for environments
// that only permit HTTP egress, UDP multicast for scouting and peer-to-peer
// group traffic, and an AMQP-backed link for bridging a constrained peer
// onto a message broker instead of a raw socket. None of these parse the
// Zenoh wire format; they move opaque frames, already encoded/decoded by
// internal/transport/codec, in and out of the process.
package link

import (
	"context"
	"io"
)

// Link is the minimal carrier a Transport drives: a framed, full-duplex
// byte channel plus close. Framing (length-prefixing, checksum) is the
// codec's job, not the link's — a Link makes no promise that one Write
// arrives as one Read (stream links like TCP may split or merge writes),
// which is why Transport always reads through a bufio.Reader rather than
// assuming one read equals one frame.
type Link interface {
	io.Reader
	io.Writer
	io.Closer

	// Locator returns the address this link was dialed to or listening on,
	// in Zenoh locator syntax (e.g. "tcp/127.0.0.1:7447").
	Locator() string

	// IsReliable reports whether the underlying carrier guarantees ordered,
	// lossless delivery (TCP, WebSocket) or not (UDP multicast).
	IsReliable() bool
}

// Dialer opens an outbound Link to a locator.
type Dialer interface {
	Dial(ctx context.Context, locator string) (Link, error)
}

// Listener accepts inbound Links on a locator.
type Listener interface {
	Listen(ctx context.Context, locator string) (Acceptor, error)
}

// Acceptor yields one Link per accepted inbound connection.
type Acceptor interface {
	Accept(ctx context.Context) (Link, error)
	Close() error
}
