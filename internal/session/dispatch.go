package session

import (
	"context"
	"log/slog"

	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/domain/registry"
	"github.com/zenoh-pico/pico/internal/status"
	"github.com/zenoh-pico/pico/internal/transport"
	"github.com/zenoh-pico/pico/internal/wire"
)

var (
	errMalformedFrame = status.New(status.KindProtocol, "malformed frame body")
	errUnknownKind    = status.New(status.KindProtocol, "unknown envelope kind")
)

// dispatchLoop is the session's read task body: it drains the transport's
// Recv channel and classifies every inbound frame, until the channel closes
// (transport failure) or the session starts closing.
func (s *Session) dispatchLoop() {
	for msg := range s.transport.Recv() {
		s.handleFrame(msg)
	}
	// Recv closed: the transport is gone. Force the session to Closing so
	// the lease task and any blocked caller observe it, same as a lease
	// expiry would.
	if s.forceClosing() {
		s.logger.Warn("transport closed, session moving to closing")
		go s.Close()
	}
}

func (s *Session) handleFrame(msg transport.Message) {
	env, err := wire.Decode(msg.Payload)
	if err != nil {
		s.noteProtocolError(err)
		return
	}

	switch env.Kind {
	case wire.KindDeclare:
		s.handleDeclare(env.Declare)
	case wire.KindUndeclare:
		s.handleUndeclare(env.Undeclare)
	case wire.KindData:
		s.handleData(env.Data)
	case wire.KindQuery:
		s.handleQuery(env.Query)
	case wire.KindReply:
		s.handleReply(env.Reply)
	case wire.KindKeepAlive:
		// Recv already touched transport liveness; nothing further to do.
	case wire.KindJoin:
		s.handleJoin(env.Join)
	case wire.KindScout:
		s.handleScout(env.Scout)
	case wire.KindHello:
		s.handleHello(env.Hello)
	default:
		s.noteProtocolError(errUnknownKind)
	}
}

func (s *Session) handleDeclare(body *wire.DeclareBody) {
	if body == nil {
		s.noteProtocolError(errMalformedFrame)
		return
	}
	switch body.Entity {
	case wire.EntityResource:
		s.resources.DeclareWithID(body.ResourceId, body.KeyExpr.Suffix)
	case wire.EntitySubscriber, wire.EntityQueryable:
		// A remote declare for an entity kind this client-side engine does
		// not route on behalf of other peers (it is not a router) is
		// recorded for resource aliasing only; no local callback exists to
		// invoke for a peer's own declaration.
		s.resources.DeclareWithID(body.ResourceId, body.KeyExpr.Suffix)
	}
}

func (s *Session) handleUndeclare(body *wire.UndeclareBody) {
	if body == nil {
		s.noteProtocolError(errMalformedFrame)
		return
	}
	s.resources.Undeclare(body.ResourceId)
}

func (s *Session) handleData(body *wire.DataBody) {
	if body == nil {
		s.noteProtocolError(errMalformedFrame)
		return
	}
	full, err := s.resources.Resolve(body.KeyExpr)
	if err != nil {
		s.noteProtocolError(err)
		return
	}
	sample := model.Sample{
		KeyExpr:    full,
		Payload:    body.Payload,
		Encoding:   body.Encoding,
		Kind:       body.Kind,
		Timestamp:  body.Timestamp,
		QoS:        body.QoS,
		Attachment: body.Attachment,
	}
	s.dispatchSample(sample)
}

// dispatchSample invokes every matching subscription's callback
// synchronously, in registration order, exactly once per sample: this is
// the local short-circuit path publish.go also drives for a session's own
// put.
func (s *Session) dispatchSample(sample model.Sample) {
	s.subs.MatchingSubscriptions(sample.KeyExpr, func(sub *registry.Subscription) {
		s.safeInvoke("subscriber", func() { sub.Deliver(sample) })
	})
}

func (s *Session) handleQuery(body *wire.QueryBody) {
	if body == nil {
		s.noteProtocolError(errMalformedFrame)
		return
	}
	full, err := s.resources.Resolve(body.KeyExpr)
	if err != nil {
		s.noteProtocolError(err)
		return
	}
	q := model.NewQuery(full, body.Parameters, body.Value, body.Target, body.Consolidation, body.ReplierId, body.Token)
	s.deliverQuery(q)
}

func (s *Session) handleReply(body *wire.ReplyBody) {
	if body == nil {
		s.noteProtocolError(errMalformedFrame)
		return
	}
	pq, ok := s.pending.Lookup(body.Token)
	if !ok {
		s.logger.Debug("reply for unknown or expired query", slog.String("token", body.Token.String()))
		return
	}
	reply := model.Reply{Ok: body.Ok, Err: body.Err}
	if body.Ok {
		full, err := s.resources.Resolve(body.Data.KeyExpr)
		if err != nil {
			s.noteProtocolError(err)
			return
		}
		reply.Data = model.ReplyData{
			Sample: model.Sample{
				KeyExpr:   full,
				Payload:   body.Data.Payload,
				Encoding:  body.Data.Encoding,
				Kind:      body.Data.Kind,
				Timestamp: body.Data.Timestamp,
				QoS:       body.Data.QoS,
			},
			ReplierId: body.ReplierId,
		}
	}
	s.safeInvoke("reply", func() { pq.HandleReply(reply) })
}

func (s *Session) handleJoin(body *wire.JoinBody) {
	if body == nil {
		s.noteProtocolError(errMalformedFrame)
		return
	}
	if mc, ok := s.transport.(*transport.Multicast); ok {
		mc.TouchWithRole(body.Zid, body.WhatAmI)
	}
}

func (s *Session) handleScout(body *wire.ScoutBody) {
	if body == nil {
		s.noteProtocolError(errMalformedFrame)
		return
	}
	if body.What&s.whatAmI() == 0 {
		return
	}
	hello := wire.Envelope{Kind: wire.KindHello, Hello: &wire.HelloBody{
		WhatAmI: s.whatAmI(),
		Zid:     s.zid,
	}}
	s.sendEnvelope(context.Background(), hello, model.DefaultQoS)
}

func (s *Session) handleHello(body *wire.HelloBody) {
	if body == nil {
		s.noteProtocolError(errMalformedFrame)
		return
	}
	s.deliverHello(model.Hello{WhatAmI: body.WhatAmI, Zid: body.Zid, Locators: body.Locators})
}
